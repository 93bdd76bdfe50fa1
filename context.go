// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package graphwire

import (
	"fmt"
	"reflect"

	"github.com/corvidrt/graphwire/metrics"
)

// ============================================================================
// WriteContext - Holds all state needed during serialization
// ============================================================================

// WriteContext is the per-operation serialize state: the output writer, the
// identity table and the shared registry. It belongs to exactly one
// operation at a time.
type WriteContext struct {
	writer      *Writer
	refs        *RefWriter
	registry    *Registry
	metrics     *metrics.Collector
	source      BufferSource
	segmentSize int
	base        int
	depth       int
	maxDepth    int
}

func newWriteContext(registry *Registry, config *Config) *WriteContext {
	return &WriteContext{
		refs:        NewRefWriter(config.SustainedCapacity),
		registry:    registry,
		metrics:     config.Metrics,
		source:      config.Source,
		segmentSize: config.SegmentSize,
		maxDepth:    config.MaxDepth,
	}
}

// reset prepares the context for an operation writing to w. Offsets are
// relative to the cursor of w at this point; nil detaches the writer.
func (c *WriteContext) reset(w *Writer) {
	c.writer = w
	c.refs.Reset()
	c.base = 0
	if w != nil {
		c.base = -w.Position()
	}
	c.depth = 0
}

// Writer returns the writer of the current region.
func (c *WriteContext) Writer() *Writer { return c.writer }

// Registry returns the registry driving dispatch.
func (c *WriteContext) Registry() *Registry { return c.registry }

// Position is the offset of the cursor from the start of the root value.
func (c *WriteContext) Position() int { return c.base + c.writer.Position() }

// CheckObjectWhileSerializing returns the offset v was first written at.
func (c *WriteContext) CheckObjectWhileSerializing(v reflect.Value) (int32, bool) {
	return c.refs.CheckObjectWhileSerializing(v)
}

// RecordObject records v as written at offset.
func (c *WriteContext) RecordObject(v reflect.Value, offset int) {
	c.refs.RecordObject(v, offset)
}

func (c *WriteContext) incDepth() error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d", ErrMaxDepthExceeded, c.maxDepth)
	}
	return nil
}

func (c *WriteContext) decDepth() { c.depth-- }

// WriteValue writes one value position: a token, then whatever the token
// announces. expected is the static type of the position; a value of exactly
// that type gets an elided header.
func (c *WriteContext) WriteValue(value reflect.Value, expected reflect.Type) error {
	if value.Kind() == reflect.Interface {
		value = value.Elem()
	}
	if !value.IsValid() || isNil(value) {
		c.writer.WriteToken(TokenNull)
		return nil
	}
	if err := c.incDepth(); err != nil {
		return err
	}
	defer c.decDepth()

	info, err := c.registry.getTypeInfo(value.Type())
	if err != nil {
		return err
	}
	if info.tracked {
		if off, ok := c.refs.CheckObjectWhileSerializing(value); ok {
			c.writer.WriteToken(TokenReference)
			c.writer.WriteInt32(off)
			return nil
		}
		c.refs.RecordObject(value, c.Position())
	}
	switch info.mode {
	case modeObject:
		c.writer.WriteToken(TokenObject)
		return nil
	case modeKeyed, modeFallback:
		return c.writeEscape(info, value)
	case modeException:
		if info.Type == expected {
			c.writer.WriteToken(TokenExpectedType)
		} else {
			c.writer.WriteToken(TokenSpecifiedType)
			c.writer.WriteToken(TokenException)
		}
	default:
		if err := c.writeTypeHeader(info.Type, expected); err != nil {
			return err
		}
	}
	return info.Serializer.Write(c, value)
}

// writeNested writes an int32 length followed by whatever fn writes. fn gets
// a derived context over a scratch writer whose positions are translated to
// the outer stream, so identity offsets stay valid on both sides.
func (c *WriteContext) writeNested(fn func(sub *WriteContext) error) error {
	sub := &WriteContext{
		writer:      NewWriterSize(c.source, c.segmentSize),
		refs:        c.refs,
		registry:    c.registry,
		metrics:     c.metrics,
		source:      c.source,
		segmentSize: c.segmentSize,
		base:        c.Position() + 4,
		depth:       c.depth,
		maxDepth:    c.maxDepth,
	}
	defer sub.writer.Release()
	if err := fn(sub); err != nil {
		return err
	}
	c.writer.WriteInt32(int32(sub.writer.Position()))
	c.writer.WriteFrom(sub.writer)
	return nil
}
