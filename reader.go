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
// ReadContext - Holds all state needed during deserialization
// ============================================================================

// ReadContext is the per-operation deserialize state.
type ReadContext struct {
	reader   *Reader
	refs     *RefReader
	registry *Registry
	metrics  *metrics.Collector
	base     int
	pending  int // offset of the value token being read
	depth    int
	maxDepth int
}

func newReadContext(registry *Registry, config *Config) *ReadContext {
	return &ReadContext{
		refs:     NewRefReader(config.SustainedCapacity),
		registry: registry,
		metrics:  config.Metrics,
		maxDepth: config.MaxDepth,
	}
}

// reset prepares the context for an operation reading from r. Offsets are
// relative to the cursor of r at this point; nil detaches the reader.
func (c *ReadContext) reset(r *Reader) {
	c.reader = r
	c.refs.Reset()
	c.base = 0
	if r != nil {
		c.base = -r.Position()
	}
	c.pending = 0
	c.depth = 0
}

// Reader returns the reader of the current region.
func (c *ReadContext) Reader() *Reader { return c.reader }

// Registry returns the registry driving dispatch.
func (c *ReadContext) Registry() *Registry { return c.registry }

// Position is the offset of the cursor from the start of the root value.
func (c *ReadContext) Position() int { return c.base + c.reader.Position() }

// RecordObject records v as the object of the value currently being read.
// Serializers of reference types call it right after allocating v.
func (c *ReadContext) RecordObject(v reflect.Value) {
	c.refs.RecordObject(v, c.pending)
}

// FetchReferencedObject returns the object recorded at offset.
func (c *ReadContext) FetchReferencedObject(offset int32) (reflect.Value, bool) {
	return c.refs.FetchReferencedObject(offset)
}

func (c *ReadContext) incDepth() error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d", ErrMaxDepthExceeded, c.maxDepth)
	}
	return nil
}

func (c *ReadContext) decDepth() { c.depth-- }

// ReadValue reads one value position into target, which must be settable.
// The static type of target is the expected type of the position.
func (c *ReadContext) ReadValue(target reflect.Value) error {
	offset := c.Position()
	tok := c.reader.ReadToken()
	switch tok {
	case TokenNull:
		target.Set(reflect.Zero(target.Type()))
		return nil
	case TokenReference:
		ref := c.reader.ReadInt32()
		v, ok := c.refs.FetchReferencedObject(ref)
		if !ok {
			return malformedf(offset, "reference to unknown offset %d", ref)
		}
		return assign(target, v, offset)
	case TokenObject:
		return assign(target, reflect.ValueOf(struct{}{}), offset)
	}

	if err := c.incDepth(); err != nil {
		return err
	}
	defer c.decDepth()

	switch tok {
	case TokenFallback:
		return c.readFallback(target, offset)
	case TokenKeyed:
		return c.readKeyed(target, offset)
	case TokenExpectedType:
		t := target.Type()
		if t.Kind() == reflect.Interface {
			return malformedf(offset, "elided header for a position of interface type %v", t)
		}
		return c.readPayload(target, t, offset)
	case TokenSpecifiedType:
		t, err := c.readTypeDescriptor()
		if err != nil {
			return err
		}
		if t == exceptionMarkerType {
			return c.assignException(target, offset)
		}
		return c.readPayload(target, t, offset)
	}
	return malformedf(offset, "unexpected token 0x%02x in value position", tok)
}

func (c *ReadContext) readPayload(target reflect.Value, t reflect.Type, offset int) error {
	info, err := c.registry.getTypeInfo(t)
	if err != nil {
		return err
	}
	if info.mode == modeException {
		return c.assignException(target, offset)
	}
	if !t.AssignableTo(target.Type()) {
		return malformedf(offset, "%v is not assignable to %v", t, target.Type())
	}
	direct := t == target.Type()
	v := target
	if !direct {
		v = reflect.New(t).Elem()
	}
	c.pending = offset
	if err := info.Serializer.Read(c, v); err != nil {
		return err
	}
	if info.tracked && !c.refs.recorded(offset) {
		snapshot := reflect.New(t).Elem()
		snapshot.Set(v)
		c.refs.RecordObject(snapshot, offset)
	}
	if !direct {
		target.Set(v)
	}
	return nil
}

func (c *ReadContext) assignException(target reflect.Value, offset int) error {
	v, err := c.readException(offset)
	if err != nil {
		return err
	}
	if !v.Type().AssignableTo(target.Type()) {
		if u, ok := v.Interface().(*UnknownException); ok {
			return &UnresolvedTypeError{Key: u.TypeName}
		}
	}
	return assign(target, v, offset)
}

// readNested reads an int32 length and hands fn a derived context over the
// region it covers. The region is consumed whatever fn returns.
func (c *ReadContext) readNested(fn func(sub *ReadContext) error) error {
	n := c.reader.ReadLength()
	start := c.Position()
	sub := &ReadContext{
		reader:   NewReader(c.reader.ReadBytes(n)),
		refs:     c.refs,
		registry: c.registry,
		metrics:  c.metrics,
		base:     start,
		depth:    c.depth,
		maxDepth: c.maxDepth,
	}
	return fn(sub)
}

func assign(target, v reflect.Value, offset int) error {
	if !v.IsValid() {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	if !v.Type().AssignableTo(target.Type()) {
		return malformedf(offset, "%v is not assignable to %v", v.Type(), target.Type())
	}
	target.Set(v)
	return nil
}
