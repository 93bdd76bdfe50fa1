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
)

// ============================================================================
// CopyContext - Holds all state needed during a deep copy
// ============================================================================

// CopyContext maps source objects to their copies for one deep copy, so
// shared and cyclic references in the source stay shared and cyclic in the
// copy.
type CopyContext struct {
	registry  *Registry
	copies    map[refKey]reflect.Value
	sustained int
	depth     int
	maxDepth  int
}

func newCopyContext(registry *Registry, config *Config) *CopyContext {
	return &CopyContext{
		registry:  registry,
		copies:    make(map[refKey]reflect.Value),
		sustained: config.SustainedCapacity,
		maxDepth:  config.MaxDepth,
	}
}

func (c *CopyContext) reset() {
	if len(c.copies) > c.sustained {
		c.copies = make(map[refKey]reflect.Value)
	} else {
		clear(c.copies)
	}
	c.depth = 0
}

// Registry returns the registry driving dispatch.
func (c *CopyContext) Registry() *Registry { return c.registry }

// RecordCopy records dst as the copy of src. Copiers of reference types call
// it right after allocating dst, before copying anything nested.
func (c *CopyContext) RecordCopy(src, dst reflect.Value) {
	key, ok := identityOf(src)
	if !ok {
		return
	}
	if _, exists := c.copies[key]; !exists {
		c.copies[key] = dst
	}
}

// CopyValue returns a deep copy of v. Nil values, and nil interfaces as an
// invalid Value, come back as they are.
func (c *CopyContext) CopyValue(v reflect.Value) (reflect.Value, error) {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() || isNil(v) {
		return v, nil
	}
	t := v.Type()
	if c.registry.isShallowCopyable(t) {
		return v, nil
	}
	key, tracked := identityOf(v)
	if tracked {
		if cp, ok := c.copies[key]; ok {
			return cp, nil
		}
	}
	c.depth++
	defer func() { c.depth-- }()
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return reflect.Value{}, fmt.Errorf("%w: %d", ErrMaxDepthExceeded, c.maxDepth)
	}
	info, err := c.registry.getTypeInfo(t)
	if err != nil {
		return reflect.Value{}, err
	}
	cp, err := info.Serializer.Copy(c, v)
	if err != nil {
		return reflect.Value{}, err
	}
	if tracked {
		if _, ok := c.copies[key]; !ok {
			c.copies[key] = cp
		}
	}
	return cp, nil
}

// setCopy stores a CopyValue result into dst.
func setCopy(dst, cp reflect.Value) {
	if !cp.IsValid() {
		dst.Set(reflect.Zero(dst.Type()))
		return
	}
	dst.Set(cp)
}
