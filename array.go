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
	"reflect"

	"github.com/corvidrt/graphwire/refl"
)

// ============================================================================
// Fixed arrays - rank-k arrays with their lengths in the type header
// ============================================================================

// arraySerializer handles [N]T, [N][M]T and deeper nestings of unnamed array
// types as one rank-k array. Elements are visited in row-major order through
// a flat index.
type arraySerializer struct {
	dims    []int
	strides []int
	total   int
	elem    reflect.Type
	raw     bool
	direct  bool
}

func newArraySerializer(r *Registry, t reflect.Type) *arraySerializer {
	dims, elem := arrayShape(t)
	s := &arraySerializer{dims: dims, strides: make([]int, len(dims)), total: 1, elem: elem}
	for i := len(dims) - 1; i >= 0; i-- {
		s.strides[i] = s.total
		s.total *= dims[i]
	}
	s.raw, s.direct = bulkKind(r, elem)
	return s
}

// elemAt returns the element at flat row-major index k.
func (s *arraySerializer) elemAt(v reflect.Value, k int) reflect.Value {
	for d := range s.dims {
		v = v.Index(k / s.strides[d])
		k %= s.strides[d]
	}
	return v
}

func (s *arraySerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	out := reflect.New(value.Type()).Elem()
	for k := 0; k < s.total; k++ {
		cp, err := ctx.CopyValue(s.elemAt(value, k))
		if err != nil {
			return reflect.Value{}, err
		}
		setCopy(s.elemAt(out, k), cp)
	}
	return out, nil
}

func (s *arraySerializer) Write(ctx *WriteContext, value reflect.Value) error {
	if s.total == 0 {
		return nil
	}
	switch {
	case s.direct:
		ctx.writer.WriteBytes(refl.ArrayBytes(refl.Addressable(value)))
	case s.raw:
		kind := s.elem.Kind()
		for k := 0; k < s.total; k++ {
			writePrimitive(ctx.writer, kind, s.elemAt(value, k))
		}
	default:
		for k := 0; k < s.total; k++ {
			if err := ctx.WriteValue(s.elemAt(value, k), s.elem); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *arraySerializer) Read(ctx *ReadContext, target reflect.Value) error {
	if s.total == 0 {
		return nil
	}
	switch {
	case s.direct:
		return readBlock(ctx, ctx.Position(), s.elem.Kind(), refl.ArrayBytes(target))
	case s.raw:
		kind := s.elem.Kind()
		for k := 0; k < s.total; k++ {
			readPrimitive(ctx.reader, kind, s.elemAt(target, k))
		}
	default:
		for k := 0; k < s.total; k++ {
			if err := ctx.ReadValue(s.elemAt(target, k)); err != nil {
				return err
			}
		}
	}
	return nil
}
