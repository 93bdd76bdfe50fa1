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
// Slices - one-dimensional arrays
// ============================================================================

// bulkKind reports whether elements of t are written as one block of raw
// little-endian values, and whether the block can be copied straight from
// memory on this host.
func bulkKind(r *Registry, t reflect.Type) (raw bool, direct bool) {
	if !r.isRawPrimitive(t) {
		return false, false
	}
	return true, refl.IsLittleEndian && int(t.Size()) == primitiveSize(t.Kind())
}

// sliceSerializer writes an int32 length and the elements. Primitive
// elements form a single block; everything else is a value position per
// element.
type sliceSerializer struct {
	elem   reflect.Type
	raw    bool
	direct bool
}

func newSliceSerializer(r *Registry, t reflect.Type) *sliceSerializer {
	raw, direct := bulkKind(r, t.Elem())
	return &sliceSerializer{elem: t.Elem(), raw: raw, direct: direct}
}

func (s *sliceSerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	n := value.Len()
	out := reflect.MakeSlice(value.Type(), n, n)
	ctx.RecordCopy(value, out)
	if ctx.registry.isShallowCopyable(s.elem) {
		reflect.Copy(out, value)
		return out, nil
	}
	for i := 0; i < n; i++ {
		cp, err := ctx.CopyValue(value.Index(i))
		if err != nil {
			return reflect.Value{}, err
		}
		setCopy(out.Index(i), cp)
	}
	return out, nil
}

func (s *sliceSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	n := value.Len()
	ctx.writer.WriteInt32(int32(n))
	switch {
	case s.direct:
		ctx.writer.WriteBytes(refl.SliceBytes(value))
	case s.raw:
		kind := s.elem.Kind()
		for i := 0; i < n; i++ {
			writePrimitive(ctx.writer, kind, value.Index(i))
		}
	default:
		for i := 0; i < n; i++ {
			if err := ctx.WriteValue(value.Index(i), s.elem); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *sliceSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	offset := ctx.Position()
	n := int(ctx.reader.ReadInt32())
	if n < 0 || n > ctx.reader.Remaining() {
		return malformedf(offset, "slice length %d with %d bytes remaining", n, ctx.reader.Remaining())
	}
	out := reflect.MakeSlice(target.Type(), n, n)
	ctx.RecordObject(out)
	target.Set(out)
	switch {
	case s.direct:
		return readBlock(ctx, offset, s.elem.Kind(), refl.SliceBytes(out))
	case s.raw:
		kind := s.elem.Kind()
		for i := 0; i < n; i++ {
			readPrimitive(ctx.reader, kind, out.Index(i))
		}
	default:
		for i := 0; i < n; i++ {
			if err := ctx.ReadValue(out.Index(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// readBlock fills dst with the next len(dst) bytes. Bool blocks are checked
// byte by byte since any other value would be an invalid Go bool.
func readBlock(ctx *ReadContext, offset int, kind reflect.Kind, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	ctx.reader.ReadFull(dst)
	if kind == reflect.Bool {
		for _, b := range dst {
			if b > 1 {
				return malformedf(offset, "invalid bool byte 0x%02x", b)
			}
		}
	}
	return nil
}
