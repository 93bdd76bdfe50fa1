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
)

// ============================================================================
// Primitive Serializers
// ============================================================================

// primitiveSerializer handles the fixed-width kinds. int and uint always take
// 8 bytes so 32-bit and 64-bit peers agree.
type primitiveSerializer struct {
	kind reflect.Kind
}

func (s primitiveSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (s primitiveSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	writePrimitive(ctx.writer, s.kind, value)
	return nil
}

func (s primitiveSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	readPrimitive(ctx.reader, s.kind, target)
	return nil
}

func writePrimitive(w *Writer, kind reflect.Kind, v reflect.Value) {
	switch kind {
	case reflect.Bool:
		w.WriteBool(v.Bool())
	case reflect.Int8:
		w.WriteInt8(int8(v.Int()))
	case reflect.Int16:
		w.WriteInt16(int16(v.Int()))
	case reflect.Int32:
		w.WriteInt32(int32(v.Int()))
	case reflect.Int64, reflect.Int:
		w.WriteInt64(v.Int())
	case reflect.Uint8:
		w.WriteUint8(uint8(v.Uint()))
	case reflect.Uint16:
		w.WriteUint16(uint16(v.Uint()))
	case reflect.Uint32:
		w.WriteUint32(uint32(v.Uint()))
	case reflect.Uint64, reflect.Uint:
		w.WriteUint64(v.Uint())
	case reflect.Float32:
		w.WriteFloat32(float32(v.Float()))
	case reflect.Float64:
		w.WriteFloat64(v.Float())
	case reflect.Complex64:
		c := v.Complex()
		w.WriteFloat32(float32(real(c)))
		w.WriteFloat32(float32(imag(c)))
	case reflect.Complex128:
		c := v.Complex()
		w.WriteFloat64(real(c))
		w.WriteFloat64(imag(c))
	}
}

func readPrimitive(r *Reader, kind reflect.Kind, v reflect.Value) {
	switch kind {
	case reflect.Bool:
		v.SetBool(r.ReadBool())
	case reflect.Int8:
		v.SetInt(int64(r.ReadInt8()))
	case reflect.Int16:
		v.SetInt(int64(r.ReadInt16()))
	case reflect.Int32:
		v.SetInt(int64(r.ReadInt32()))
	case reflect.Int64, reflect.Int:
		v.SetInt(r.ReadInt64())
	case reflect.Uint8:
		v.SetUint(uint64(r.ReadUint8()))
	case reflect.Uint16:
		v.SetUint(uint64(r.ReadUint16()))
	case reflect.Uint32:
		v.SetUint(uint64(r.ReadUint32()))
	case reflect.Uint64, reflect.Uint:
		v.SetUint(r.ReadUint64())
	case reflect.Float32:
		v.SetFloat(float64(r.ReadFloat32()))
	case reflect.Float64:
		v.SetFloat(r.ReadFloat64())
	case reflect.Complex64:
		re := r.ReadFloat32()
		im := r.ReadFloat32()
		v.SetComplex(complex(float64(re), float64(im)))
	case reflect.Complex128:
		re := r.ReadFloat64()
		im := r.ReadFloat64()
		v.SetComplex(complex(re, im))
	}
}
