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

// mapSerializer handles dictionaries and sets. A set is a map whose values
// are struct{}; only its keys are written.
type mapSerializer struct {
	key  reflect.Type
	elem reflect.Type
	set  bool
}

func newMapSerializer(t reflect.Type) *mapSerializer {
	return &mapSerializer{key: t.Key(), elem: t.Elem(), set: t.Elem() == emptyStructType}
}

func (s *mapSerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(value.Type(), value.Len())
	ctx.RecordCopy(value, out)
	iter := value.MapRange()
	for iter.Next() {
		k, err := ctx.CopyValue(iter.Key())
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := ctx.CopyValue(iter.Value())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(orZero(k, s.key), orZero(v, s.elem))
	}
	return out, nil
}

func (s *mapSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	ctx.writer.WriteInt32(int32(value.Len()))
	iter := value.MapRange()
	for iter.Next() {
		if err := ctx.WriteValue(iter.Key(), s.key); err != nil {
			return err
		}
		if s.set {
			continue
		}
		if err := ctx.WriteValue(iter.Value(), s.elem); err != nil {
			return err
		}
	}
	return nil
}

func (s *mapSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	offset := ctx.Position()
	n := int(ctx.reader.ReadInt32())
	if n < 0 || n > ctx.reader.Remaining() {
		return malformedf(offset, "map size %d with %d bytes remaining", n, ctx.reader.Remaining())
	}
	out := reflect.MakeMapWithSize(target.Type(), n)
	ctx.RecordObject(out)
	target.Set(out)
	for i := 0; i < n; i++ {
		k := reflect.New(s.key).Elem()
		if err := ctx.ReadValue(k); err != nil {
			return err
		}
		v := reflect.New(s.elem).Elem()
		if !s.set {
			if err := ctx.ReadValue(v); err != nil {
				return err
			}
		}
		out.SetMapIndex(k, v)
	}
	return nil
}

func orZero(v reflect.Value, t reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(t)
	}
	return v
}
