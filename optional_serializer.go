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
	"strings"

	"github.com/corvidrt/graphwire/optional"
)

var optionalPkgPath = reflect.TypeOf(optional.Optional[int]{}).PkgPath()

// optionalDefinition is the built-in "Nullable" generic definition covering
// every optional.Optional[T].
var optionalDefinition = &GenericDefinition{
	Name:  "Nullable",
	Match: isOptionalType,
	Arguments: func(t reflect.Type) []reflect.Type {
		f, _ := t.FieldByName("Value")
		return []reflect.Type{f.Type}
	},
	Factory: func(_ *Registry, t reflect.Type) (Serializer, error) {
		return newOptionalSerializer(t), nil
	},
}

func isOptionalType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.PkgPath() != optionalPkgPath {
		return false
	}
	if !strings.HasPrefix(t.Name(), "Optional[") {
		return false
	}
	has, ok := t.FieldByName("Has")
	if !ok || has.Type.Kind() != reflect.Bool {
		return false
	}
	_, ok = t.FieldByName("Value")
	return ok
}

// optionalSerializer writes a presence flag, then the value as a full value
// position when present.
type optionalSerializer struct {
	valueType  reflect.Type
	valueIndex int
	hasIndex   int
}

func newOptionalSerializer(t reflect.Type) *optionalSerializer {
	valueField, _ := t.FieldByName("Value")
	hasField, _ := t.FieldByName("Has")
	return &optionalSerializer{
		valueType:  valueField.Type,
		valueIndex: valueField.Index[0],
		hasIndex:   hasField.Index[0],
	}
}

func (s *optionalSerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	out := reflect.New(value.Type()).Elem()
	if !value.Field(s.hasIndex).Bool() {
		return out, nil
	}
	out.Field(s.hasIndex).SetBool(true)
	cp, err := ctx.CopyValue(value.Field(s.valueIndex))
	if err != nil {
		return reflect.Value{}, err
	}
	setCopy(out.Field(s.valueIndex), cp)
	return out, nil
}

func (s *optionalSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	has := value.Field(s.hasIndex).Bool()
	ctx.writer.WriteBool(has)
	if !has {
		return nil
	}
	return ctx.WriteValue(value.Field(s.valueIndex), s.valueType)
}

func (s *optionalSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	if !ctx.reader.ReadBool() {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	target.Field(s.hasIndex).SetBool(true)
	return ctx.ReadValue(target.Field(s.valueIndex))
}
