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

// pointerSerializer writes the pointee as a full value position. The pointer
// is the tracked object, so every alias of it reads back as the same pointer.
// A pointer and its pointee share one nesting level toward MaxDepth.
type pointerSerializer struct {
	elem reflect.Type
}

func newPointerSerializer(t reflect.Type) *pointerSerializer {
	return &pointerSerializer{elem: t.Elem()}
}

func (s *pointerSerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	out := reflect.New(s.elem)
	ctx.RecordCopy(value, out)
	ctx.depth--
	cp, err := ctx.CopyValue(value.Elem())
	ctx.depth++
	if err != nil {
		return reflect.Value{}, err
	}
	setCopy(out.Elem(), cp)
	return out, nil
}

func (s *pointerSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	ctx.decDepth()
	defer func() { ctx.depth++ }()
	return ctx.WriteValue(value.Elem(), s.elem)
}

func (s *pointerSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	p := reflect.New(s.elem)
	ctx.RecordObject(p)
	target.Set(p)
	ctx.decDepth()
	defer func() { ctx.depth++ }()
	return ctx.ReadValue(p.Elem())
}
