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

// enumSerializer serializes named integer types, the Go rendition of enums.
// The value is written at the width of the underlying kind; the type header
// carries the enum's key, so the reader restores the named type.
type enumSerializer struct {
	kind reflect.Kind
}

func (s enumSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (s enumSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	writePrimitive(ctx.writer, s.kind, value)
	return nil
}

func (s enumSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	readPrimitive(ctx.reader, s.kind, target)
	return nil
}
