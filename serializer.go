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

import "reflect"

// Serializer is the copy/write/read capability bound to one type.
//
// The dispatcher writes the value token, handles identity and the type
// header before calling Write, and reads them before calling Read. Write and
// Read only deal with the payload.
type Serializer interface {
	// Copy returns a deep copy of value. value is never nil.
	Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error)

	// Write writes the payload of value. value is never nil.
	Write(ctx *WriteContext, value reflect.Value) error

	// Read fills target, a settable zero value of the bound type. A reference
	// value must be handed to ctx.RecordObject right after allocation, before
	// anything nested is read.
	Read(ctx *ReadContext, target reflect.Value) error
}

// CopyFunc is the copy routine of a registration.
type CopyFunc func(ctx *CopyContext, value reflect.Value) (reflect.Value, error)

// WriteFunc is the serialize routine of a registration.
type WriteFunc func(ctx *WriteContext, value reflect.Value) error

// ReadFunc is the deserialize routine of a registration.
type ReadFunc func(ctx *ReadContext, target reflect.Value) error

// funcSerializer adapts a routine triple. A nil copier treats the type as
// immutable and shares the value.
type funcSerializer struct {
	copier CopyFunc
	writer WriteFunc
	reader ReadFunc
}

func (s funcSerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	if s.copier == nil {
		return value, nil
	}
	return s.copier(ctx, value)
}

func (s funcSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	return s.writer(ctx, value)
}

func (s funcSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	return s.reader(ctx, target)
}

// ExternalSerializer is a chain member consulted for types with no exact
// registration. The first member whose IsSupportedType accepts a type serves
// it from then on; the answer is cached per type.
type ExternalSerializer interface {
	Serializer
	IsSupportedType(t reflect.Type) bool
}

// KeyedSerializer is an interoperability codec selected by a key byte that is
// written to the stream, so the reader picks the same codec without probing.
type KeyedSerializer interface {
	Key() byte
	IsSupportedType(t reflect.Type) bool
	Encode(val any) ([]byte, error)
	Decode(data []byte, val any) error
}

// FallbackSerializer is the serializer of last resort. Decode receives a
// pointer to a zero value of the recorded type.
type FallbackSerializer interface {
	Encode(val any) ([]byte, error)
	Decode(data []byte, val any) error
}
