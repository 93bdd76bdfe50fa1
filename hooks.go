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

// SerializingHook is called on a value before its fields are written.
type SerializingHook interface {
	OnSerializing(ctx *WriteContext)
}

// SerializedHook is called on a value after its fields are written.
type SerializedHook interface {
	OnSerialized(ctx *WriteContext)
}

// DeserializingHook is called on the zero instance before its fields are read.
type DeserializingHook interface {
	OnDeserializing(ctx *ReadContext)
}

// DeserializedHook is called after every field is read.
type DeserializedHook interface {
	OnDeserialized(ctx *ReadContext)
}

// PostConstructor is called last, once the value is complete. An error fails
// the operation.
type PostConstructor interface {
	PostConstruct() error
}

var (
	serializingHookType   = reflect.TypeOf((*SerializingHook)(nil)).Elem()
	serializedHookType    = reflect.TypeOf((*SerializedHook)(nil)).Elem()
	deserializingHookType = reflect.TypeOf((*DeserializingHook)(nil)).Elem()
	deserializedHookType  = reflect.TypeOf((*DeserializedHook)(nil)).Elem()
	postConstructorType   = reflect.TypeOf((*PostConstructor)(nil)).Elem()
)

// hookSet records which hooks a struct type implements through its pointer.
type hookSet struct {
	serializing   bool
	serialized    bool
	deserializing bool
	deserialized  bool
	postConstruct bool
}

func hooksOf(t reflect.Type) hookSet {
	pt := reflect.PointerTo(t)
	return hookSet{
		serializing:   pt.Implements(serializingHookType),
		serialized:    pt.Implements(serializedHookType),
		deserializing: pt.Implements(deserializingHookType),
		deserialized:  pt.Implements(deserializedHookType),
		postConstruct: pt.Implements(postConstructorType),
	}
}

// v must be addressable in every call below.

func (h hookSet) onSerializing(v reflect.Value, ctx *WriteContext) {
	if h.serializing {
		v.Addr().Interface().(SerializingHook).OnSerializing(ctx)
	}
}

func (h hookSet) onSerialized(v reflect.Value, ctx *WriteContext) {
	if h.serialized {
		v.Addr().Interface().(SerializedHook).OnSerialized(ctx)
	}
}

func (h hookSet) onDeserializing(v reflect.Value, ctx *ReadContext) {
	if h.deserializing {
		v.Addr().Interface().(DeserializingHook).OnDeserializing(ctx)
	}
}

func (h hookSet) onDeserialized(v reflect.Value, ctx *ReadContext) {
	if h.deserialized {
		v.Addr().Interface().(DeserializedHook).OnDeserialized(ctx)
	}
}

func (h hookSet) onPostConstruct(v reflect.Value) error {
	if !h.postConstruct {
		return nil
	}
	return v.Addr().Interface().(PostConstructor).PostConstruct()
}
