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

// Package proto is a keyed serializer for protobuf messages.
package proto

import (
	"errors"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Key is the key byte written before protobuf payloads.
const Key byte = 2

var (
	ErrNotMessage = errors.New("proto: value is not a proto.Message")

	messageType = reflect.TypeOf((*proto.Message)(nil)).Elem()
)

// Serializer encodes proto.Message values with the protobuf wire format.
type Serializer struct{}

func (Serializer) Key() byte { return Key }

// IsSupportedType accepts concrete message types, normally pointers to
// generated structs.
func (Serializer) IsSupportedType(t reflect.Type) bool {
	return t.Kind() != reflect.Interface && t.Implements(messageType)
}

func (Serializer) Encode(val any) ([]byte, error) {
	msg, ok := val.(proto.Message)
	if !ok {
		return nil, ErrNotMessage
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(msg)
}

func (Serializer) Decode(data []byte, val any) error {
	msg, ok := val.(proto.Message)
	if !ok {
		return ErrNotMessage
	}
	return proto.Unmarshal(data, msg)
}
