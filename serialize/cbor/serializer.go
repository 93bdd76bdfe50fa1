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

// Package cbor serializes values with CBOR (RFC 8949). New returns the
// serializer of last resort; NewKeyed serves an explicit set of types under
// a key byte.
package cbor

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Key is the key byte of serializers made by NewKeyed.
const Key byte = 3

// Serializer encodes values with core deterministic CBOR.
type Serializer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// New returns a Serializer. Decoding rejects duplicate map keys and bounds
// nesting so a hostile payload cannot exhaust the stack.
func New() (*Serializer, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor: encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 64,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor: decoder: %w", err)
	}
	return &Serializer{enc: enc, dec: dec}, nil
}

var (
	defaultOnce sync.Once
	defaultSer  *Serializer
)

// Default returns a shared Serializer built with New.
func Default() *Serializer {
	defaultOnce.Do(func() {
		s, err := New()
		if err != nil {
			panic(err)
		}
		defaultSer = s
	})
	return defaultSer
}

func (s *Serializer) Encode(val any) ([]byte, error) {
	return s.enc.Marshal(val)
}

// Decode expects val to be a non-nil pointer.
func (s *Serializer) Decode(data []byte, val any) error {
	return s.dec.Unmarshal(data, val)
}

// Keyed is a Serializer bound to a fixed set of types.
type Keyed struct {
	*Serializer
	types map[reflect.Type]struct{}
}

// NewKeyed returns a keyed CBOR serializer for the given types. Each
// argument is either a reflect.Type or a value of the type.
func NewKeyed(types ...any) (*Keyed, error) {
	s, err := New()
	if err != nil {
		return nil, err
	}
	k := &Keyed{Serializer: s, types: make(map[reflect.Type]struct{}, len(types))}
	for _, t := range types {
		rt, ok := t.(reflect.Type)
		if !ok {
			rt = reflect.TypeOf(t)
		}
		k.types[rt] = struct{}{}
	}
	return k, nil
}

func (k *Keyed) Key() byte { return Key }

func (k *Keyed) IsSupportedType(t reflect.Type) bool {
	_, ok := k.types[t]
	return ok
}
