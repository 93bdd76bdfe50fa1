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

// Package refl holds the unsafe reflection helpers the codecs share.
package refl

import (
	"reflect"
	"unsafe"
)

// IsLittleEndian is true when the host stores integers little-endian, the
// wire byte order.
var IsLittleEndian = func() bool {
	var x uint16 = 0x0102
	return *(*byte)(unsafe.Pointer(&x)) == 0x02
}()

// Field returns field i of the addressable struct v. The result can be read
// and set even when the field is unexported.
func Field(v reflect.Value, i int) reflect.Value {
	f := v.Field(i)
	if f.CanSet() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

// Addressable returns v itself when it is addressable, otherwise an
// addressable copy.
func Addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

// SliceBytes views the backing memory of slice s as bytes.
func SliceBytes(s reflect.Value) []byte {
	n := s.Len() * int(s.Type().Elem().Size())
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(s.UnsafePointer()), n)
}

// ArrayBytes views the memory of the addressable array a as bytes.
func ArrayBytes(a reflect.Value) []byte {
	n := int(a.Type().Size())
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(a.UnsafeAddr())), n)
}
