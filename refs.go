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
	"unsafe"
)

// DefaultSustainedCapacity is the identity-table size above which reset
// reallocates instead of clearing.
const DefaultSustainedCapacity = 1024

// refKey identifies an object for the duration of one operation. The type is
// part of the key so a struct and its first field never collide, and the
// length so slices over the same array with different bounds stay distinct.
// Zero-capacity non-nil slices of one type all point at the runtime's
// zero-size base, so distinct ones read back as one shared empty slice.
type refKey struct {
	ptr  uintptr
	typ  reflect.Type
	size int
}

// identityOf returns the key of a tracked value, or false for values that are
// not tracked (value types, nil, empty strings).
func identityOf(v reflect.Value) (refKey, bool) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return refKey{}, false
		}
		return refKey{ptr: v.Pointer(), typ: v.Type()}, true
	case reflect.Slice:
		if v.IsNil() {
			return refKey{}, false
		}
		return refKey{ptr: v.Pointer(), typ: v.Type(), size: v.Len()}, true
	case reflect.String:
		s := v.String()
		if len(s) == 0 {
			return refKey{}, false
		}
		return refKey{ptr: uintptr(unsafe.Pointer(unsafe.StringData(s))), typ: v.Type(), size: len(s)}, true
	default:
		return refKey{}, false
	}
}

// ============================================================================
// RefWriter - object identity to stream offset, serialize side
// ============================================================================

// RefWriter correlates objects with the offset of the token that first wrote them.
type RefWriter struct {
	offsets   map[refKey]int32
	sustained int
}

// NewRefWriter creates an empty RefWriter.
func NewRefWriter(sustained int) *RefWriter {
	if sustained <= 0 {
		sustained = DefaultSustainedCapacity
	}
	return &RefWriter{offsets: make(map[refKey]int32), sustained: sustained}
}

// CheckObjectWhileSerializing returns the recorded offset of v, if any.
func (w *RefWriter) CheckObjectWhileSerializing(v reflect.Value) (int32, bool) {
	key, ok := identityOf(v)
	if !ok {
		return 0, false
	}
	off, ok := w.offsets[key]
	return off, ok
}

// RecordObject records v at offset. Values already recorded keep their first offset.
func (w *RefWriter) RecordObject(v reflect.Value, offset int) {
	key, ok := identityOf(v)
	if !ok {
		return
	}
	if _, exists := w.offsets[key]; !exists {
		w.offsets[key] = int32(offset)
	}
}

// Reset clears the table, reallocating it when it grew past the sustained capacity.
func (w *RefWriter) Reset() {
	if len(w.offsets) > w.sustained {
		w.offsets = make(map[refKey]int32)
		return
	}
	clear(w.offsets)
}

// ============================================================================
// RefReader - stream offset to constructed object, deserialize side
// ============================================================================

// RefReader is an offset table into an arena of constructed objects.
type RefReader struct {
	index     map[int32]int
	objects   []reflect.Value
	sustained int
}

// NewRefReader creates an empty RefReader.
func NewRefReader(sustained int) *RefReader {
	if sustained <= 0 {
		sustained = DefaultSustainedCapacity
	}
	return &RefReader{
		index:     make(map[int32]int),
		objects:   make([]reflect.Value, 0, 16),
		sustained: sustained,
	}
}

// RecordObject stores v as the object that begins at offset.
func (r *RefReader) RecordObject(v reflect.Value, offset int) {
	off := int32(offset)
	if _, exists := r.index[off]; exists {
		return
	}
	r.index[off] = len(r.objects)
	r.objects = append(r.objects, v)
}

func (r *RefReader) recorded(offset int) bool {
	_, ok := r.index[int32(offset)]
	return ok
}

// FetchReferencedObject returns the object recorded at offset.
func (r *RefReader) FetchReferencedObject(offset int32) (reflect.Value, bool) {
	i, ok := r.index[offset]
	if !ok {
		return reflect.Value{}, false
	}
	return r.objects[i], true
}

// Reset clears the table, reallocating it when it grew past the sustained capacity.
func (r *RefReader) Reset() {
	if len(r.objects) > r.sustained {
		r.index = make(map[int32]int)
		r.objects = make([]reflect.Value, 0, 16)
		return
	}
	clear(r.index)
	clear(r.objects)
	r.objects = r.objects[:0]
}
