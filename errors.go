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
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrMalformedStream is matched by every *MalformedStreamError.
	ErrMalformedStream = errors.New("graphwire: malformed stream")
	// ErrUnsupportedType is matched by every *UnsupportedTypeError.
	ErrUnsupportedType = errors.New("graphwire: unsupported type")
	// ErrUnresolvedType is matched by every *UnresolvedTypeError.
	ErrUnresolvedType = errors.New("graphwire: unresolved type")
	// ErrMaxDepthExceeded indicates nesting deeper than Config.MaxDepth.
	ErrMaxDepthExceeded = errors.New("graphwire: max depth exceeded")
	// ErrKeyConflict indicates a type key already bound to another type.
	ErrKeyConflict = errors.New("graphwire: type key already registered")
)

// MalformedStreamError reports input that does not follow the wire format.
// It is fatal to the operation that raised it.
type MalformedStreamError struct {
	Offset int
	Reason string
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("graphwire: malformed stream at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedStreamError) Is(target error) bool {
	return target == ErrMalformedStream
}

func malformedf(offset int, format string, args ...any) *MalformedStreamError {
	return &MalformedStreamError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedTypeError names a type no registry entry, chain member,
// synthesizer or fallback could handle.
type UnsupportedTypeError struct {
	Type   reflect.Type
	Reason string
	Err    error
}

func (e *UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("graphwire: unsupported type %v", e.Type)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

func (e *UnsupportedTypeError) Unwrap() error { return e.Err }

// UnresolvedTypeError reports a type key the local registry does not know.
type UnresolvedTypeError struct {
	Key string
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("graphwire: unresolved type %q", e.Key)
}

func (e *UnresolvedTypeError) Is(target error) bool {
	return target == ErrUnresolvedType
}

// catchMalformed converts a reader panic into the returned error.
// Any other panic is re-raised.
func catchMalformed(err *error) {
	if r := recover(); r != nil {
		me, ok := r.(*MalformedStreamError)
		if !ok {
			panic(r)
		}
		*err = me
	}
}
