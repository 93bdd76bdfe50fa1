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
	"time"

	"github.com/google/uuid"
)

// Token is the single tagged byte that opens every value-carrying position
// and every node of a type descriptor.
type Token = byte

// Value-position tokens
const (
	// TokenNull is a nil value; nothing follows.
	TokenNull Token = iota
	// TokenReference is a back-reference; an int32 stream offset follows.
	TokenReference
	// TokenExpectedType means the value has exactly the statically expected type.
	TokenExpectedType
	// TokenSpecifiedType introduces a type descriptor ahead of the payload.
	TokenSpecifiedType
	// TokenObject is a bare struct{} value; nothing follows.
	TokenObject
	// TokenFallback escapes to the fallback serializer.
	TokenFallback
	// TokenKeyed escapes to a keyed serializer; its key byte follows.
	TokenKeyed
)

// Type descriptor tokens
const (
	TokenBool Token = 0x10 + iota
	TokenInt8
	TokenInt16
	TokenInt32
	TokenInt64
	TokenInt
	TokenUint8
	TokenUint16
	TokenUint32
	TokenUint64
	TokenUint
	TokenFloat32
	TokenFloat64
	TokenComplex64
	TokenComplex128
	TokenString
	TokenAny
	TokenError
	TokenEmptyStruct
	TokenTime
	TokenDuration
	TokenUUID
)

// Type constructor tokens
const (
	// TokenSlice is a one-dimensional array: element descriptor follows.
	TokenSlice Token = 0x40 + iota
	// TokenArray is a fixed rank-k array: rank byte, k int32 lengths, element descriptor.
	TokenArray
	// TokenPointer is a reference to its single type argument.
	TokenPointer
	// TokenMap is a dictionary: key and value descriptors.
	TokenMap
	// TokenSet is map[K]struct{}: key descriptor.
	TokenSet
	// TokenGeneric is a registered generic definition: name, arity byte, arguments.
	TokenGeneric
	// TokenNamed carries a Type Key string.
	TokenNamed
	// TokenException hands the value to the exception codec; the type name is in the payload.
	TokenException
)

var (
	interfaceType   = reflect.TypeOf((*any)(nil)).Elem()
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	emptyStructType = reflect.TypeOf(struct{}{})
	timeType        = reflect.TypeOf(time.Time{})
	durationType    = reflect.TypeOf(time.Duration(0))
	uuidType        = reflect.TypeOf(uuid.UUID{})

	// exceptionMarkerType stands for TokenException until the payload names the real type.
	exceptionMarkerType = reflect.TypeOf((*exceptionMarker)(nil))
)

type exceptionMarker struct{}

var builtinTypes = map[Token]reflect.Type{
	TokenBool:        reflect.TypeOf(false),
	TokenInt8:        reflect.TypeOf(int8(0)),
	TokenInt16:       reflect.TypeOf(int16(0)),
	TokenInt32:       reflect.TypeOf(int32(0)),
	TokenInt64:       reflect.TypeOf(int64(0)),
	TokenInt:         reflect.TypeOf(0),
	TokenUint8:       reflect.TypeOf(uint8(0)),
	TokenUint16:      reflect.TypeOf(uint16(0)),
	TokenUint32:      reflect.TypeOf(uint32(0)),
	TokenUint64:      reflect.TypeOf(uint64(0)),
	TokenUint:        reflect.TypeOf(uint(0)),
	TokenFloat32:     reflect.TypeOf(float32(0)),
	TokenFloat64:     reflect.TypeOf(float64(0)),
	TokenComplex64:   reflect.TypeOf(complex64(0)),
	TokenComplex128:  reflect.TypeOf(complex128(0)),
	TokenString:      reflect.TypeOf(""),
	TokenAny:         interfaceType,
	TokenError:       errorType,
	TokenEmptyStruct: emptyStructType,
	TokenTime:        timeType,
	TokenDuration:    durationType,
	TokenUUID:        uuidType,
}

var builtinTokens = func() map[reflect.Type]Token {
	m := make(map[reflect.Type]Token, len(builtinTypes))
	for tok, t := range builtinTypes {
		m[t] = tok
	}
	return m
}()

// primitiveSize is the wire width of a fixed-width kind, 0 for anything else.
func primitiveSize(kind reflect.Kind) int {
	switch kind {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint,
		reflect.Float64, reflect.Complex64:
		return 8
	case reflect.Complex128:
		return 16
	default:
		return 0
	}
}

func isIntegerKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return true
	default:
		return false
	}
}

// isUnsupportedKind reports kinds with no meaning outside the process.
func isUnsupportedKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Uintptr, reflect.Invalid:
		return true
	default:
		return false
	}
}

// isTrackedKind reports kinds whose values take part in identity tracking.
func isTrackedKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.String:
		return true
	default:
		return false
	}
}

// isNil reports whether v is the zero value of a nilable kind.
func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
