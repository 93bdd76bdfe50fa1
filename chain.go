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
	"encoding"
	"fmt"
	"reflect"

	"github.com/corvidrt/graphwire/refl"
)

// codec is what keyed and fallback serializers have in common.
type codec interface {
	Encode(val any) ([]byte, error)
	Decode(data []byte, val any) error
}

// escapeSerializer is the entry of a type served by a keyed or the fallback
// serializer. The dispatcher writes these values itself; the entry only
// copies.
type escapeSerializer struct {
	codec codec
}

func (s escapeSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	data, err := s.codec.Encode(value.Interface())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("graphwire: copy %v: %w", value.Type(), err)
	}
	return decodeEscaped(s.codec, value.Type(), data)
}

func (s escapeSerializer) Write(_ *WriteContext, value reflect.Value) error {
	return &UnsupportedTypeError{Type: value.Type(), Reason: fmt.Sprintf("%T writes only through its escape token", s.codec)}
}

func (s escapeSerializer) Read(_ *ReadContext, target reflect.Value) error {
	return &UnsupportedTypeError{Type: target.Type(), Reason: fmt.Sprintf("%T reads only through its escape token", s.codec)}
}

// decodeEscaped decodes data into a new value of type t. Pointer types are
// decoded into a fresh pointee so codecs that need a message receiver get one.
func decodeEscaped(c codec, t reflect.Type, data []byte) (reflect.Value, error) {
	var v reflect.Value
	var dst any
	if t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem())
		dst = v.Interface()
	} else {
		p := reflect.New(t)
		dst = p.Interface()
		v = p.Elem()
	}
	if err := c.Decode(data, dst); err != nil {
		return reflect.Value{}, fmt.Errorf("graphwire: decode %v: %w", t, err)
	}
	return v, nil
}

// writeEscape writes a keyed or fallback value: the escape token (and key),
// the type descriptor and the length-prefixed payload.
func (c *WriteContext) writeEscape(info *typeInfo, value reflect.Value) error {
	s := info.Serializer.(escapeSerializer)
	data, err := s.codec.Encode(value.Interface())
	if err != nil {
		return fmt.Errorf("graphwire: encode %v: %w", info.Type, err)
	}
	if info.mode == modeKeyed {
		c.writer.WriteToken(TokenKeyed)
		c.writer.WriteUint8(info.keyed.Key())
	} else {
		c.writer.WriteToken(TokenFallback)
	}
	if err := c.writeTypeDescriptor(info.Type); err != nil {
		return err
	}
	c.writer.WriteBinary(data)
	c.metrics.ObserveEscape(info.path)
	return nil
}

func (c *ReadContext) readKeyed(target reflect.Value, offset int) error {
	key := c.reader.ReadUint8()
	k, ok := c.registry.keyedByKey(key)
	if !ok {
		return malformedf(offset, "no keyed serializer with key %d", key)
	}
	return c.readEscaped(target, k, offset)
}

func (c *ReadContext) readFallback(target reflect.Value, offset int) error {
	f := c.registry.fallback()
	if f == nil {
		return malformedf(offset, "fallback payload without a fallback serializer")
	}
	return c.readEscaped(target, f, offset)
}

func (c *ReadContext) readEscaped(target reflect.Value, k codec, offset int) error {
	t, err := c.readTypeArgument()
	if err != nil {
		return err
	}
	data := c.reader.ReadBinary()
	v, err := decodeEscaped(k, t, data)
	if err != nil {
		return err
	}
	c.refs.RecordObject(v, offset)
	return assign(target, v, offset)
}

// ============================================================================
// BinaryMarshalerSerializer - default external serializer
// ============================================================================

var (
	binaryMarshalerType   = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	binaryUnmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
)

// BinaryMarshalerSerializer serves types that marshal themselves through
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler. The payload is
// length-prefixed.
type BinaryMarshalerSerializer struct{}

// IsSupportedType accepts T when T or *T marshals and *T (or T for a pointer)
// unmarshals.
func (BinaryMarshalerSerializer) IsSupportedType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return t.Implements(binaryMarshalerType) && t.Implements(binaryUnmarshalerType)
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(binaryMarshalerType) && pt.Implements(binaryUnmarshalerType)
}

func marshalBinary(value reflect.Value) ([]byte, error) {
	if value.Type().Implements(binaryMarshalerType) {
		return value.Interface().(encoding.BinaryMarshaler).MarshalBinary()
	}
	return refl.Addressable(value).Addr().Interface().(encoding.BinaryMarshaler).MarshalBinary()
}

// unmarshalBinary returns a new value of t holding data.
func unmarshalBinary(t reflect.Type, data []byte) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		return p, p.Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(data)
	}
	p := reflect.New(t)
	return p.Elem(), p.Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(data)
}

func (BinaryMarshalerSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	data, err := marshalBinary(value)
	if err != nil {
		return reflect.Value{}, err
	}
	return unmarshalBinary(value.Type(), data)
}

func (BinaryMarshalerSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	data, err := marshalBinary(value)
	if err != nil {
		return fmt.Errorf("graphwire: marshal %v: %w", value.Type(), err)
	}
	ctx.writer.WriteBinary(data)
	return nil
}

func (BinaryMarshalerSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	t := target.Type()
	// Unmarshalers may keep data, which can alias the input.
	data := append([]byte(nil), ctx.reader.ReadBinary()...)
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		ctx.RecordObject(p)
		target.Set(p)
		return p.Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(data)
	}
	return target.Addr().Interface().(encoding.BinaryUnmarshaler).UnmarshalBinary(data)
}
