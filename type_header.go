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

// writeTypeHeader writes TokenExpectedType when actual is the expected type,
// otherwise TokenSpecifiedType and the descriptor of actual.
func (c *WriteContext) writeTypeHeader(actual, expected reflect.Type) error {
	if actual == expected {
		c.writer.WriteToken(TokenExpectedType)
		return nil
	}
	c.writer.WriteToken(TokenSpecifiedType)
	return c.writeTypeDescriptor(actual)
}

// arrayShape collects the lengths of nested unnamed fixed arrays and the
// innermost element type.
func arrayShape(t reflect.Type) ([]int, reflect.Type) {
	dims := []int{t.Len()}
	elem := t.Elem()
	for elem.Kind() == reflect.Array && elem.Name() == "" {
		dims = append(dims, elem.Len())
		elem = elem.Elem()
	}
	return dims, elem
}

func (c *WriteContext) writeTypeDescriptor(t reflect.Type) error {
	w := c.writer
	if tok, ok := builtinTokens[t]; ok {
		w.WriteToken(tok)
		return nil
	}
	if t.Name() == "" {
		switch t.Kind() {
		case reflect.Pointer:
			w.WriteToken(TokenPointer)
			return c.writeTypeDescriptor(t.Elem())
		case reflect.Slice:
			w.WriteToken(TokenSlice)
			return c.writeTypeDescriptor(t.Elem())
		case reflect.Array:
			dims, elem := arrayShape(t)
			w.WriteToken(TokenArray)
			w.WriteUint8(uint8(len(dims)))
			for _, d := range dims {
				w.WriteInt32(int32(d))
			}
			return c.writeTypeDescriptor(elem)
		case reflect.Map:
			if t.Elem() == emptyStructType {
				w.WriteToken(TokenSet)
				return c.writeTypeDescriptor(t.Key())
			}
			w.WriteToken(TokenMap)
			if err := c.writeTypeDescriptor(t.Key()); err != nil {
				return err
			}
			return c.writeTypeDescriptor(t.Elem())
		}
		return &UnsupportedTypeError{Type: t, Reason: "unnamed type has no wire descriptor"}
	}
	for _, def := range c.registry.chains.Load().generics {
		if !def.Match(t) {
			continue
		}
		args := def.Arguments(t)
		c.registry.instances.LoadOrStore(instanceKey(def, args), t)
		w.WriteToken(TokenGeneric)
		w.WriteString(def.Name)
		w.WriteUint8(uint8(len(args)))
		for _, a := range args {
			if err := c.writeTypeDescriptor(a); err != nil {
				return err
			}
		}
		return nil
	}
	key := canonicalKey(t)
	if _, ok := c.registry.types.Load(key); !ok {
		c.registry.types.LoadOrStore(key, t)
	}
	w.WriteToken(TokenNamed)
	w.WriteString(c.registry.TypeKey(t))
	return nil
}

// readTypeDescriptor reads the descriptor following TokenSpecifiedType. It
// returns exceptionMarkerType for TokenException.
func (c *ReadContext) readTypeDescriptor() (reflect.Type, error) {
	offset := c.Position()
	tok := c.reader.ReadToken()
	if t, ok := builtinTypes[tok]; ok {
		return t, nil
	}
	switch tok {
	case TokenPointer:
		elem, err := c.readTypeArgument()
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case TokenSlice:
		elem, err := c.readTypeArgument()
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case TokenArray:
		return c.readArrayDescriptor(offset)
	case TokenMap:
		key, err := c.readTypeArgument()
		if err != nil {
			return nil, err
		}
		elem, err := c.readTypeArgument()
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, malformedf(offset, "map key type %v is not comparable", key)
		}
		return reflect.MapOf(key, elem), nil
	case TokenSet:
		key, err := c.readTypeArgument()
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, malformedf(offset, "set element type %v is not comparable", key)
		}
		return reflect.MapOf(key, emptyStructType), nil
	case TokenGeneric:
		name := c.reader.ReadString()
		arity := int(c.reader.ReadUint8())
		args := make([]reflect.Type, arity)
		for i := range args {
			a, err := c.readTypeArgument()
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		return c.registry.instance(name, args)
	case TokenNamed:
		return c.registry.typeByKey(c.reader.ReadString())
	case TokenException:
		return exceptionMarkerType, nil
	}
	return nil, malformedf(offset, "unexpected token 0x%02x in type header", tok)
}

func (c *ReadContext) readTypeArgument() (reflect.Type, error) {
	offset := c.Position()
	t, err := c.readTypeDescriptor()
	if err != nil {
		return nil, err
	}
	if t == exceptionMarkerType {
		return nil, malformedf(offset, "exception token used as a type argument")
	}
	return t, nil
}

func (c *ReadContext) readArrayDescriptor(offset int) (reflect.Type, error) {
	rank := int(c.reader.ReadUint8())
	if rank == 0 {
		return nil, malformedf(offset, "array of rank 0")
	}
	dims := make([]int, rank)
	total := 1
	for i := range dims {
		d := int(c.reader.ReadInt32())
		if d < 0 {
			return nil, malformedf(offset, "negative array length %d", d)
		}
		dims[i] = d
		if d > 0 && total > c.reader.Remaining()/d {
			return nil, malformedf(offset, "array shape %v exceeds the remaining input", dims[:i+1])
		}
		total *= d
	}
	elem, err := c.readTypeArgument()
	if err != nil {
		return nil, err
	}
	// Every element takes at least one byte on the wire.
	if total > c.reader.Remaining() {
		return nil, malformedf(offset, "array shape %v exceeds the remaining input", dims)
	}
	t := elem
	for i := rank - 1; i >= 0; i-- {
		t = reflect.ArrayOf(dims[i], t)
	}
	return t, nil
}
