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
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/corvidrt/graphwire/refl"
	"github.com/spaolacci/murmur3"
)

// TagName is the struct tag key the synthesizer reads. A field tagged
// `graphwire:"-"` is skipped.
const TagName = "graphwire"

type fieldInfo struct {
	name    string
	index   int
	type_   reflect.Type
	raw     bool // fixed-width primitive written without a value token
	trivial bool // copied by assignment
}

// structSerializer is the serializer synthesized for a struct type with no
// registration. Fields, exported or not, are visited in name order; the
// payload starts with a fingerprint of that layout.
type structSerializer struct {
	type_  reflect.Type
	fields []*fieldInfo
	hash   int32
	hooks  hookSet
}

func newStructSerializer(r *Registry, t reflect.Type) (*structSerializer, error) {
	s := &structSerializer{type_: t, hooks: hooksOf(t)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Tag.Get(TagName) == "-" {
			continue
		}
		if err := checkSupported(sf.Type); err != nil {
			return nil, &UnsupportedTypeError{Type: t, Reason: "field " + sf.Name, Err: err}
		}
		s.fields = append(s.fields, &fieldInfo{
			name:    sf.Name,
			index:   i,
			type_:   sf.Type,
			raw:     r.isRawPrimitive(sf.Type),
			trivial: r.isShallowCopyable(sf.Type),
		})
	}
	sort.Slice(s.fields, func(i, j int) bool {
		return s.fields[i].name < s.fields[j].name
	})
	s.hash = s.computeHash()
	return s, nil
}

// checkSupported rejects kinds that cannot cross the wire, looking through
// composite element types. Nested structs are checked when they are used.
func checkSupported(t reflect.Type) error {
	for {
		if isUnsupportedKind(t.Kind()) {
			return &UnsupportedTypeError{Type: t, Reason: "kind " + t.Kind().String() + " cannot cross the wire"}
		}
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		case reflect.Map:
			if err := checkSupported(t.Key()); err != nil {
				return err
			}
			t = t.Elem()
		default:
			return nil
		}
	}
}

// computeHash fingerprints the field layout: names and type keys in wire
// order.
func (s *structSerializer) computeHash() int32 {
	var sb strings.Builder
	for _, f := range s.fields {
		sb.WriteString(f.name)
		sb.WriteString(",")
		sb.WriteString(canonicalKey(f.type_))
		if f.raw {
			sb.WriteString(",raw")
		}
		sb.WriteString(";")
	}
	h1, _ := murmur3.Sum128WithSeed([]byte(sb.String()), 47)
	hash := int32(h1 & 0xFFFFFFFF)
	if hash == 0 {
		hash = 1
	}
	return hash
}

func (s *structSerializer) Copy(ctx *CopyContext, value reflect.Value) (reflect.Value, error) {
	src := refl.Addressable(value)
	out := reflect.New(s.type_).Elem()
	for _, f := range s.fields {
		sf := refl.Field(src, f.index)
		df := refl.Field(out, f.index)
		if f.trivial {
			df.Set(sf)
			continue
		}
		cp, err := ctx.CopyValue(sf)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%v.%s: %w", s.type_, f.name, err)
		}
		setCopy(df, cp)
	}
	return out, nil
}

func (s *structSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	v := refl.Addressable(value)
	s.hooks.onSerializing(v, ctx)
	ctx.writer.WriteInt32(s.hash)
	for _, f := range s.fields {
		fv := refl.Field(v, f.index)
		if f.raw {
			writePrimitive(ctx.writer, f.type_.Kind(), fv)
			continue
		}
		if err := ctx.WriteValue(fv, f.type_); err != nil {
			return err
		}
	}
	s.hooks.onSerialized(v, ctx)
	return nil
}

func (s *structSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	offset := ctx.Position()
	s.hooks.onDeserializing(target, ctx)
	if hash := ctx.reader.ReadInt32(); hash != s.hash {
		return malformedf(offset, "layout fingerprint %d does not match %d of %v", hash, s.hash, s.type_)
	}
	for _, f := range s.fields {
		fv := refl.Field(target, f.index)
		if f.raw {
			readPrimitive(ctx.reader, f.type_.Kind(), fv)
			continue
		}
		if err := ctx.ReadValue(fv); err != nil {
			return err
		}
	}
	s.hooks.onDeserialized(target, ctx)
	return s.hooks.onPostConstruct(target)
}
