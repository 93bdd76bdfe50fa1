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
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/corvidrt/graphwire/refl"
)

// ============================================================================
// Exception - the error base that crosses the wire with its context
// ============================================================================

// Exception carries the properties every serialized error keeps. Embed it in
// an error struct to have them restored on the other side; the struct's
// other fields travel as individually typed extras.
type Exception struct {
	Message    string
	StackTrace string
	Inner      error
	ResultCode int32
	Data       map[string]any
}

// NewException returns an Exception with the caller's stack captured.
func NewException(message string, inner error) *Exception {
	return &Exception{Message: message, StackTrace: captureStack(2), Inner: inner}
}

func (e *Exception) Error() string {
	if e.Inner != nil {
		return e.Message + ": " + e.Inner.Error()
	}
	return e.Message
}

func (e *Exception) Unwrap() error { return e.Inner }

func (e *Exception) exception() *Exception { return e }

// exceptionCarrier is implemented by *Exception and every type embedding it.
type exceptionCarrier interface {
	exception() *Exception
}

func captureStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		sb.WriteString(f.Function)
		sb.WriteString("\n\t")
		sb.WriteString(f.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(f.Line))
		sb.WriteByte('\n')
		if !more {
			break
		}
	}
	return sb.String()
}

// UnknownException stands in for an error whose type the reading side could
// not resolve. It keeps the type name, the base properties and every extra
// that could be read. Written again, it keeps the original type name.
type UnknownException struct {
	Exception
	TypeName string
	Fields   map[string]any
}

func (e *UnknownException) Error() string {
	return e.TypeName + ": " + e.Exception.Error()
}

var (
	exceptionType        = reflect.TypeOf(Exception{})
	exceptionCarrierType = reflect.TypeOf((*exceptionCarrier)(nil)).Elem()
	unknownExceptionType = reflect.TypeOf((*UnknownException)(nil))
)

// ============================================================================
// exceptionSerializer
// ============================================================================

type exceptionField struct {
	name  string
	index int
	type_ reflect.Type
}

// exceptionSerializer writes the type key and a length-prefixed payload:
// message, stack trace, inner error, result code, then field extras and
// data extras, each framed on its own so one that cannot be resolved can be
// skipped.
type exceptionSerializer struct {
	type_   reflect.Type
	carrier bool
	unknown bool
	// struct holding the extras; nil when the error is not a struct
	structType reflect.Type
	fields     []exceptionField
	byName     map[string]int
}

func newExceptionSerializer(r *Registry, t reflect.Type) *exceptionSerializer {
	s := &exceptionSerializer{
		type_:   t,
		carrier: t.Implements(exceptionCarrierType),
		unknown: t == unknownExceptionType,
		byName:  map[string]int{},
	}
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct || s.unknown {
		return s
	}
	s.structType = st
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if st == exceptionType || (sf.Anonymous && sf.Type == exceptionType) || sf.Tag.Get(TagName) == "-" {
			continue
		}
		if err := checkSupported(sf.Type); err != nil {
			r.logger.WithField("type", canonicalKey(t)).WithField("field", sf.Name).
				Debug("graphwire: exception field cannot cross the wire, left out")
			continue
		}
		s.fields = append(s.fields, exceptionField{name: sf.Name, index: i, type_: sf.Type})
	}
	sort.Slice(s.fields, func(i, j int) bool { return s.fields[i].name < s.fields[j].name })
	for i, f := range s.fields {
		s.byName[f.name] = i
	}
	return s
}

// Copy shares the error: errors are immutable once raised.
func (s *exceptionSerializer) Copy(_ *CopyContext, value reflect.Value) (reflect.Value, error) {
	return value, nil
}

func (s *exceptionSerializer) baseOf(v reflect.Value) *Exception {
	if !s.carrier {
		return nil
	}
	return v.Interface().(exceptionCarrier).exception()
}

type extra struct {
	name  string
	value reflect.Value
}

func (s *exceptionSerializer) fieldExtras(v reflect.Value) []extra {
	if s.unknown {
		u := v.Interface().(*UnknownException)
		names := make([]string, 0, len(u.Fields))
		for name := range u.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]extra, len(names))
		for i, name := range names {
			val := u.Fields[name]
			out[i] = extra{name: name, value: reflect.ValueOf(&val).Elem()}
		}
		return out
	}
	sv := v
	if sv.Kind() == reflect.Pointer {
		sv = sv.Elem()
	}
	if s.structType == nil {
		if u, ok := underlying(sv); ok {
			return []extra{{value: u}}
		}
		return nil
	}
	sv = refl.Addressable(sv)
	out := make([]extra, len(s.fields))
	for i, f := range s.fields {
		out[i] = extra{name: f.name, value: refl.Field(sv, f.index)}
	}
	return out
}

// underlying converts a value of a named basic type to its unnamed form, so
// an error type such as "type Code int" is not dispatched back to this codec.
func underlying(v reflect.Value) (reflect.Value, bool) {
	switch k := v.Kind(); {
	case k == reflect.String:
		return reflect.ValueOf(v.String()), true
	case k == reflect.Bool:
		return reflect.ValueOf(v.Bool()), true
	case k >= reflect.Int && k <= reflect.Int64:
		return reflect.ValueOf(v.Int()), true
	case k >= reflect.Uint && k <= reflect.Uint64:
		return reflect.ValueOf(v.Uint()), true
	case k == reflect.Float32 || k == reflect.Float64:
		return reflect.ValueOf(v.Float()), true
	}
	return reflect.Value{}, false
}

func (s *exceptionSerializer) Write(ctx *WriteContext, value reflect.Value) error {
	name := ctx.registry.TypeKey(s.type_)
	if s.unknown {
		name = value.Interface().(*UnknownException).TypeName
	}
	ctx.writer.WriteString(name)
	return ctx.writeNested(func(sub *WriteContext) error {
		return s.writePayload(sub, value)
	})
}

func (s *exceptionSerializer) writePayload(ctx *WriteContext, value reflect.Value) error {
	w := ctx.writer
	var (
		message string
		stack   string
		inner   error
		code    int32
		data    map[string]any
	)
	if base := s.baseOf(value); base != nil {
		message, stack, inner, code, data = base.Message, base.StackTrace, base.Inner, base.ResultCode, base.Data
	} else {
		err := value.Interface().(error)
		message, inner = err.Error(), errors.Unwrap(err)
	}
	w.WriteString(message)
	w.WriteString(stack)
	if err := ctx.WriteValue(reflect.ValueOf(&inner).Elem(), errorType); err != nil {
		return err
	}
	w.WriteInt32(code)

	extras := s.fieldExtras(value)
	w.WriteInt32(int32(len(extras)))
	for _, e := range extras {
		if err := ctx.writeExtra(e.name, e.value); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.WriteInt32(int32(len(keys)))
	for _, k := range keys {
		val := data[k]
		if err := ctx.writeExtra(k, reflect.ValueOf(&val).Elem()); err != nil {
			return err
		}
	}
	return nil
}

// writeExtra writes a name and a framed value typed on its own.
func (c *WriteContext) writeExtra(name string, v reflect.Value) error {
	c.writer.WriteString(name)
	return c.writeNested(func(sub *WriteContext) error {
		return sub.WriteValue(v, interfaceType)
	})
}

// Read is reached only for a payload written under an elided header, where
// the type key follows just the same.
func (s *exceptionSerializer) Read(ctx *ReadContext, target reflect.Value) error {
	v, err := ctx.readException(ctx.pending)
	if err != nil {
		return err
	}
	return assign(target, v, ctx.pending)
}

// readException reads the type key and payload of an exception whose value
// token sits at offset.
func (c *ReadContext) readException(offset int) (reflect.Value, error) {
	name := c.reader.ReadString()
	var s *exceptionSerializer
	t, err := c.registry.typeByKey(name)
	if err == nil {
		var info *typeInfo
		if info, err = c.registry.getTypeInfo(t); err == nil {
			if es, ok := info.Serializer.(*exceptionSerializer); ok && !es.unknown {
				s = es
			}
		}
	}
	if s == nil {
		c.registry.logger.WithField("type", name).WithError(err).Warn("graphwire: unknown exception type, using a stand-in")
		c.metrics.ObserveUnknownException()
		u := &UnknownException{TypeName: name}
		obj := reflect.ValueOf(u)
		c.refs.RecordObject(obj, offset)
		return obj, c.readNested(func(sub *ReadContext) error {
			return readUnknownPayload(sub, u)
		})
	}
	var obj reflect.Value
	if s.type_.Kind() == reflect.Pointer {
		obj = reflect.New(s.type_.Elem())
	} else {
		obj = reflect.New(s.type_).Elem()
	}
	c.refs.RecordObject(obj, offset)
	return obj, c.readNested(func(sub *ReadContext) error {
		return s.readPayload(sub, obj)
	})
}

func (s *exceptionSerializer) readPayload(ctx *ReadContext, obj reflect.Value) error {
	r := ctx.reader
	message := r.ReadString()
	stack := r.ReadString()
	var inner error
	if err := ctx.ReadValue(reflect.ValueOf(&inner).Elem()); err != nil {
		return err
	}
	code := r.ReadInt32()
	base := s.baseOf(obj)
	if base != nil {
		base.Message, base.StackTrace, base.Inner, base.ResultCode = message, stack, inner, code
	}

	n, err := ctx.readCount()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name := r.ReadString()
		v, ok, err := ctx.readExtra(name)
		if err != nil {
			return err
		}
		if ok {
			s.setField(ctx, obj, name, v)
		}
	}

	if n, err = ctx.readCount(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key := r.ReadString()
		v, ok, err := ctx.readExtra(key)
		if err != nil {
			return err
		}
		if !ok || base == nil {
			continue
		}
		if base.Data == nil {
			base.Data = make(map[string]any, n)
		}
		base.Data[key] = interfaceOf(v)
	}
	return nil
}

func (s *exceptionSerializer) setField(ctx *ReadContext, obj reflect.Value, name string, v reflect.Value) {
	sv := obj
	if sv.Kind() == reflect.Pointer {
		sv = sv.Elem()
	}
	var dst reflect.Value
	if s.structType == nil {
		if name != "" {
			return
		}
		dst = sv
	} else {
		i, ok := s.byName[name]
		if !ok {
			ctx.registry.logger.WithField("type", canonicalKey(s.type_)).WithField("field", name).
				Debug("graphwire: exception field no longer exists, skipped")
			return
		}
		dst = refl.Field(sv, s.fields[i].index)
	}
	switch {
	case !v.IsValid():
		dst.Set(reflect.Zero(dst.Type()))
	case v.Type().AssignableTo(dst.Type()):
		dst.Set(v)
	case s.structType == nil && v.Type().ConvertibleTo(dst.Type()):
		dst.Set(v.Convert(dst.Type()))
	default:
		ctx.registry.logger.WithField("type", canonicalKey(s.type_)).WithField("field", name).
			Debug("graphwire: exception field changed type, skipped")
	}
}

func readUnknownPayload(ctx *ReadContext, u *UnknownException) error {
	r := ctx.reader
	u.Message = r.ReadString()
	u.StackTrace = r.ReadString()
	if err := ctx.ReadValue(reflect.ValueOf(&u.Inner).Elem()); err != nil {
		return err
	}
	u.ResultCode = r.ReadInt32()
	for _, target := range []*map[string]any{&u.Fields, &u.Data} {
		n, err := ctx.readCount()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			name := r.ReadString()
			v, ok, err := ctx.readExtra(name)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if *target == nil {
				*target = make(map[string]any, n)
			}
			(*target)[name] = interfaceOf(v)
		}
	}
	return nil
}

func (c *ReadContext) readCount() (int, error) {
	offset := c.Position()
	n := int(c.reader.ReadInt32())
	if n < 0 || n > c.reader.Remaining() {
		return 0, malformedf(offset, "count %d with %d bytes remaining", n, c.reader.Remaining())
	}
	return n, nil
}

// readExtra reads one framed extra. An extra whose type cannot be resolved
// or handled here is skipped and reported with ok false.
func (c *ReadContext) readExtra(name string) (reflect.Value, bool, error) {
	var out any
	err := c.readNested(func(sub *ReadContext) error {
		return sub.ReadValue(reflect.ValueOf(&out).Elem())
	})
	if err != nil {
		if errors.Is(err, ErrUnresolvedType) || errors.Is(err, ErrUnsupportedType) {
			c.registry.logger.WithField("extra", name).WithError(err).Warn("graphwire: exception extra dropped")
			return reflect.Value{}, false, nil
		}
		return reflect.Value{}, false, err
	}
	return reflect.ValueOf(out), true, nil
}

func interfaceOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
