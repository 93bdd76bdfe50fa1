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

// Package graphwire serializes object graphs to a compact binary form and
// back. Shared and cyclic references survive the trip, interface-typed
// positions carry their concrete type, and errors travel as exceptions that
// degrade to a stand-in when the reader lacks their type.
package graphwire

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/corvidrt/graphwire/compress"
	"github.com/corvidrt/graphwire/serialize/cbor"
	"github.com/corvidrt/graphwire/serialize/proto"
)

// Operation names reported to metrics.
const (
	opSerialize   = "serialize"
	opDeserialize = "deserialize"
	opCopy        = "copy"
)

// ErrInvalidTarget is returned when a deserialize target is not a non-nil
// pointer.
var ErrInvalidTarget = errors.New("graphwire: target must be a non-nil pointer")

// ============================================================================
// Engine - Main serialization instance
// ============================================================================

// Engine serializes, deserializes and copies values.
// Note: Engine is NOT safe for concurrent use; it reuses its contexts between
// calls. Use Fork per goroutine or the threadsafe package.
type Engine struct {
	config   Config
	registry *Registry

	// Reusable contexts - avoid allocation on each call
	writeCtx *WriteContext
	readCtx  *ReadContext
	copyCtx  *CopyContext
}

// New creates an Engine. Without WithRegistry it gets its own Registry whose
// chains hold BinaryMarshalerSerializer (external), protobuf (keyed, key 2)
// and CBOR (fallback).
func New(opts ...Option) (*Engine, error) {
	e := &Engine{config: defaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	c := &e.config
	if c.Source == nil {
		c.Source = defaultPool
	}
	if c.SegmentSize <= 0 {
		c.SegmentSize = defaultConfig().SegmentSize
	}
	r := c.Registry
	if r == nil {
		r = NewRegistry(c.Logger)
		r.AddExternal(BinaryMarshalerSerializer{})
		if err := r.AddKeyed(proto.Serializer{}); err != nil {
			return nil, err
		}
		r.SetFallback(cbor.Default())
		c.Registry = r
	}
	if c.Logger == nil {
		c.Logger = r.Logger()
	}
	if len(c.External) > 0 {
		r.AddExternal(c.External...)
	}
	if len(c.Keyed) > 0 {
		if err := r.AddKeyed(c.Keyed...); err != nil {
			return nil, err
		}
	}
	if c.fallbackSet {
		r.SetFallback(c.Fallback)
	}
	for alias, key := range c.TypeAliases {
		r.RegisterAlias(alias, key)
	}
	e.registry = r
	e.initContexts()
	return e, nil
}

func (e *Engine) initContexts() {
	e.writeCtx = newWriteContext(e.registry, &e.config)
	e.readCtx = newReadContext(e.registry, &e.config)
	e.copyCtx = newCopyContext(e.registry, &e.config)
}

// Fork returns an Engine with the same configuration and Registry and its
// own contexts, for use on another goroutine.
func (e *Engine) Fork() *Engine {
	f := &Engine{config: e.config, registry: e.registry}
	f.initContexts()
	return f
}

// Registry returns the registry shared by this engine and its forks.
func (e *Engine) Registry() *Registry { return e.registry }

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config { return e.config }

// Reset drops the state left by the last operation.
func (e *Engine) Reset() {
	e.writeCtx.reset(nil)
	e.readCtx.reset(nil)
	e.copyCtx.reset()
}

// Register binds a routine triple to type_. A nil copier marks the type
// immutable.
func (e *Engine) Register(type_ any, copier CopyFunc, serializer WriteFunc, deserializer ReadFunc) error {
	return e.registry.Register(type_, copier, serializer, deserializer)
}

// RegisterSerializer binds s to type_.
func (e *Engine) RegisterSerializer(type_ any, s Serializer) error {
	return e.registry.RegisterSerializer(type_, s)
}

// RegisterType makes the name of type_ and the types it reaches resolvable.
func (e *Engine) RegisterType(type_ any) error {
	return e.registry.RegisterType(type_)
}

// RegisterName binds type_ to a wire key.
func (e *Engine) RegisterName(type_ any, key string) error {
	return e.registry.RegisterName(type_, key)
}

// RegisterGeneric adds a generic definition.
func (e *Engine) RegisterGeneric(def GenericDefinition) error {
	return e.registry.RegisterGeneric(def)
}

// ============================================================================
// Serialize
// ============================================================================

// Serialize returns the encoding of v, written for a position of type any so
// the reader learns the concrete type from the stream.
func (e *Engine) Serialize(v any) ([]byte, error) {
	return e.serialize(reflect.ValueOf(v), interfaceType)
}

func (e *Engine) serialize(v reflect.Value, expected reflect.Type) (data []byte, err error) {
	defer func() { e.config.Metrics.ObserveOperation(opSerialize, len(data), err) }()
	w := NewWriterSize(e.config.Source, e.config.SegmentSize)
	defer w.Release()
	if err := e.serializeTo(w, v, expected); err != nil {
		return nil, err
	}
	data = w.Bytes()
	if e.config.Compressor != nil {
		if data, err = compress.Frame(e.config.Compressor, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// SerializeTo appends the encoding of v to w, uncompressed. Offsets inside
// the encoding are relative to the cursor of w on entry.
func (e *Engine) SerializeTo(w *Writer, v any) error {
	return e.serializeTo(w, reflect.ValueOf(v), interfaceType)
}

func (e *Engine) serializeTo(w *Writer, v reflect.Value, expected reflect.Type) error {
	e.writeCtx.reset(w)
	defer e.writeCtx.reset(nil)
	return e.writeCtx.WriteValue(v, expected)
}

// ============================================================================
// Deserialize
// ============================================================================

// Deserialize decodes data written by Serialize.
func (e *Engine) Deserialize(data []byte) (any, error) {
	var out any
	if err := e.DeserializeInto(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeserializeInto decodes data into the value ptr points to. The concrete
// type in the stream must be assignable to it.
func (e *Engine) DeserializeInto(data []byte, ptr any) (err error) {
	defer func() { e.config.Metrics.ObserveOperation(opDeserialize, len(data), err) }()
	target, err := targetOf(ptr)
	if err != nil {
		return err
	}
	if data, err = e.unframe(data); err != nil {
		return err
	}
	return e.deserializeFrom(NewReader(data), target)
}

// DeserializeFrom decodes one value from r into the value ptr points to.
func (e *Engine) DeserializeFrom(r *Reader, ptr any) error {
	target, err := targetOf(ptr)
	if err != nil {
		return err
	}
	return e.deserializeFrom(r, target)
}

func (e *Engine) deserializeFrom(r *Reader, target reflect.Value) (err error) {
	e.readCtx.reset(r)
	defer e.readCtx.reset(nil)
	defer catchMalformed(&err)
	if err = e.readCtx.ReadValue(target); err != nil {
		e.config.Logger.WithError(err).Debug("graphwire: deserialize failed")
	}
	return err
}

func (e *Engine) unframe(data []byte) ([]byte, error) {
	if e.config.Compressor == nil {
		return data, nil
	}
	out, err := compress.Unframe(data)
	if err != nil {
		return nil, &MalformedStreamError{Reason: err.Error()}
	}
	return out, nil
}

func targetOf(ptr any) (reflect.Value, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w, got %T", ErrInvalidTarget, ptr)
	}
	return rv.Elem(), nil
}

// ============================================================================
// Copy
// ============================================================================

// Copy returns a deep copy of v. Shared and cyclic references in v are
// shared and cyclic in the copy; immutable values and exceptions are shared.
func (e *Engine) Copy(v any) (out any, err error) {
	cp, err := e.copy(reflect.ValueOf(v))
	if err != nil || !cp.IsValid() {
		return nil, err
	}
	return cp.Interface(), nil
}

func (e *Engine) copy(v reflect.Value) (cp reflect.Value, err error) {
	defer func() { e.config.Metrics.ObserveOperation(opCopy, 0, err) }()
	e.copyCtx.reset()
	defer e.copyCtx.reset()
	return e.copyCtx.CopyValue(v)
}

// ============================================================================
// Generic functions
// ============================================================================

// Serialize encodes value for a position of static type T. A value whose
// dynamic type is T gets an elided header.
func Serialize[T any](e *Engine, value T) ([]byte, error) {
	return e.serialize(reflect.ValueOf(&value).Elem(), reflect.TypeOf((*T)(nil)).Elem())
}

// Deserialize decodes data written by Serialize[T] or Engine.Serialize.
func Deserialize[T any](e *Engine, data []byte) (T, error) {
	var out T
	err := e.DeserializeInto(data, &out)
	return out, err
}

// Copy returns a deep copy of value.
func Copy[T any](e *Engine, value T) (T, error) {
	var out T
	cp, err := e.copy(reflect.ValueOf(&value).Elem())
	if err != nil || !cp.IsValid() {
		return out, err
	}
	reflect.ValueOf(&out).Elem().Set(cp)
	return out, nil
}
