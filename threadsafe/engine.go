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

// Package threadsafe provides a concurrency-safe wrapper around
// graphwire.Engine using sync.Pool.
package threadsafe

import (
	"sync"

	"github.com/corvidrt/graphwire"
)

// Engine pools forks of one graphwire.Engine. Every fork shares its Registry,
// so each concurrent call gets its own identity context over the same types.
type Engine struct {
	base *graphwire.Engine
	pool sync.Pool
}

// New creates a thread-safe Engine from the given options.
func New(opts ...graphwire.Option) (*Engine, error) {
	base, err := graphwire.New(opts...)
	if err != nil {
		return nil, err
	}
	return Wrap(base), nil
}

// Wrap pools forks of base. base itself is not used for operations.
func Wrap(base *graphwire.Engine) *Engine {
	e := &Engine{base: base}
	e.pool.New = func() any {
		return base.Fork()
	}
	return e
}

func (e *Engine) acquire() *graphwire.Engine {
	return e.pool.Get().(*graphwire.Engine)
}

func (e *Engine) release(inner *graphwire.Engine) {
	inner.Reset()
	e.pool.Put(inner)
}

// Registry returns the registry shared by all pooled engines.
func (e *Engine) Registry() *graphwire.Registry { return e.base.Registry() }

// ============================================================================
// Non-generic methods
// ============================================================================

// Serialize serializes a value using a pooled engine
func (e *Engine) Serialize(v any) ([]byte, error) {
	inner := e.acquire()
	defer e.release(inner)
	return inner.Serialize(v)
}

// Deserialize deserializes data using a pooled engine
func (e *Engine) Deserialize(data []byte) (any, error) {
	inner := e.acquire()
	defer e.release(inner)
	return inner.Deserialize(data)
}

// DeserializeInto deserializes data into the value ptr points to
func (e *Engine) DeserializeInto(data []byte, ptr any) error {
	inner := e.acquire()
	defer e.release(inner)
	return inner.DeserializeInto(data, ptr)
}

// Copy deep copies v using a pooled engine
func (e *Engine) Copy(v any) (any, error) {
	inner := e.acquire()
	defer e.release(inner)
	return inner.Copy(v)
}

// ============================================================================
// Generic package-level functions
// ============================================================================

// Serialize serializes a value with type T inferred, thread-safe
func Serialize[T any](e *Engine, value T) ([]byte, error) {
	inner := e.acquire()
	defer e.release(inner)
	return graphwire.Serialize(inner, value)
}

// Deserialize deserializes data to type T, thread-safe
func Deserialize[T any](e *Engine, data []byte) (T, error) {
	inner := e.acquire()
	defer e.release(inner)
	return graphwire.Deserialize[T](inner, data)
}

// Copy deep copies value, thread-safe
func Copy[T any](e *Engine, value T) (T, error) {
	inner := e.acquire()
	defer e.release(inner)
	return graphwire.Copy(inner, value)
}
