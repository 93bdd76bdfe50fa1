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
	"testing"

	"github.com/stretchr/testify/require"
)

type quotaDetail struct {
	Region string
}

type quotaError struct {
	Exception
	Limit  int
	Owner  string
	Detail quotaDetail
}

type statusCode int

func (c statusCode) Error() string { return fmt.Sprintf("status %d", int(c)) }

func newQuotaError() *quotaError {
	e := &quotaError{
		Exception: *NewException("quota exceeded", errors.New("disk full")),
		Limit:     5,
		Owner:     "bob",
		Detail:    quotaDetail{Region: "eu"},
	}
	e.ResultCode = 429
	e.Data = map[string]any{"attempt": int64(3)}
	return e
}

func TestKnownException(t *testing.T) {
	e := newEngine(t)
	in := newQuotaError()
	data, err := Serialize[error](e, in)
	require.NoError(t, err)

	out, err := Deserialize[error](e, data)
	require.NoError(t, err)
	var got *quotaError
	require.True(t, errors.As(out, &got))
	require.Equal(t, "quota exceeded", got.Message)
	require.Equal(t, in.StackTrace, got.StackTrace)
	require.NotEmpty(t, got.StackTrace)
	require.EqualError(t, got.Inner, "disk full")
	require.Equal(t, int32(429), got.ResultCode)
	require.Equal(t, 5, got.Limit)
	require.Equal(t, "bob", got.Owner)
	require.Equal(t, quotaDetail{Region: "eu"}, got.Detail)
	require.Equal(t, map[string]any{"attempt": int64(3)}, got.Data)
}

func TestExceptionHeader(t *testing.T) {
	e := newEngine(t)
	data, err := e.Serialize(newQuotaError())
	require.NoError(t, err)
	require.Equal(t, []byte{TokenSpecifiedType, TokenException}, data[:2])

	t.Run("stored in a field of a concrete type", func(t *testing.T) {
		type holder struct{ Err *quotaError }
		in := holder{Err: newQuotaError()}
		out := roundTrip(t, e, in)
		require.Equal(t, in.Err.Limit, out.Err.Limit)
	})
}

func TestStandardErrors(t *testing.T) {
	e := newEngine(t)
	t.Run("errors.New", func(t *testing.T) {
		out := roundTrip[error](t, e, errors.New("boom"))
		require.EqualError(t, out, "boom")
	})
	t.Run("wrapped", func(t *testing.T) {
		inner := errors.New("root")
		out := roundTrip[error](t, e, fmt.Errorf("outer: %w", inner))
		require.EqualError(t, out, "outer: root")
		require.EqualError(t, errors.Unwrap(out), "root")
	})
	t.Run("named basic type", func(t *testing.T) {
		out := roundTrip[error](t, e, statusCode(404))
		require.Equal(t, statusCode(404), out)
	})
	t.Run("inner chain", func(t *testing.T) {
		in := NewException("top", NewException("middle", errors.New("bottom")))
		out := roundTrip[error](t, e, in)
		require.EqualError(t, out, "top: middle: bottom")
	})
}

func TestUnknownException(t *testing.T) {
	writer := newEngine(t)
	data, err := Serialize[error](writer, newQuotaError())
	require.NoError(t, err)

	reader := newEngine(t)
	out, err := Deserialize[error](reader, data)
	require.NoError(t, err)

	var unknown *UnknownException
	require.True(t, errors.As(out, &unknown))
	require.Equal(t, "*github.com/corvidrt/graphwire.quotaError", unknown.TypeName)
	require.Equal(t, "quota exceeded", unknown.Message)
	require.Equal(t, int32(429), unknown.ResultCode)
	require.EqualError(t, unknown.Inner, "disk full")
	require.Equal(t, map[string]any{"attempt": int64(3)}, unknown.Data)

	// Detail has a type the reader does not know and is dropped.
	require.Equal(t, map[string]any{"Limit": 5, "Owner": "bob"}, unknown.Fields)
	require.ErrorContains(t, unknown, "quota exceeded")

	t.Run("written again keeps the type name", func(t *testing.T) {
		again, err := Serialize[error](reader, out)
		require.NoError(t, err)
		back, err := Deserialize[error](writer, again)
		require.NoError(t, err)
		var got *quotaError
		require.True(t, errors.As(back, &got))
		require.Equal(t, 5, got.Limit)
		require.Equal(t, "bob", got.Owner)
		require.Equal(t, quotaDetail{}, got.Detail)
	})
	t.Run("into a concrete type", func(t *testing.T) {
		_, err := Deserialize[*quotaError](reader, data)
		require.ErrorIs(t, err, ErrUnresolvedType)
	})
}

func TestExceptionIdentity(t *testing.T) {
	e := newEngine(t)
	shared := errors.New("shared")
	in := []error{shared, NewException("wrapper", shared)}
	out := roundTrip(t, e, in)
	require.Same(t, out[0], errors.Unwrap(out[1]))
}
