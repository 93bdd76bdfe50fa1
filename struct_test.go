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
	"testing"

	"github.com/stretchr/testify/require"
)

type account struct {
	Owner   string
	Balance int64
	events  []string `graphwire:"-"`
	derived int64    `graphwire:"-"`
}

func (a *account) OnSerializing(*WriteContext) { a.events = append(a.events, "serializing") }

func (a *account) OnSerialized(*WriteContext) { a.events = append(a.events, "serialized") }

func (a *account) OnDeserializing(*ReadContext) { a.events = append(a.events, "deserializing") }

func (a *account) OnDeserialized(*ReadContext) {
	a.events = append(a.events, "deserialized")
	a.derived = a.Balance * 100
}

func (a *account) PostConstruct() error {
	a.events = append(a.events, "constructed")
	if a.Balance < 0 {
		return errors.New("negative balance")
	}
	return nil
}

type withFunc struct {
	Name string
	F    func()
}

type withChan struct {
	C map[string][]chan int
}

type legacy struct {
	Name string
	Hook func() `cbor:"-"`
}

func TestStructHooks(t *testing.T) {
	e := newEngine(t)
	in := &account{Owner: "ann", Balance: 12}
	data, err := e.Serialize(in)
	require.NoError(t, err)
	require.Equal(t, []string{"serializing", "serialized"}, in.events)

	v, err := e.Deserialize(data)
	require.NoError(t, err)
	out := v.(*account)
	require.Equal(t, "ann", out.Owner)
	require.Equal(t, int64(1200), out.derived)
	require.Equal(t, []string{"deserializing", "deserialized", "constructed"}, out.events)

	t.Run("post construct error", func(t *testing.T) {
		data, err := e.Serialize(&account{Owner: "bob", Balance: -1})
		require.NoError(t, err)
		_, err = e.Deserialize(data)
		require.EqualError(t, err, "negative balance")
	})
}

func TestLayoutFingerprint(t *testing.T) {
	e := newEngine(t)
	data, err := Serialize(e, point{1, 2})
	require.NoError(t, err)
	require.Equal(t, TokenExpectedType, data[0])

	s, err := newStructSerializer(e.Registry(), reflect.TypeOf((*point)(nil)).Elem())
	require.NoError(t, err)
	require.NotZero(t, s.hash)

	data[1] ^= 0xFF
	_, err = Deserialize[point](e, data)
	require.ErrorIs(t, err, ErrMalformedStream)
	require.ErrorContains(t, err, "fingerprint")
}

func TestFieldOrder(t *testing.T) {
	type b struct{ Z, A, m int8 }
	s, err := newStructSerializer(NewRegistry(nil), reflect.TypeOf((*b)(nil)).Elem())
	require.NoError(t, err)
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	require.Equal(t, []string{"A", "Z", "m"}, names)

	e := newEngine(t)
	data, err := Serialize(e, b{Z: 1, A: 2, m: 3})
	require.NoError(t, err)
	// token, fingerprint, then A Z m as raw bytes
	require.Equal(t, []byte{2, 1, 3}, data[5:])
}

func TestUnsupportedType(t *testing.T) {
	e := newEngine(t, WithFallback(nil))
	t.Run("func field", func(t *testing.T) {
		_, err := e.Serialize(withFunc{Name: "x"})
		require.ErrorIs(t, err, ErrUnsupportedType)
		require.ErrorContains(t, err, "withFunc")
	})
	t.Run("chan nested in containers", func(t *testing.T) {
		_, err := e.Serialize(&withChan{})
		require.ErrorIs(t, err, ErrUnsupportedType)
		require.ErrorContains(t, err, "withChan")
	})
	t.Run("bare func", func(t *testing.T) {
		_, err := e.Serialize(func() {})
		require.ErrorIs(t, err, ErrUnsupportedType)
	})
	t.Run("skipped field", func(t *testing.T) {
		type tagged struct {
			Name string
			F    func() `graphwire:"-"`
		}
		out := roundTrip(t, e, tagged{Name: "ok", F: func() {}})
		require.Equal(t, "ok", out.Name)
		require.Nil(t, out.F)
	})
}

func TestFallback(t *testing.T) {
	e := newEngine(t)
	data, err := e.Serialize(legacy{Name: "old", Hook: func() {}})
	require.NoError(t, err)
	require.Equal(t, TokenFallback, data[0])

	v, err := e.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, legacy{Name: "old"}, v)

	t.Run("behind a pointer", func(t *testing.T) {
		l := &legacy{Name: "shared"}
		out := roundTrip(t, e, []*legacy{l, l})
		require.Equal(t, "shared", out[0].Name)
		require.Same(t, out[0], out[1])
	})
	t.Run("reader without fallback", func(t *testing.T) {
		_, err := newEngine(t, WithFallback(nil)).Deserialize(data)
		require.ErrorIs(t, err, ErrMalformedStream)
	})
}

type celsius float64

type reading struct {
	Temp  celsius
	Where string
}

func TestRegisteredPrimitiveKind(t *testing.T) {
	e := newEngine(t)
	before, err := Serialize(e, reading{Temp: 1, Where: "hall"})
	require.NoError(t, err)

	writes, reads := 0, 0
	require.NoError(t, e.Register(celsius(0), nil,
		func(ctx *WriteContext, v reflect.Value) error {
			writes++
			ctx.Writer().WriteFloat64(v.Float() * 10)
			return nil
		},
		func(ctx *ReadContext, target reflect.Value) error {
			reads++
			target.SetFloat(ctx.Reader().ReadFloat64() / 10)
			return nil
		},
	))

	cases := []struct {
		name  string
		check func(t *testing.T)
		calls int
	}{
		{"top level", func(t *testing.T) {
			require.Equal(t, celsius(1), roundTrip(t, e, celsius(1)))
		}, 1},
		{"struct field", func(t *testing.T) {
			require.Equal(t, reading{Temp: 2, Where: "lab"}, roundTrip(t, e, reading{Temp: 2, Where: "lab"}))
		}, 1},
		{"slice", func(t *testing.T) {
			require.Equal(t, []celsius{1, 2}, roundTrip(t, e, []celsius{1, 2}))
		}, 2},
		{"array", func(t *testing.T) {
			require.Equal(t, [2][2]celsius{{1, 2}, {3, 4}}, roundTrip(t, e, [2][2]celsius{{1, 2}, {3, 4}}))
		}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writes, reads = 0, 0
			tc.check(t)
			require.Equal(t, tc.calls, writes)
			require.Equal(t, tc.calls, reads)
		})
	}

	t.Run("layout written before registration", func(t *testing.T) {
		_, err := Deserialize[reading](e, before)
		require.ErrorContains(t, err, "fingerprint")
	})
}
