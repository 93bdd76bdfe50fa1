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
	"net/netip"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	protobuf "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/corvidrt/graphwire/serialize/cbor"
	"github.com/corvidrt/graphwire/serialize/proto"
)

type ticket struct {
	ID int
}

type envelope struct {
	Seat   ticket
	Backup ticket
}

type cborKeyed struct {
	A string
	B []int
}

func TestKeyedProto(t *testing.T) {
	e := newEngine(t)
	msg := wrapperspb.String("hello")
	data, err := e.Serialize(msg)
	require.NoError(t, err)
	require.Equal(t, []byte{TokenKeyed, proto.Key}, data[:2])

	v, err := e.Deserialize(data)
	require.NoError(t, err)
	out, ok := v.(*wrapperspb.StringValue)
	require.True(t, ok)
	require.True(t, protobuf.Equal(msg, out))

	t.Run("shared message", func(t *testing.T) {
		out := roundTrip(t, e, []*wrapperspb.Int64Value{wrapperspb.Int64(1), nil})
		require.Equal(t, int64(1), out[0].GetValue())
		require.Nil(t, out[1])

		m := wrapperspb.Int64(7)
		out = roundTrip(t, e, []*wrapperspb.Int64Value{m, m})
		require.Same(t, out[0], out[1])
	})
	t.Run("unknown key", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[1] = 0x7F
		_, err := e.Deserialize(bad)
		require.ErrorIs(t, err, ErrMalformedStream)
	})
	t.Run("copy", func(t *testing.T) {
		cp, err := Copy(e, msg)
		require.NoError(t, err)
		require.NotSame(t, msg, cp)
		require.True(t, protobuf.Equal(msg, cp))
	})
}

func TestKeyedCBOR(t *testing.T) {
	keyed, err := cbor.NewKeyed(cborKeyed{})
	require.NoError(t, err)
	e := newEngine(t, WithKeyed(keyed))

	data, err := e.Serialize(cborKeyed{A: "a", B: []int{1, 2}})
	require.NoError(t, err)
	require.Equal(t, []byte{TokenKeyed, cbor.Key}, data[:2])

	v, err := e.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, cborKeyed{A: "a", B: []int{1, 2}}, v)

	t.Run("duplicate key", func(t *testing.T) {
		_, err := New(WithKeyed(proto.Serializer{}))
		require.ErrorIs(t, err, ErrKeyConflict)
	})
}

func TestExternalBinaryMarshaler(t *testing.T) {
	e := newEngine(t)
	addr := netip.MustParseAddr("192.0.2.1")
	require.Equal(t, addr, roundTrip(t, e, addr))

	prefixes := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	require.Equal(t, prefixes, roundTrip(t, e, prefixes))
}

func TestExternalChain(t *testing.T) {
	tokenType := reflect.TypeOf(ticket{})
	testCases := []struct {
		name    string
		mock    func(ctrl *gomock.Controller) ExternalSerializer
		value   envelope
		wantErr error
	}{
		{
			name: "selected once and cached",
			mock: func(ctrl *gomock.Controller) ExternalSerializer {
				m := NewMockExternalSerializer(ctrl)
				m.EXPECT().IsSupportedType(gomock.Any()).DoAndReturn(func(t reflect.Type) bool {
					return t == tokenType
				}).AnyTimes()
				m.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx *WriteContext, v reflect.Value) error {
					ctx.Writer().WriteInt64(int64(v.Field(0).Int()))
					return nil
				}).Times(2)
				m.EXPECT().Read(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx *ReadContext, target reflect.Value) error {
					target.Set(reflect.ValueOf(ticket{ID: int(ctx.Reader().ReadInt64())}))
					return nil
				}).Times(2)
				return m
			},
			value: envelope{Seat: ticket{ID: 1}, Backup: ticket{ID: 2}},
		},
		{
			name: "write error",
			mock: func(ctrl *gomock.Controller) ExternalSerializer {
				m := NewMockExternalSerializer(ctrl)
				m.EXPECT().IsSupportedType(gomock.Any()).DoAndReturn(func(t reflect.Type) bool {
					return t == tokenType
				}).AnyTimes()
				m.EXPECT().Write(gomock.Any(), gomock.Any()).Return(errors.New("refused"))
				return m
			},
			value:   envelope{Seat: ticket{ID: 1}},
			wantErr: errors.New("refused"),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			e := newEngine(t, WithExternal(tc.mock(ctrl)))
			data, err := Serialize(e, tc.value)
			if tc.wantErr != nil {
				require.EqualError(t, err, tc.wantErr.Error())
				return
			}
			require.NoError(t, err)
			out, err := Deserialize[envelope](e, data)
			require.NoError(t, err)
			require.Equal(t, tc.value, out)
		})
	}
}
