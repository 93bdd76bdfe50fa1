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

	"github.com/corvidrt/graphwire/optional"
)

type tree struct {
	Label    string
	Children []*tree
	Parent   *tree
	Attrs    map[string][]int
	Maybe    optional.Optional[[]byte]
	Grid     [2][2]*point
}

func TestCopyDeep(t *testing.T) {
	e := newEngine(t)
	shared := &point{1, 2}
	root := &tree{Label: "root", Attrs: map[string][]int{"a": {1, 2}}, Maybe: optional.Some([]byte("x"))}
	child := &tree{Label: "child", Parent: root}
	root.Children = []*tree{child, child}
	root.Grid = [2][2]*point{{shared, nil}, {nil, shared}}

	cp, err := Copy(e, root)
	require.NoError(t, err)
	require.NotSame(t, root, cp)
	require.Equal(t, "root", cp.Label)

	require.Same(t, cp.Children[0], cp.Children[1])
	require.Same(t, cp, cp.Children[0].Parent)
	require.NotSame(t, child, cp.Children[0])

	require.Same(t, cp.Grid[0][0], cp.Grid[1][1])
	require.NotSame(t, shared, cp.Grid[0][0])

	cp.Attrs["a"][0] = 9
	require.Equal(t, 1, root.Attrs["a"][0])

	v, _ := cp.Maybe.Get()
	v[0] = 'y'
	require.Equal(t, []byte("x"), root.Maybe.Value)
}

func TestCopyShares(t *testing.T) {
	e := newEngine(t)
	t.Run("immutable values", func(t *testing.T) {
		out, err := e.Copy("text")
		require.NoError(t, err)
		require.Equal(t, "text", out)
	})
	t.Run("exceptions", func(t *testing.T) {
		err := errors.New("kept")
		out, cerr := Copy[error](e, err)
		require.NoError(t, cerr)
		require.Same(t, err, out)
	})
	t.Run("registered immutable", func(t *testing.T) {
		e.Registry().RegisterImmutable(&point{})
		p := &point{1, 2}
		out, err := Copy(e, p)
		require.NoError(t, err)
		require.Same(t, p, out)
	})
	t.Run("nil", func(t *testing.T) {
		out, err := e.Copy(nil)
		require.NoError(t, err)
		require.Nil(t, out)
	})
}

func TestCopyRegistered(t *testing.T) {
	e := newEngine(t)
	type counter struct{ N int }
	calls := 0
	err := e.Register(counter{},
		func(ctx *CopyContext, v reflect.Value) (reflect.Value, error) {
			calls++
			return reflect.ValueOf(counter{N: int(v.Field(0).Int()) + 1}), nil
		},
		func(ctx *WriteContext, v reflect.Value) error {
			ctx.Writer().WriteInt64(v.Field(0).Int())
			return nil
		},
		func(ctx *ReadContext, target reflect.Value) error {
			target.Field(0).SetInt(ctx.Reader().ReadInt64())
			return nil
		},
	)
	require.NoError(t, err)

	out, err := Copy(e, []counter{{N: 1}})
	require.NoError(t, err)
	require.Equal(t, []counter{{N: 2}}, out)
	require.Equal(t, 1, calls)

	require.Equal(t, counter{N: 5}, roundTrip(t, e, counter{N: 5}))
}
