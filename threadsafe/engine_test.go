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

package threadsafe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/corvidrt/graphwire"
)

type job struct {
	ID    int
	Tags  []string
	Owner *owner
}

type owner struct {
	Name string
}

func TestConcurrentEngine(t *testing.T) {
	e, err := New(graphwire.WithMaxDepth(32))
	require.NoError(t, err)
	require.NoError(t, e.Registry().RegisterType(job{}))

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		i := i
		g.Go(func() error {
			o := &owner{Name: fmt.Sprint("w", i)}
			in := []*job{{ID: i, Tags: []string{"a"}, Owner: o}, {ID: -i, Owner: o}}
			for n := 0; n < 50; n++ {
				data, err := Serialize(e, in)
				if err != nil {
					return err
				}
				out, err := Deserialize[[]*job](e, data)
				if err != nil {
					return err
				}
				if out[0].Owner != out[1].Owner || out[0].ID != i || out[0].Owner.Name != o.Name {
					return fmt.Errorf("worker %d: got %+v", i, out[0])
				}
				cp, err := Copy(e, in)
				if err != nil {
					return err
				}
				if cp[0].Owner == o || cp[0].Owner != cp[1].Owner {
					return fmt.Errorf("worker %d: copy lost sharing", i)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestEngineMethods(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	data, err := e.Serialize(map[string]int{"a": 1})
	require.NoError(t, err)
	out, err := e.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"a": 1}, out)

	var m map[string]int
	require.NoError(t, e.DeserializeInto(data, &m))
	require.Equal(t, 1, m["a"])

	cp, err := e.Copy([]int{1, 2})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, cp)

	_, err = e.Deserialize([]byte{0xee})
	require.Error(t, err)
	// A pooled engine that failed is reset before reuse.
	out, err = e.Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"a": 1}, out)
}

func TestWrap(t *testing.T) {
	base, err := graphwire.New()
	require.NoError(t, err)
	e := Wrap(base)
	require.Same(t, base.Registry(), e.Registry())

	v, err := Copy(e, &owner{Name: "x"})
	require.NoError(t, err)
	require.Equal(t, "x", v.Name)
}
