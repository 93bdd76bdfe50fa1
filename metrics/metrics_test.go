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

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New(Opts{Namespace: "test", ConstLabels: prometheus.Labels{"node": "a"}})
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	c.ObserveOperation("serialize", 10, nil)
	c.ObserveOperation("serialize", 30, nil)
	c.ObserveOperation("deserialize", 99, errors.New("boom"))
	c.ObserveEscape("keyed")
	c.ObserveEscape("keyed")
	c.ObserveEscape("fallback")
	c.ObserveUnknownException()

	require.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("serialize", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("deserialize", "error")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.escapes.WithLabelValues("keyed")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.unknownExceptions))

	// Failed operations record no size.
	require.Equal(t, 1, testutil.CollectAndCount(c.sizes))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.ElementsMatch(t, []string{
		"test_operations_total",
		"test_payload_bytes",
		"test_escapes_total",
		"test_unknown_exceptions_total",
	}, names)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.ObserveOperation("copy", 0, nil)
		c.ObserveEscape("keyed")
		c.ObserveUnknownException()
	})
}
