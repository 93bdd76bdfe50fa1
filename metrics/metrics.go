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

// Package metrics exports engine counters to Prometheus. A nil *Collector
// is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Opts names the exported series.
type Opts struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
}

// Collector counts operations, payload sizes, escapes to keyed or fallback
// serializers, and exceptions read back as stand-ins. It implements
// prometheus.Collector.
type Collector struct {
	operations        *prometheus.CounterVec
	sizes             *prometheus.SummaryVec
	escapes           *prometheus.CounterVec
	unknownExceptions prometheus.Counter
}

// New creates a Collector. Register it with a prometheus.Registerer to
// export it.
func New(opts Opts) *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        "operations_total",
			Help:        "Serialize, deserialize and copy operations by result.",
			ConstLabels: opts.ConstLabels,
		}, []string{"op", "result"}),
		sizes: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        "payload_bytes",
			Help:        "Size of serialized payloads.",
			ConstLabels: opts.ConstLabels,
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"op"}),
		escapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        "escapes_total",
			Help:        "Values written through a keyed or the fallback serializer.",
			ConstLabels: opts.ConstLabels,
		}, []string{"path"}),
		unknownExceptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        "unknown_exceptions_total",
			Help:        "Exceptions whose type could not be resolved and were read as stand-ins.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
	c.sizes.Describe(ch)
	c.escapes.Describe(ch)
	c.unknownExceptions.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
	c.sizes.Collect(ch)
	c.escapes.Collect(ch)
	c.unknownExceptions.Collect(ch)
}

// ObserveOperation records one operation. size is ignored when err is set.
func (c *Collector) ObserveOperation(op string, size int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.operations.WithLabelValues(op, "error").Inc()
		return
	}
	c.operations.WithLabelValues(op, "ok").Inc()
	c.sizes.WithLabelValues(op).Observe(float64(size))
}

func (c *Collector) ObserveEscape(path string) {
	if c == nil {
		return
	}
	c.escapes.WithLabelValues(path).Inc()
}

func (c *Collector) ObserveUnknownException() {
	if c == nil {
		return
	}
	c.unknownExceptions.Inc()
}
