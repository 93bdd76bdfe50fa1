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
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/corvidrt/graphwire/compress"
	"github.com/corvidrt/graphwire/metrics"
)

// ============================================================================
// Config
// ============================================================================

// Config holds the settings of an Engine. The yaml fields can be loaded with
// LoadConfig; the others are set through options.
type Config struct {
	// MaxDepth bounds value nesting; 0 disables the check.
	MaxDepth int `yaml:"max_depth"`
	// SustainedCapacity is the identity table size above which a reset
	// reallocates the table instead of clearing it.
	SustainedCapacity int `yaml:"sustained_capacity"`
	// SegmentSize is the size of the segments a Writer requests.
	SegmentSize int `yaml:"segment_size"`
	// Compression names the frame compressor: none, gzip, lz4, snappy, zstd.
	Compression string `yaml:"compression"`
	// TypeAliases maps wire aliases to canonical type keys.
	TypeAliases map[string]string `yaml:"type_aliases"`

	Source     BufferSource         `yaml:"-"`
	Logger     logrus.FieldLogger   `yaml:"-"`
	Metrics    *metrics.Collector   `yaml:"-"`
	Compressor compress.Compressor  `yaml:"-"`
	Registry   *Registry            `yaml:"-"`
	External   []ExternalSerializer `yaml:"-"`
	Keyed      []KeyedSerializer    `yaml:"-"`
	Fallback   FallbackSerializer   `yaml:"-"`

	fallbackSet bool
}

func defaultConfig() Config {
	return Config{
		MaxDepth:          100,
		SustainedCapacity: 1024,
		SegmentSize:       4096,
		Source:            defaultPool,
	}
}

// LoadConfig reads a YAML config. Unknown keys are an error; absent keys keep
// their defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	c := defaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("graphwire: parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case c.MaxDepth < 0:
		return fmt.Errorf("graphwire: max_depth %d is negative", c.MaxDepth)
	case c.SustainedCapacity < 0:
		return fmt.Errorf("graphwire: sustained_capacity %d is negative", c.SustainedCapacity)
	case c.SegmentSize < 0:
		return fmt.Errorf("graphwire: segment_size %d is negative", c.SegmentSize)
	}
	if _, err := compress.ByName(c.Compression); err != nil {
		return fmt.Errorf("graphwire: %w", err)
	}
	return nil
}

// Options converts the yaml fields to options.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []Option{
		WithMaxDepth(c.MaxDepth),
		WithSustainedCapacity(c.SustainedCapacity),
	}
	if c.SegmentSize > 0 {
		opts = append(opts, WithSegmentSize(c.SegmentSize))
	}
	comp, _ := compress.ByName(c.Compression)
	if comp != nil {
		opts = append(opts, WithCompressor(comp))
	}
	if len(c.TypeAliases) > 0 {
		opts = append(opts, WithTypeAliases(c.TypeAliases))
	}
	return opts, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.config.MaxDepth = depth
	}
}

// WithSustainedCapacity sets the identity table reset threshold.
func WithSustainedCapacity(n int) Option {
	return func(e *Engine) {
		e.config.SustainedCapacity = n
	}
}

// WithSegmentSize sets the writer segment size.
func WithSegmentSize(n int) Option {
	return func(e *Engine) {
		e.config.SegmentSize = n
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.config.Logger = logger
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.config.Metrics = c
	}
}

// WithCompressor frames every serialized payload with c. Readers accept any
// known compressor code once a compressor is set.
func WithCompressor(c compress.Compressor) Option {
	return func(e *Engine) {
		e.config.Compressor = c
	}
}

// WithBufferSource sets where writers get their segments.
func WithBufferSource(s BufferSource) Option {
	return func(e *Engine) {
		e.config.Source = s
	}
}

// WithRegistry shares r instead of creating a registry per engine. The
// chain options below then modify r.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.config.Registry = r
	}
}

// WithExternal appends serializers to the external chain.
func WithExternal(s ...ExternalSerializer) Option {
	return func(e *Engine) {
		e.config.External = append(e.config.External, s...)
	}
}

// WithKeyed appends serializers to the keyed chain.
func WithKeyed(s ...KeyedSerializer) Option {
	return func(e *Engine) {
		e.config.Keyed = append(e.config.Keyed, s...)
	}
}

// WithFallback replaces the fallback serializer; nil disables it.
func WithFallback(f FallbackSerializer) Option {
	return func(e *Engine) {
		e.config.Fallback = f
		e.config.fallbackSet = true
	}
}

// WithTypeAliases adds wire aliases, alias to canonical key.
func WithTypeAliases(aliases map[string]string) Option {
	return func(e *Engine) {
		if e.config.TypeAliases == nil {
			e.config.TypeAliases = make(map[string]string, len(aliases))
		}
		for alias, key := range aliases {
			e.config.TypeAliases[alias] = key
		}
	}
}
