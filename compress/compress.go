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

// Package compress frames serialized payloads with an optional compressor.
// A frame is one code byte followed by the compressed payload; code 0 means
// the payload is stored as is.
package compress

import (
	"errors"
	"fmt"
	"strings"
)

// Compressor codes written in the first byte of a frame.
const (
	CodeNone   byte = 0
	CodeGzip   byte = 1
	CodeLZ4    byte = 2
	CodeSnappy byte = 3
	CodeZstd   byte = 4
)

// ErrUnknownCode is returned for a frame whose code names no compressor.
var ErrUnknownCode = errors.New("compress: unknown compressor code")

// Compressor compresses whole payloads.
type Compressor interface {
	Code() byte
	Compress(data []byte) ([]byte, error)
	Uncompress(data []byte) ([]byte, error)
}

var (
	byCode = map[byte]Compressor{
		CodeGzip:   Gzip{},
		CodeLZ4:    LZ4{},
		CodeSnappy: Snappy{},
		CodeZstd:   Zstd{},
	}
	byName = map[string]Compressor{
		"gzip":   Gzip{},
		"lz4":    LZ4{},
		"snappy": Snappy{},
		"zstd":   Zstd{},
	}
)

// Lookup returns the compressor for a frame code.
func Lookup(code byte) (Compressor, bool) {
	c, ok := byCode[code]
	return c, ok
}

// ByName returns the compressor named in configuration. "" and "none"
// return nil.
func ByName(name string) (Compressor, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return nil, nil
	}
	c, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("compress: unknown compressor %q", name)
	}
	return c, nil
}

// Frame compresses data with c. A nil c stores data uncompressed.
func Frame(c Compressor, data []byte) ([]byte, error) {
	if c == nil {
		out := make([]byte, 0, len(data)+1)
		return append(append(out, CodeNone), data...), nil
	}
	compressed, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress: code %d: %w", c.Code(), err)
	}
	out := make([]byte, 0, len(compressed)+1)
	return append(append(out, c.Code()), compressed...), nil
}

// Unframe returns the payload of a frame, whichever compressor wrote it.
func Unframe(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, errors.New("compress: empty frame")
	}
	code, body := frame[0], frame[1:]
	if code == CodeNone {
		return body, nil
	}
	c, ok := Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	data, err := c.Uncompress(body)
	if err != nil {
		return nil, fmt.Errorf("compress: code %d: %w", code, err)
	}
	return data, nil
}
