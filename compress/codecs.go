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

package compress

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Gzip is the gzip compressor.
type Gzip struct{}

func (Gzip) Code() byte { return CodeGzip }

func (Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	// Close flushes the footer; the output is incomplete without it.
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gzip) Uncompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// LZ4 is the lz4 block compressor. A block does not record its uncompressed
// size, so the body starts with it as a little-endian uint32, followed by a
// mode byte: 1 for a block, 0 for input stored as is when it does not shrink.
type LZ4 struct{}

const (
	lz4Stored byte = 0
	lz4Block  byte = 1
)

func (LZ4) Code() byte { return CodeLZ4 }

func (LZ4) Compress(data []byte) ([]byte, error) {
	// A block that does not fit in len(data) bytes is stored instead.
	buf := make([]byte, 5+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf[5:])
	if err != nil || n == 0 {
		buf[4] = lz4Stored
		copy(buf[5:], data)
		return buf, nil
	}
	buf[4] = lz4Block
	return buf[:5+n], nil
}

func (LZ4) Uncompress(data []byte) ([]byte, error) {
	if len(data) < 5 {
		return nil, errors.New("lz4: truncated block header")
	}
	size := int(binary.LittleEndian.Uint32(data))
	body := data[5:]
	switch data[4] {
	case lz4Stored:
		if len(body) != size {
			return nil, fmt.Errorf("lz4: stored %d bytes, expected %d", len(body), size)
		}
		return append([]byte(nil), body...), nil
	case lz4Block:
	default:
		return nil, fmt.Errorf("lz4: unknown block mode %d", data[4])
	}
	// A block expands at most 255 times.
	if size > 255*len(body)+16 {
		return nil, fmt.Errorf("lz4: declared size %d exceeds the block bound", size)
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("lz4: got %d bytes, expected %d", n, size)
	}
	return out, nil
}

// Snappy is the snappy block compressor.
type Snappy struct{}

func (Snappy) Code() byte { return CodeSnappy }

func (Snappy) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (Snappy) Uncompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

// Zstd is the zstd compressor. The encoder and decoder are created on first
// use and shared; both are safe for concurrent use.
type Zstd struct{}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

func (Zstd) Code() byte { return CodeZstd }

func (Zstd) Compress(data []byte) ([]byte, error) {
	enc, _, err := zstdCodecs()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, nil), nil
}

func (Zstd) Uncompress(data []byte) ([]byte, error) {
	_, dec, err := zstdCodecs()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(data, nil)
}
