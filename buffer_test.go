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
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// exactSource hands out segments of exactly the requested capacity.
type exactSource struct {
	gets int
	puts int
}

func (s *exactSource) Get(size int) []byte {
	s.gets++
	return make([]byte, 0, size)
}

func (s *exactSource) Put([]byte) { s.puts++ }

func readErr(fn func()) (err error) {
	defer catchMalformed(&err)
	fn()
	return nil
}

func TestWriterFixedWidth(t *testing.T) {
	w := NewWriter(nil)
	w.WriteInt8(-2)
	w.WriteInt16(-300)
	w.WriteInt32(-70000)
	w.WriteInt64(-1 << 40)
	w.WriteUint16(0xBEEF)
	w.WriteFloat32(1.5)
	w.WriteFloat64(-2.25)
	w.WriteBool(true)
	require.Equal(t, 1+2+4+8+2+4+8+1, w.Position())

	r := NewReader(w.Bytes())
	require.Equal(t, int8(-2), r.ReadInt8())
	require.Equal(t, int16(-300), r.ReadInt16())
	require.Equal(t, int32(-70000), r.ReadInt32())
	require.Equal(t, int64(-1<<40), r.ReadInt64())
	require.Equal(t, uint16(0xBEEF), r.ReadUint16())
	require.Equal(t, float32(1.5), r.ReadFloat32())
	require.Equal(t, -2.25, r.ReadFloat64())
	require.True(t, r.ReadBool())
	require.Zero(t, r.Remaining())
}

func TestWriterLittleEndian(t *testing.T) {
	w := NewWriter(nil)
	w.WriteInt32(0x01020304)
	require.Equal(t, []byte{4, 3, 2, 1}, w.Bytes())
}

func TestStringLengths(t *testing.T) {
	t.Run("nil writes -1", func(t *testing.T) {
		w := NewWriter(nil)
		w.WriteNullableString(nil)
		require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, w.Bytes())

		r := NewReader(w.Bytes())
		require.Nil(t, r.ReadNullableString())
	})
	t.Run("empty writes 0", func(t *testing.T) {
		w := NewWriter(nil)
		w.WriteString("")
		require.Equal(t, []byte{0, 0, 0, 0}, w.Bytes())

		s := NewReader(w.Bytes()).ReadNullableString()
		require.NotNil(t, s)
		require.Equal(t, "", *s)
	})
	t.Run("ReadString maps -1 to empty", func(t *testing.T) {
		w := NewWriter(nil)
		w.WriteNullableString(nil)
		require.Equal(t, "", NewReader(w.Bytes()).ReadString())
	})
	t.Run("utf8", func(t *testing.T) {
		w := NewWriter(nil)
		w.WriteString("héllo")
		require.Equal(t, 4+len("héllo"), w.Position())
		require.Equal(t, "héllo", NewReader(w.Bytes()).ReadString())
	})
	t.Run("length below -1", func(t *testing.T) {
		w := NewWriter(nil)
		w.WriteInt32(-2)
		err := readErr(func() { NewReader(w.Bytes()).ReadString() })
		require.ErrorIs(t, err, ErrMalformedStream)
	})
}

func TestReadPastEnd(t *testing.T) {
	w := NewWriter(nil)
	w.WriteInt32(7)
	r := NewReader(w.Bytes())
	require.Equal(t, int32(7), r.ReadInt32())

	err := readErr(func() { r.ReadUint8() })
	var malformed *MalformedStreamError
	require.True(t, errors.As(err, &malformed))
	require.Equal(t, 4, malformed.Offset)

	t.Run("declared length beyond input", func(t *testing.T) {
		w := NewWriter(nil)
		w.WriteString("abc")
		data := w.Bytes()
		err := readErr(func() { NewReader(data[:len(data)-1]).ReadString() })
		require.ErrorIs(t, err, ErrMalformedStream)
	})
	t.Run("other panics pass through", func(t *testing.T) {
		require.PanicsWithValue(t, "boom", func() {
			_ = readErr(func() { panic("boom") })
		})
	})
}

func TestWriterSegments(t *testing.T) {
	src := &exactSource{}
	w := NewWriterSize(src, 8)
	for i := int64(0); i < 5; i++ {
		w.WriteInt64(i)
	}
	w.WriteBytes(bytes.Repeat([]byte{0xAB}, 20))
	require.Equal(t, 60, w.Position())

	segs := w.Segments()
	require.Greater(t, len(segs), 1)
	total := 0
	for _, seg := range segs {
		total += len(seg)
	}
	require.Equal(t, 60, total)

	var out bytes.Buffer
	n, err := w.WriteTo(&out)
	require.NoError(t, err)
	require.EqualValues(t, 60, n)
	require.Equal(t, w.Bytes(), out.Bytes())

	r := NewSegmentReader(segs)
	for i := int64(0); i < 5; i++ {
		require.Equal(t, i, r.ReadInt64())
	}
	require.Equal(t, bytes.Repeat([]byte{0xAB}, 20), r.ReadBytes(20))

	w.Release()
	require.Zero(t, w.Position())
	require.Equal(t, src.gets, src.puts)
}

func TestReaderSegmentBoundaries(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	r := NewSegmentReader([][]byte{data[:3], nil, data[3:]})
	require.Equal(t, 8, r.Length())

	t.Run("fixed width across segments", func(t *testing.T) {
		require.Equal(t, uint16(0x0201), r.ReadUint16())
		require.Equal(t, uint32(0x06050403), r.ReadUint32())
	})
	t.Run("bytes inside a segment alias the input", func(t *testing.T) {
		b := r.ReadBytes(1)
		require.Equal(t, []byte{7}, b)
		b[0] = 70
		require.Equal(t, byte(70), data[6])
	})
	t.Run("skip", func(t *testing.T) {
		r.Skip(1)
		require.Zero(t, r.Remaining())
	})

	t.Run("bytes across segments are copied", func(t *testing.T) {
		r := NewSegmentReader([][]byte{{1, 2}, {3, 4}})
		b := r.ReadBytes(3)
		require.Equal(t, []byte{1, 2, 3}, b)
	})
}

func TestWriteFrom(t *testing.T) {
	src := &exactSource{}
	inner := NewWriterSize(src, 4)
	inner.WriteInt32(1)
	inner.WriteInt32(2)
	inner.WriteUint8(3)

	outer := NewWriter(nil)
	outer.WriteUint8(9)
	outer.WriteFrom(inner)
	require.Equal(t, []byte{9, 1, 0, 0, 0, 2, 0, 0, 0, 3}, outer.Bytes())
}

func TestPoolSizeClasses(t *testing.T) {
	p := NewPool()
	b := p.Get(300)
	require.Equal(t, 512, cap(b))
	require.Zero(t, len(b))
	p.Put(b)

	big := p.Get(1 << 20)
	require.GreaterOrEqual(t, cap(big), 1<<20)
}
