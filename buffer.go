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
	"encoding/binary"
	"io"
	"math"
	"unsafe"
)

// DefaultSegmentSize is the segment size a Writer requests when none is configured.
const DefaultSegmentSize = 4096

// ============================================================================
// Writer
// ============================================================================

// Writer is a forward-only little-endian writer over segments obtained from a
// BufferSource. Fixed-width values never straddle a segment boundary; byte
// ranges may.
type Writer struct {
	source      BufferSource
	segmentSize int
	segments    [][]byte
	buf         []byte
	committed   int
}

// NewWriter creates a Writer drawing segments from source, or from the
// package pool when source is nil.
func NewWriter(source BufferSource) *Writer {
	return NewWriterSize(source, DefaultSegmentSize)
}

// NewWriterSize is NewWriter with an explicit segment size.
func NewWriterSize(source BufferSource, segmentSize int) *Writer {
	if source == nil {
		source = defaultPool
	}
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	return &Writer{source: source, segmentSize: segmentSize}
}

// Position is the logical cursor across every segment written so far.
func (w *Writer) Position() int {
	return w.committed + len(w.buf)
}

// grow makes room for n contiguous bytes in the current segment.
func (w *Writer) grow(n int) {
	if cap(w.buf)-len(w.buf) >= n {
		return
	}
	if len(w.buf) > 0 {
		w.segments = append(w.segments, w.buf)
		w.committed += len(w.buf)
	} else if cap(w.buf) > 0 {
		w.source.Put(w.buf)
	}
	size := w.segmentSize
	if n > size {
		size = n
	}
	w.buf = w.source.Get(size)
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.grow(1)
	w.buf = append(w.buf, v)
}

// WriteToken writes a wire token.
func (w *Writer) WriteToken(t Token) { w.WriteUint8(t) }

// WriteInt8 writes one byte.
func (w *Writer) WriteInt8(v int8) { w.WriteUint8(uint8(v)) }

// WriteBool writes 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteUint16 writes v in 2 little-endian bytes.
func (w *Writer) WriteUint16(v uint16) {
	w.grow(2)
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteInt16 writes v in 2 little-endian bytes.
func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

// WriteUint32 writes v in 4 little-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	w.grow(4)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteInt32 writes v in 4 little-endian bytes.
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteUint64 writes v in 8 little-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	w.grow(8)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteInt64 writes v in 8 little-endian bytes.
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteFloat32 writes the IEEE 754 bits of v.
func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 writes the IEEE 754 bits of v.
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteBytes copies b into the stream with no length prefix. It is the block
// copy used for primitive arrays.
func (w *Writer) WriteBytes(b []byte) {
	for len(b) > 0 {
		if len(w.buf) == cap(w.buf) {
			w.grow(len(b))
		}
		n := copy(w.buf[len(w.buf):cap(w.buf)], b)
		w.buf = w.buf[:len(w.buf)+n]
		b = b[n:]
	}
}

// WriteBinary writes an int32 length followed by b.
func (w *Writer) WriteBinary(b []byte) {
	w.WriteInt32(int32(len(b)))
	w.WriteBytes(b)
}

// WriteString writes an int32 byte length followed by the UTF-8 bytes of s.
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	if len(s) > 0 {
		w.WriteBytes(unsafe.Slice(unsafe.StringData(s), len(s)))
	}
}

// WriteNullableString writes -1 for nil and behaves like WriteString otherwise.
func (w *Writer) WriteNullableString(s *string) {
	if s == nil {
		w.WriteInt32(-1)
		return
	}
	w.WriteString(*s)
}

// WriteFrom appends everything src has written.
func (w *Writer) WriteFrom(src *Writer) {
	for _, seg := range src.segments {
		w.WriteBytes(seg)
	}
	w.WriteBytes(src.buf)
}

// Segments returns views of the written segments. They stay valid until
// Release or Reset.
func (w *Writer) Segments() [][]byte {
	if len(w.buf) == 0 {
		return w.segments
	}
	return append(w.segments[:len(w.segments):len(w.segments)], w.buf)
}

// Bytes returns a contiguous copy of the written data.
func (w *Writer) Bytes() []byte {
	out := make([]byte, 0, w.Position())
	for _, seg := range w.segments {
		out = append(out, seg...)
	}
	return append(out, w.buf...)
}

// WriteTo implements io.WriterTo.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	var total int64
	for _, seg := range w.Segments() {
		n, err := dst.Write(seg)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Reset discards the written data, keeping the current segment for reuse.
func (w *Writer) Reset() {
	for _, seg := range w.segments {
		w.source.Put(seg)
	}
	w.segments = w.segments[:0]
	w.buf = w.buf[:0]
	w.committed = 0
}

// Release returns every segment to the source. The Writer is empty afterwards.
func (w *Writer) Release() {
	w.Reset()
	if cap(w.buf) > 0 {
		w.source.Put(w.buf)
	}
	w.buf = nil
}

// ============================================================================
// Reader
// ============================================================================

// Reader is a forward-only little-endian reader over one or more segments.
// Reading past the end panics with *MalformedStreamError; the engine recovers
// it into the returned error.
type Reader struct {
	segments [][]byte
	seg      int
	cur      []byte
	pos      int
	length   int
	scratch  [16]byte
}

// NewReader creates a Reader over a single contiguous buffer.
func NewReader(data []byte) *Reader {
	return NewSegmentReader([][]byte{data})
}

// NewSegmentReader creates a Reader over possibly discontiguous segments.
func NewSegmentReader(segments [][]byte) *Reader {
	r := &Reader{}
	r.Reset(segments)
	return r
}

// Reset points the reader at new input.
func (r *Reader) Reset(segments [][]byte) {
	r.segments = r.segments[:0]
	r.length = 0
	for _, seg := range segments {
		if len(seg) > 0 {
			r.segments = append(r.segments, seg)
			r.length += len(seg)
		}
	}
	r.seg, r.pos, r.cur = 0, 0, nil
	if len(r.segments) > 0 {
		r.cur = r.segments[0]
	}
}

// Position is the number of bytes consumed so far.
func (r *Reader) Position() int { return r.pos }

// Length is the total size of the input.
func (r *Reader) Length() int { return r.length }

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int { return r.length - r.pos }

func (r *Reader) need(n int) {
	if n < 0 || n > r.Remaining() {
		panic(malformedf(r.pos, "read of %d bytes with %d remaining", n, r.Remaining()))
	}
}

func (r *Reader) advance(n int) {
	r.cur = r.cur[n:]
	r.pos += n
	for len(r.cur) == 0 && r.seg+1 < len(r.segments) {
		r.seg++
		r.cur = r.segments[r.seg]
	}
}

func (r *Reader) copyOut(dst []byte) {
	for len(dst) > 0 {
		n := copy(dst, r.cur)
		dst = dst[n:]
		r.advance(n)
	}
}

// fixed returns n bytes, from the segment itself when possible.
func (r *Reader) fixed(n int) []byte {
	r.need(n)
	if len(r.cur) >= n {
		b := r.cur[:n]
		r.advance(n)
		return b
	}
	b := r.scratch[:n]
	r.copyOut(b)
	return b
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	return r.fixed(1)[0]
}

// ReadToken reads a wire token.
func (r *Reader) ReadToken() Token { return r.ReadUint8() }

// ReadInt8 reads one byte.
func (r *Reader) ReadInt8() int8 { return int8(r.ReadUint8()) }

// ReadBool reads a bool byte; anything but 0 or 1 is malformed.
func (r *Reader) ReadBool() bool {
	switch b := r.ReadUint8(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		panic(malformedf(r.pos-1, "invalid bool byte 0x%02x", b))
	}
}

// ReadUint16 reads 2 little-endian bytes.
func (r *Reader) ReadUint16() uint16 { return binary.LittleEndian.Uint16(r.fixed(2)) }

// ReadInt16 reads 2 little-endian bytes.
func (r *Reader) ReadInt16() int16 { return int16(r.ReadUint16()) }

// ReadUint32 reads 4 little-endian bytes.
func (r *Reader) ReadUint32() uint32 { return binary.LittleEndian.Uint32(r.fixed(4)) }

// ReadInt32 reads 4 little-endian bytes.
func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

// ReadUint64 reads 8 little-endian bytes.
func (r *Reader) ReadUint64() uint64 { return binary.LittleEndian.Uint64(r.fixed(8)) }

// ReadInt64 reads 8 little-endian bytes.
func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

// ReadFloat32 reads the IEEE 754 bits of a float32.
func (r *Reader) ReadFloat32() float32 { return math.Float32frombits(r.ReadUint32()) }

// ReadFloat64 reads the IEEE 754 bits of a float64.
func (r *Reader) ReadFloat64() float64 { return math.Float64frombits(r.ReadUint64()) }

// ReadBytes returns the next n bytes. When they lie inside one segment the
// result aliases the input; otherwise they are copied.
func (r *Reader) ReadBytes(n int) []byte {
	r.need(n)
	if len(r.cur) >= n {
		b := r.cur[:n:n]
		r.advance(n)
		return b
	}
	out := make([]byte, n)
	r.copyOut(out)
	return out
}

// ReadFull fills dst from the stream.
func (r *Reader) ReadFull(dst []byte) {
	r.need(len(dst))
	r.copyOut(dst)
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	r.need(n)
	for n > 0 {
		step := len(r.cur)
		if step > n {
			step = n
		}
		r.advance(step)
		n -= step
	}
}

// ReadLength reads an int32 length and checks it against the remaining input.
func (r *Reader) ReadLength() int {
	n := r.ReadInt32()
	if n < 0 || int(n) > r.Remaining() {
		panic(malformedf(r.pos-4, "length %d with %d bytes remaining", n, r.Remaining()))
	}
	return int(n)
}

// ReadBinary reads an int32 length and that many bytes. The result may alias
// the input.
func (r *Reader) ReadBinary() []byte {
	return r.ReadBytes(r.ReadLength())
}

// ReadString reads a length-prefixed string; a -1 length reads as "".
func (r *Reader) ReadString() string {
	s := r.ReadNullableString()
	if s == nil {
		return ""
	}
	return *s
}

// ReadNullableString returns nil for length -1 and a pointer to "" for length 0.
func (r *Reader) ReadNullableString() *string {
	n := r.ReadInt32()
	switch {
	case n == -1:
		return nil
	case n < -1:
		panic(malformedf(r.pos-4, "invalid string length %d", n))
	}
	s := string(r.ReadBytes(int(n)))
	return &s
}
