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
	"math/bits"
	"sync"
)

// BufferSource supplies the memory segments a Writer grows into.
type BufferSource interface {
	// Get returns an empty slice with capacity of at least size.
	Get(size int) []byte
	// Put hands a segment back once the Writer is done with it.
	Put(b []byte)
}

// Segment size classes: 256B, 512B, ... 64KiB. Larger requests bypass the pool.
const (
	minSegmentShift = 8
	maxSegmentShift = 16
	segmentClasses  = maxSegmentShift - minSegmentShift + 1
)

// Pool is a BufferSource backed by one sync.Pool per power-of-two size class.
type Pool struct {
	classes [segmentClasses]sync.Pool
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.classes {
		size := 1 << (minSegmentShift + i)
		p.classes[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

var defaultPool = NewPool()

func classOf(size int) int {
	if size <= 1<<minSegmentShift {
		return 0
	}
	return bits.Len(uint(size-1)) - minSegmentShift
}

// Get implements BufferSource.
func (p *Pool) Get(size int) []byte {
	if size > 1<<maxSegmentShift {
		return make([]byte, 0, size)
	}
	b := p.classes[classOf(size)].Get().(*[]byte)
	return (*b)[:0]
}

// Put implements BufferSource. Segments whose capacity is not a pool class are dropped.
func (p *Pool) Put(b []byte) {
	c := cap(b)
	if c < 1<<minSegmentShift || c > 1<<maxSegmentShift || c&(c-1) != 0 {
		return
	}
	b = b[:0]
	p.classes[classOf(c)].Put(&b)
}
