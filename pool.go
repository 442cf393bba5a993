// pool.go: Scratch buffer pooling for decoded ciphertexts and derivation input.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"sync"
)

const (
	smallBufferSize = 64       // key || short label
	largeBufferSize = 4 * 1024 // typical encrypted note
)

var (
	smallBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, smallBufferSize)
			return &buf
		},
	}

	largeBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, largeBufferSize)
			return &buf
		},
	}
)

// getBuffer returns a buffer of length size. Buffers that fit a pool class
// come from the pool; larger ones are allocated directly.
func getBuffer(size int) *[]byte {
	switch {
	case size <= smallBufferSize:
		buf := smallBufferPool.Get().(*[]byte)
		*buf = (*buf)[:size]
		return buf
	case size <= largeBufferSize:
		buf := largeBufferPool.Get().(*[]byte)
		*buf = (*buf)[:size]
		return buf
	default:
		buf := make([]byte, size)
		return &buf
	}
}

// putBuffer zeroes the whole backing array and returns it to its pool.
// Every buffer is cleared: they hold key material and plaintext.
func putBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	full := (*buf)[:cap(*buf)]
	clearBuffer(full)

	switch cap(full) {
	case smallBufferSize:
		smallBufferPool.Put(buf)
	case largeBufferSize:
		largeBufferPool.Put(buf)
	}
}

// clearBuffer zeroes buf. Small buffers use a plain loop, larger ones an
// unrolled loop over 8-byte strides.
func clearBuffer(buf []byte) {
	if len(buf) <= 64 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}

	i := 0
	for i < len(buf)-7 {
		buf[i] = 0
		buf[i+1] = 0
		buf[i+2] = 0
		buf[i+3] = 0
		buf[i+4] = 0
		buf[i+5] = 0
		buf[i+6] = 0
		buf[i+7] = 0
		i += 8
	}
	for i < len(buf) {
		buf[i] = 0
		i++
	}
}
