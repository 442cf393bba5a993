// export.go: Chunked authenticated encryption for data exports.
//
// An export can be far larger than a field, so it is sealed in chunks instead
// of one hex pair. Stream layout:
//
//	header: "KWX1" | 8-byte random nonce prefix | uint32 chunk size
//	chunk:  1-byte final flag | uint32 ciphertext length | ciphertext+tag
//
// Integers are big endian. Chunk i uses nonce prefix || uint32(i) and the
// header plus its final flag as associated data, so reordered, dropped,
// truncated or re-headed streams fail to authenticate.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	goerrors "github.com/agilira/go-errors"
)

// DefaultChunkSize is the plaintext size of each export chunk (64 KiB).
const DefaultChunkSize = 64 * 1024

// MaxChunkSize bounds the chunk size a reader accepts from a header.
const MaxChunkSize = 4 * 1024 * 1024

const (
	exportMagic       = "KWX1"
	exportPrefixSize  = 8
	exportHeaderSize  = len(exportMagic) + exportPrefixSize + 4
	exportChunkHeader = 1 + 4

	flagMore  byte = 0
	flagFinal byte = 1
)

type exportWriter struct {
	w         io.Writer
	aead      cipher.AEAD
	header    []byte
	buf       []byte
	chunkSize int
	counter   uint32
	closed    bool
	err       error
}

// NewExportWriter returns a writer that seals everything written to it under
// key and writes the stream to w. Close must be called: it writes the final
// chunk, without which the export does not authenticate.
func NewExportWriter(w io.Writer, key Key) (io.WriteCloser, error) {
	return NewExportWriterWithChunkSize(w, key, DefaultChunkSize)
}

// NewExportWriterWithChunkSize is NewExportWriter with a custom chunk size.
func NewExportWriterWithChunkSize(w io.Writer, key Key, chunkSize int) (io.WriteCloser, error) {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return nil, withCode(ErrStream, goerrors.New(ErrCodeStream, fmt.Sprintf("chunk size must be between 1 and %d", MaxChunkSize)))
	}
	aead, err := newAEAD(&key)
	if err != nil {
		return nil, err
	}

	header := make([]byte, exportHeaderSize)
	copy(header, exportMagic)
	if err := readRandom(header[len(exportMagic) : len(exportMagic)+exportPrefixSize]); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(header[len(exportMagic)+exportPrefixSize:], uint32(chunkSize)) // #nosec G115 -- bounded above

	if _, err := w.Write(header); err != nil {
		return nil, withCode(ErrStream, goerrors.Wrap(err, ErrCodeStream, "failed to write export header"))
	}

	return &exportWriter{
		w:         w,
		aead:      aead,
		header:    header,
		buf:       make([]byte, 0, chunkSize),
		chunkSize: chunkSize,
	}, nil
}

// Write buffers p and seals every full chunk except the last one, which is
// held back so Close can mark it final.
func (e *exportWriter) Write(p []byte) (int, error) {
	if e.closed {
		return 0, withCode(ErrStream, goerrors.New(ErrCodeStream, "write to closed export writer"))
	}
	if e.err != nil {
		return 0, e.err
	}

	written := 0
	for len(p) > 0 {
		if len(e.buf) == e.chunkSize {
			if err := e.flush(flagMore); err != nil {
				e.err = err
				return written, err
			}
		}
		n := min(e.chunkSize-len(e.buf), len(p))
		e.buf = append(e.buf, p[:n]...)
		p = p[n:]
		written += n
	}
	return written, nil
}

// Close seals the buffered data as the final chunk. An empty export still
// gets an empty final chunk.
func (e *exportWriter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.err != nil {
		return e.err
	}
	err := e.flush(flagFinal)
	clearBuffer(e.buf[:cap(e.buf)])
	return err
}

func (e *exportWriter) flush(flag byte) error {
	if e.counter == math.MaxUint32 {
		return withCode(ErrStream, goerrors.New(ErrCodeStream, "export chunk counter overflow"))
	}

	nonce := exportNonce(e.header, e.counter)
	sealed := e.aead.Seal(nil, nonce[:], e.buf, exportAAD(e.header, flag)) // #nosec G407 -- unique prefix per stream plus counter

	frame := make([]byte, exportChunkHeader)
	frame[0] = flag
	binary.BigEndian.PutUint32(frame[1:], uint32(len(sealed))) // #nosec G115 -- at most MaxChunkSize+TagSize

	if _, err := e.w.Write(frame); err != nil {
		return withCode(ErrStream, goerrors.Wrap(err, ErrCodeStream, "failed to write chunk header"))
	}
	if _, err := e.w.Write(sealed); err != nil {
		return withCode(ErrStream, goerrors.Wrap(err, ErrCodeStream, "failed to write chunk"))
	}

	e.counter++
	clearBuffer(e.buf)
	e.buf = e.buf[:0]
	return nil
}

type exportReader struct {
	r         io.Reader
	aead      cipher.AEAD
	header    []byte
	chunkSize int
	counter   uint32
	pending   []byte
	done      bool
	err       error
}

// NewExportReader reads and checks the header from r and returns a reader
// yielding the decrypted export. Any authentication failure surfaces as
// ErrDecrypt; a stream that ends before its final chunk is also ErrDecrypt.
func NewExportReader(r io.Reader, key Key) (io.Reader, error) {
	aead, err := newAEAD(&key)
	if err != nil {
		return nil, err
	}

	header := make([]byte, exportHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, withCode(ErrMalformedCiphertext, goerrors.Wrap(err, ErrCodeStream, "failed to read export header"))
	}
	if string(header[:len(exportMagic)]) != exportMagic {
		return nil, withCode(ErrMalformedCiphertext, goerrors.New(ErrCodeStream, "not a keyward export"))
	}
	chunkSize := int(binary.BigEndian.Uint32(header[len(exportMagic)+exportPrefixSize:]))
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return nil, withCode(ErrMalformedCiphertext, goerrors.New(ErrCodeStream, "invalid chunk size in export header"))
	}

	return &exportReader{
		r:         r,
		aead:      aead,
		header:    header,
		chunkSize: chunkSize,
	}, nil
}

func (d *exportReader) Read(p []byte) (int, error) {
	for len(d.pending) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		if d.done {
			return 0, io.EOF
		}
		if err := d.next(); err != nil {
			d.err = err
			return 0, err
		}
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *exportReader) next() error {
	frame := make([]byte, exportChunkHeader)
	if _, err := io.ReadFull(d.r, frame); err != nil {
		if errors.Is(err, io.EOF) {
			return withCode(ErrDecrypt, goerrors.New(ErrCodeDecrypt, "export ended before its final chunk"))
		}
		return withCode(ErrMalformedCiphertext, goerrors.Wrap(err, ErrCodeStream, "failed to read chunk header"))
	}

	flag := frame[0]
	if flag != flagMore && flag != flagFinal {
		return withCode(ErrMalformedCiphertext, goerrors.New(ErrCodeStream, "invalid chunk flag"))
	}
	size := int(binary.BigEndian.Uint32(frame[1:]))
	if size < TagSize || size > d.chunkSize+TagSize {
		return withCode(ErrMalformedCiphertext, goerrors.New(ErrCodeStream, "invalid chunk length"))
	}

	sealed := make([]byte, size)
	if _, err := io.ReadFull(d.r, sealed); err != nil {
		return withCode(ErrDecrypt, goerrors.New(ErrCodeDecrypt, "export ended inside a chunk"))
	}

	if d.counter == math.MaxUint32 {
		return withCode(ErrStream, goerrors.New(ErrCodeStream, "export chunk counter overflow"))
	}
	nonce := exportNonce(d.header, d.counter)
	plaintext, err := d.aead.Open(sealed[:0], nonce[:], sealed, exportAAD(d.header, flag))
	if err != nil {
		return errAuthFailed()
	}
	d.counter++

	if flag == flagFinal {
		// Trailing bytes after the final chunk mean the stream was tampered with.
		var extra [1]byte
		n, err := io.ReadFull(d.r, extra[:])
		if n > 0 {
			return withCode(ErrDecrypt, goerrors.New(ErrCodeDecrypt, "data after final chunk"))
		}
		if !errors.Is(err, io.EOF) {
			return withCode(ErrStream, goerrors.Wrap(err, ErrCodeStream, "failed to read past final chunk"))
		}
		d.done = true
	}
	d.pending = plaintext
	return nil
}

func exportNonce(header []byte, counter uint32) Nonce {
	var n Nonce
	copy(n[:exportPrefixSize], header[len(exportMagic):len(exportMagic)+exportPrefixSize])
	binary.BigEndian.PutUint32(n[exportPrefixSize:], counter)
	return n
}

func exportAAD(header []byte, flag byte) []byte {
	aad := make([]byte, 0, len(header)+1)
	aad = append(aad, header...)
	return append(aad, flag)
}
