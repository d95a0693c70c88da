// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package object

// Ownership tells whether a Data exclusively owns its bytes.
type Ownership uint8

const (
	// Own means the Data is the only holder of the buffer.
	Own Ownership = iota
	// Shared means the buffer is also held elsewhere (a platform cache, the
	// source descriptor of a memory image) and must never be written.
	Shared
)

// Data is an immutable buffer of encoded image bytes.
type Data struct {
	buf []byte
	own Ownership
}

// NewData wraps buf, taking ownership of it.
func NewData(buf []byte) *Data {
	return &Data{buf: buf, own: Own}
}

// NewSharedData wraps buf without taking ownership.
func NewSharedData(buf []byte) *Data {
	return &Data{buf: buf, own: Shared}
}

// Bytes returns the encoded bytes. Callers must not modify them.
func (d *Data) Bytes() []byte {
	if d == nil {
		return nil
	}
	return d.buf
}

// Len returns the number of encoded bytes.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.buf)
}

// Ownership reports who owns the buffer.
func (d *Data) Ownership() Ownership { return d.own }

// Detach returns a Data that owns its bytes, copying only when shared.
func (d *Data) Detach() *Data {
	if d.own == Own {
		return d
	}
	buf := make([]byte, len(d.buf))
	copy(buf, d.buf)
	return NewData(buf)
}
