// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	intImage "github.com/gogpu/ace/internal/image"
)

// CompressedSuffix is the file suffix of on-disk compressed textures.
const CompressedSuffix = ".astc"

// generateKey derives the stable object-cache key of a source.
// Paths are NFC-normalized so canonically equivalent spellings collide.
func generateKey(i *Info) string {
	var b strings.Builder
	b.WriteString(i.typ.String())
	b.WriteByte(':')
	switch i.typ {
	case TypeMemory:
		sum := sha256.Sum256(i.data)
		b.WriteString(hex.EncodeToString(sum[:]))
	case TypePixelMap:
		b.WriteString(pixelDigest(i.pmap))
	case TypeDataURI:
		// Payloads can be megabytes; the digest is the identity.
		sum := sha256.Sum256([]byte(i.src))
		b.WriteString(hex.EncodeToString(sum[:]))
	default:
		b.WriteString(norm.NFC.String(i.src))
	}
	if i.bundle != "" || i.module != "" {
		b.WriteByte('@')
		b.WriteString(norm.NFC.String(i.bundle))
		b.WriteByte('/')
		b.WriteString(norm.NFC.String(i.module))
	}
	b.WriteString("#fit=")
	b.WriteString(strconv.Itoa(int(i.fit)))
	return b.String()
}

// Key returns the object-cache key. Identical requests always produce the
// same key.
func (i Info) Key() string { return i.key }

// pixelDigest identifies a pixel map by its dimensions and pixels, so the
// key stays valid after the buffer itself is gone.
func pixelDigest(pm *intImage.ImageBuf) string {
	if pm.IsEmpty() {
		return "empty"
	}
	h := sha256.New()
	fmt.Fprintf(h, "%dx%d:", pm.Width(), pm.Height())
	for y := range pm.Height() {
		h.Write(pm.RowBytes(y))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyForSize returns the canvas-image cache key for this source decoded at
// size. Unset sizes map to the intrinsic-size key. The size is keyed exactly
// as given: fractional targets that round to the same pixels can still need
// different decodes.
func (i Info) KeyForSize(size Size) string {
	if !size.IsValid() {
		return i.key + "|orig"
	}
	return i.key + "|" + size.String()
}

// CanvasKey is KeyForSize with exact-size decodes kept apart from
// fit-within decodes of the same target.
func (i Info) CanvasKey(size Size, forceResize bool) string {
	k := i.KeyForSize(size)
	if forceResize {
		k += "!exact"
	}
	return k
}

// CompressedFileName returns "<digest>.astc", the on-disk name of the
// compressed texture for this source at size.
func (i Info) CompressedFileName(size Size, forceResize bool) string {
	sum := sha256.Sum256([]byte(i.CanvasKey(size, forceResize)))
	return hex.EncodeToString(sum[:]) + CompressedSuffix
}
