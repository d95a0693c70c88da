// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package object

import (
	"bytes"
	"encoding/binary"
)

// countFrames walks the container structure of buf and returns the number of
// animation frames. It never decodes pixel data. Anything it cannot follow
// counts as a single frame.
func countFrames(format string, buf []byte) int {
	n := 0
	switch format {
	case "gif":
		n = gifFrames(buf)
	case "png":
		n = apngFrames(buf)
	case "webp":
		n = webpFrames(buf)
	}
	return max(n, 1)
}

// gifFrames counts image descriptors.
func gifFrames(buf []byte) int {
	const headerLen = 13 // signature + logical screen descriptor
	if len(buf) < headerLen {
		return 0
	}
	pos := headerLen
	if flags := buf[10]; flags&0x80 != 0 {
		pos += 3 << ((flags & 0x07) + 1)
	}

	frames := 0
	for pos < len(buf) {
		switch buf[pos] {
		case 0x21: // extension: introducer, label, sub-blocks
			pos = skipSubBlocks(buf, pos+2)
		case 0x2C: // image descriptor
			if pos+10 > len(buf) {
				return frames
			}
			flags := buf[pos+9]
			pos += 10
			if flags&0x80 != 0 {
				pos += 3 << ((flags & 0x07) + 1)
			}
			pos = skipSubBlocks(buf, pos+1) // LZW minimum code size
			frames++
		default: // trailer or garbage
			return frames
		}
		if pos < 0 {
			return frames
		}
	}
	return frames
}

// skipSubBlocks returns the offset after a block terminator, or -1 when buf
// ends first.
func skipSubBlocks(buf []byte, pos int) int {
	for pos < len(buf) {
		size := int(buf[pos])
		pos++
		if size == 0 {
			return pos
		}
		pos += size
	}
	return -1
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// apngFrames reads num_frames from an acTL chunk preceding the first IDAT.
func apngFrames(buf []byte) int {
	if !bytes.HasPrefix(buf, pngSignature) {
		return 0
	}
	pos := len(pngSignature)
	for pos+8 <= len(buf) {
		length := int(binary.BigEndian.Uint32(buf[pos:]))
		typ := string(buf[pos+4 : pos+8])
		body := pos + 8
		switch typ {
		case "acTL":
			if body+4 > len(buf) {
				return 0
			}
			return int(binary.BigEndian.Uint32(buf[body:]))
		case "IDAT", "IEND":
			return 1
		}
		if length < 0 || body+length+4 > len(buf) {
			return 0
		}
		pos = body + length + 4 // data + CRC
	}
	return 0
}

// webpFrames counts ANMF chunks when the VP8X header flags animation.
func webpFrames(buf []byte) int {
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WEBP" {
		return 0
	}
	const animationFlag = 0x02
	animated := false
	frames := 0
	pos := 12
	for pos+8 <= len(buf) {
		fourcc := string(buf[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(buf[pos+4:]))
		body := pos + 8
		switch fourcc {
		case "VP8X":
			if body < len(buf) {
				animated = buf[body]&animationFlag != 0
			}
		case "ANMF":
			frames++
		}
		next := body + size + size&1 // chunks are padded to even length
		if size < 0 || next <= pos {
			break
		}
		pos = next
	}
	if !animated {
		return 1
	}
	return frames
}
