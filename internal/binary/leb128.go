package binary

import (
	"fmt"
	"io"
)

// EncodeUint32 returns the shortest unsigned LEB128 encoding of v.
func EncodeUint32(v uint32) []byte { return encodeUint64(uint64(v)) }

// EncodeUint64 returns the shortest unsigned LEB128 encoding of v.
func EncodeUint64(v uint64) []byte { return encodeUint64(v) }

func encodeUint64(v uint64) []byte {
	out := make([]byte, 0, 10)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

// EncodeInt32 returns the shortest signed LEB128 encoding of v.
func EncodeInt32(v int32) []byte { return encodeInt64(int64(v)) }

// EncodeInt64 returns the shortest signed LEB128 encoding of v.
func EncodeInt64(v int64) []byte { return encodeInt64(v) }

func encodeInt64(v int64) []byte {
	out := make([]byte, 0, 10)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// DecodeUint32 reads an unsigned LEB128 value from r, rejecting encodings
// that exceed 32 significant bits or that run longer than the 5 bytes a
// 32-bit value needs. An encoding padded with redundant zero-valued
// continuation bytes within that length is accepted.
func DecodeUint32(r io.ByteReader) (uint32, uint32, error) {
	v, n, err := decodeUint(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 is the 64-bit analog of DecodeUint32.
func DecodeUint64(r io.ByteReader) (uint64, uint32, error) {
	return decodeUint(r, 64)
}

func decodeUint(r io.ByteReader, width uint) (uint64, uint32, error) {
	var result uint64
	var shift uint
	var n uint32
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, fmt.Errorf("leb128: truncated unsigned varint: %w", err)
		}
		n++
		if n > uint32((width+6)/7) {
			return 0, n, fmt.Errorf("leb128: unsigned varint longer than %d bytes", (width+6)/7)
		}
		chunk := uint64(b & 0x7f)
		if shift == (width/7)*7 {
			// Last meaningful chunk: reject bits set beyond width.
			maxChunk := uint64(1)<<(width-shift) - 1
			if chunk&^maxChunk != 0 {
				return 0, n, fmt.Errorf("leb128: unsigned varint overflows %d bits", width)
			}
			result |= chunk << shift
		} else {
			result |= chunk << shift
		}
		if b&0x80 == 0 {
			return result, n, nil
		}
		shift += 7
		if shift > 70 {
			return 0, n, fmt.Errorf("leb128: varint too long")
		}
	}
}

// DecodeInt32 reads a signed LEB128 value from r, rejecting encodings that
// exceed 32 significant bits or that run longer than 5 bytes.
func DecodeInt32(r io.ByteReader) (int32, uint32, error) {
	v, n, err := decodeInt(r, 32)
	return int32(v), n, err
}

// DecodeInt64 is the 64-bit analog of DecodeInt32.
func DecodeInt64(r io.ByteReader) (int64, uint32, error) {
	return decodeInt(r, 64)
}

func decodeInt(r io.ByteReader, width uint) (int64, uint32, error) {
	var result int64
	var shift uint
	var n uint32
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, fmt.Errorf("leb128: truncated signed varint: %w", err)
		}
		n++
		if n > uint32((width+6)/7) {
			return 0, n, fmt.Errorf("leb128: signed varint longer than %d bytes", (width+6)/7)
		}
		chunk := int64(b & 0x7f)
		if shift < 64 {
			result |= chunk << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > 70 {
			return 0, n, fmt.Errorf("leb128: varint too long")
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if width < 64 {
		trunc := result << (64 - width) >> (64 - width)
		if trunc != result {
			return 0, n, fmt.Errorf("leb128: signed varint overflows %d bits", width)
		}
	}
	return result, n, nil
}
