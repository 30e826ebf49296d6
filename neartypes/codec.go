package neartypes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// Canonical encoding rules (spec 4.A):
//   - fixed-width integers are little-endian
//   - sequences are u32-LE length prefixed
//   - options are a single presence byte (0 absent, 1 present) then the value
//   - tagged sums are a single discriminant byte then the variant payload
//   - u128 values are 16 bytes little-endian
//
// There is no ecosystem Go library implementing this exact byte layout (it is
// a hand-maintained subset of NEAR's Borsh wire format); every encoder/decoder
// in this file is therefore a deliberate, justified stdlib-only component.

// ErrUnknownDiscriminant is returned when a tagged sum's discriminant byte
// does not match any variant this codec recognises. Per spec 9 (Versioning),
// unknown discriminants are rejected outright rather than silently passed
// through.
var ErrUnknownDiscriminant = errors.New("neartypes: unknown discriminant byte")

// ErrUnexpectedEOF is returned when the decoder runs out of bytes mid-value.
var ErrUnexpectedEOF = errors.New("neartypes: unexpected end of encoded data")

// Encoder accumulates a canonical byte encoding.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 128)}
}

// Bytes returns the accumulated encoding.
func (e *Encoder) Bytes() []byte { return e.buf }

// WriteByte appends a single byte (e.g. a discriminant or option tag).
func (e *Encoder) WriteByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends raw bytes with no length prefix.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteUint32 appends a little-endian u32.
func (e *Encoder) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// WriteUint64 appends a little-endian u64.
func (e *Encoder) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// WriteBalance appends a u128 stake value as 16 bytes little-endian.
// NEAR stakes are denominated in yoctoNEAR and routinely exceed 2^64, so
// Balance is backed by math/big.Int rather than a machine integer.
func (e *Encoder) WriteBalance(v *big.Int) {
	var out [16]byte
	if v != nil {
		b := v.Bytes() // big-endian, no leading zeros
		for i := 0; i < len(b) && i < 16; i++ {
			out[i] = b[len(b)-1-i]
		}
	}
	e.buf = append(e.buf, out[:]...)
}

// WriteVec appends a u32-LE length prefix followed by the raw bytes.
func (e *Encoder) WriteVec(b []byte) {
	e.WriteUint32(uint32(len(b)))
	e.WriteBytes(b)
}

// WriteString appends a length-prefixed UTF-8 string.
func (e *Encoder) WriteString(s string) { e.WriteVec([]byte(s)) }

// WriteOption appends the presence byte, and when present, invokes write to
// append the payload.
func (e *Encoder) WriteOption(present bool, write func()) {
	if present {
		e.WriteByte(1)
		write()
	} else {
		e.WriteByte(0)
	}
}

// WriteHash appends the raw 32 bytes of a CryptoHash.
func (e *Encoder) WriteHash(h CryptoHash) { e.WriteBytes(h[:]) }

// SeqLen writes a u32-LE sequence count. Callers then encode each element.
func (e *Encoder) SeqLen(n int) { e.WriteUint32(uint32(n)) }

// Decoder reads a canonical encoding produced by Encoder.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps b for sequential reads.
func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Done reports whether the entire buffer has been consumed.
func (d *Decoder) Done() bool { return d.pos >= len(d.buf) }

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadByte consumes and returns a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint32 consumes a little-endian u32.
func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 consumes a little-endian u64.
func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadBalance consumes a 16-byte little-endian u128 into a big.Int.
func (d *Decoder) ReadBalance() (*big.Int, error) {
	b, err := d.take(16)
	if err != nil {
		return nil, err
	}
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = b[16-1-i]
	}
	return new(big.Int).SetBytes(be), nil
}

// ReadBytes consumes exactly n raw bytes.
func (d *Decoder) ReadBytes(n int) ([]byte, error) { return d.take(n) }

// ReadVec consumes a u32-LE length prefix followed by that many bytes.
func (d *Decoder) ReadVec() ([]byte, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	return d.take(int(n))
}

// ReadString consumes a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadVec()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadOptionPresent consumes the presence byte and reports whether a value
// follows.
func (d *Decoder) ReadOptionPresent() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("neartypes: invalid option tag %d", b)
	}
}

// ReadHash consumes 32 raw bytes as a CryptoHash.
func (d *Decoder) ReadHash() (CryptoHash, error) {
	b, err := d.take(32)
	if err != nil {
		return CryptoHash{}, err
	}
	var h CryptoHash
	copy(h[:], b)
	return h, nil
}

// ReadSeqLen consumes a u32-LE sequence count.
func (d *Decoder) ReadSeqLen() (int, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
