package neartypes

import (
	"math/big"
	"testing"
)

func TestEncodeDecodeUint64(t *testing.T) {
	e := NewEncoder()
	e.WriteUint64(0x0102030405060708)
	d := NewDecoder(e.Bytes())
	got, err := d.ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64: %v", err)
	}
	if got != 0x0102030405060708 {
		t.Fatalf("got %x", got)
	}
	// Little-endian: low byte first.
	if e.Bytes()[0] != 0x08 {
		t.Fatalf("expected little-endian encoding, first byte = %x", e.Bytes()[0])
	}
}

func TestEncodeDecodeVecAndString(t *testing.T) {
	e := NewEncoder()
	e.WriteVec([]byte("abc"))
	e.WriteString("hello world")
	d := NewDecoder(e.Bytes())
	gotVec, err := d.ReadVec()
	if err != nil || string(gotVec) != "abc" {
		t.Fatalf("ReadVec: %v %q", err, gotVec)
	}
	gotStr, err := d.ReadString()
	if err != nil || gotStr != "hello world" {
		t.Fatalf("ReadString: %v %q", err, gotStr)
	}
	if !d.Done() {
		t.Fatalf("expected decoder exhausted, %d bytes remain", d.Remaining())
	}
}

func TestEncodeDecodeOption(t *testing.T) {
	e := NewEncoder()
	e.WriteOption(true, func() { e.WriteUint32(42) })
	e.WriteOption(false, func() { e.WriteUint32(99) })
	d := NewDecoder(e.Bytes())

	present, err := d.ReadOptionPresent()
	if err != nil || !present {
		t.Fatalf("expected present option: %v %v", present, err)
	}
	v, err := d.ReadUint32()
	if err != nil || v != 42 {
		t.Fatalf("got %v %v", v, err)
	}
	present, err = d.ReadOptionPresent()
	if err != nil || present {
		t.Fatalf("expected absent option: %v %v", present, err)
	}
}

func TestEncodeDecodeBalance(t *testing.T) {
	// A value larger than 2^64 to confirm u128 round trips beyond uint64 range.
	big128, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	e := NewEncoder()
	e.WriteBalance(big128)
	if len(e.Bytes()) != 16 {
		t.Fatalf("expected 16-byte balance encoding, got %d", len(e.Bytes()))
	}
	d := NewDecoder(e.Bytes())
	got, err := d.ReadBalance()
	if err != nil {
		t.Fatalf("ReadBalance: %v", err)
	}
	if got.Cmp(big128) != 0 {
		t.Fatalf("balance round trip mismatch: got %s want %s", got, big128)
	}
}

func TestEncodeDecodeHash(t *testing.T) {
	h := Sha256([]byte("x"))
	e := NewEncoder()
	e.WriteHash(h)
	d := NewDecoder(e.Bytes())
	got, err := d.ReadHash()
	if err != nil || got != h {
		t.Fatalf("got %v %v", got, err)
	}
}

func TestDecoderUnexpectedEOF(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	if _, err := d.ReadUint64(); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadOptionPresentInvalidTag(t *testing.T) {
	d := NewDecoder([]byte{2})
	if _, err := d.ReadOptionPresent(); err == nil {
		t.Fatalf("expected error for invalid option tag")
	}
}
