package neartypes

import "testing"

func TestSha256Deterministic(t *testing.T) {
	a := Sha256([]byte("hello"))
	b := Sha256([]byte("hello"))
	if a != b {
		t.Fatalf("sha256 not deterministic: %v != %v", a, b)
	}
}

func TestCombine(t *testing.T) {
	a := Sha256([]byte("a"))
	b := Sha256([]byte("b"))
	want := Sha256(append(append([]byte{}, a[:]...), b[:]...))
	if got := Combine(a, b); got != want {
		t.Fatalf("Combine mismatch: got %v want %v", got, want)
	}
	// Order matters.
	if Combine(a, b) == Combine(b, a) {
		t.Fatalf("Combine should not be commutative")
	}
}

func TestCryptoHashBase58RoundTrip(t *testing.T) {
	h := Sha256([]byte("round trip"))
	s := h.String()
	got, err := CryptoHashFromBase58(s)
	if err != nil {
		t.Fatalf("CryptoHashFromBase58: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %v want %v", got, h)
	}
}

func TestCryptoHashFromBytesWrongSize(t *testing.T) {
	if _, err := CryptoHashFromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for wrong-size hash")
	}
}

func TestZeroHash(t *testing.T) {
	var h CryptoHash
	if !h.IsZero() {
		t.Fatalf("zero-value CryptoHash should report IsZero")
	}
	if !ZeroHash.IsZero() {
		t.Fatalf("ZeroHash should report IsZero")
	}
}
