package trie

// NibbleSlice is a cursor over a sequence of hex nibbles (0-15). Proof
// verification (spec 4.C) walks a key nibble-by-nibble against the
// key_bytes carried by each Leaf/Extension node, so the cursor only needs
// equality, prefix, and "consume n nibbles" operations -- never mutation.
type NibbleSlice []byte

// NewNibbleSlice expands a raw byte key into its full nibble sequence, high
// nibble first, with no terminator. This is the cursor state used to walk
// a membership/non-membership proof from the root.
func NewNibbleSlice(key []byte) NibbleSlice {
	n := make(NibbleSlice, len(key)*2)
	for i, b := range key {
		n[i*2] = b >> 4
		n[i*2+1] = b & 0x0f
	}
	return n
}

// DecodeNodeKey decodes a Leaf or Extension node's compact key_bytes field
// into its nibble sequence.
func DecodeNodeKey(encoded []byte) NibbleSlice {
	return NibbleSlice(decodeNodeKey(encoded))
}

// At returns the nibble at position i.
func (n NibbleSlice) At(i int) byte { return n[i] }

// Mid returns the cursor advanced past its first i nibbles.
func (n NibbleSlice) Mid(i int) NibbleSlice { return n[i:] }

// IsEmpty reports whether no nibbles remain.
func (n NibbleSlice) IsEmpty() bool { return len(n) == 0 }

// StartsWith reports whether n begins with other's nibbles.
func (n NibbleSlice) StartsWith(other NibbleSlice) bool {
	if len(other) > len(n) {
		return false
	}
	for i := range other {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// Equal reports whether n and other carry the same nibble sequence.
func (n NibbleSlice) Equal(other NibbleSlice) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}
