package trie

// Compact key_bytes codec for the key_bytes field carried by NEAR's Leaf and
// Extension nodes (spec 4.C).
//
// The leaf/extension distinction and the nibble-count parity both live in
// the low nibble of the first byte: bit 0x01 marks an odd nibble count, bit
// 0x02 marks a leaf key. When the count is odd, the first data nibble rides
// in the high nibble of that same first byte rather than starting a byte of
// its own. Every byte after the first packs two data nibbles, high nibble
// first.

// encodeNodeKey packs nibbles into NEAR's compact key_bytes form. isLeaf
// selects the leaf/extension flag bit; it isn't recoverable from nibbles
// alone, since a node's own Tag (trie/node.go) already carries that
// distinction everywhere this module reads the result back.
func encodeNodeKey(nibbles []byte, isLeaf bool) []byte {
	flag := byte(0)
	if isLeaf {
		flag |= 0x02
	}

	odd := len(nibbles)%2 == 1
	out := make([]byte, 0, len(nibbles)/2+1)
	if odd {
		out = append(out, flag|0x01|(nibbles[0]<<4))
		nibbles = nibbles[1:]
	} else {
		out = append(out, flag)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

// decodeNodeKey unpacks a compact key_bytes field back into its nibble
// sequence. The leaf/extension flag bit is consumed but not returned to the
// caller: nothing in trie/proof.go's walk needs a second copy of it, since
// the node's Tag already told it which kind of node this is.
func decodeNodeKey(compact []byte) []byte {
	if len(compact) == 0 {
		return nil
	}
	first := compact[0]
	odd := first&0x01 != 0
	rest := compact[1:]

	nibbles := make([]byte, 0, 2*len(rest)+1)
	if odd {
		nibbles = append(nibbles, first>>4)
	}
	for _, b := range rest {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles
}
