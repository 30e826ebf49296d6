package trie

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/near/light-client/neartypes"
)

// Raw trie node discriminant tags, matching NEAR's on-the-wire trie node
// encoding (spec 4.C). A state/non-membership proof is a flat, ordered list
// of these nodes rather than a recursive mutable tree: each entry's hash must
// equal the expected_hash carried down from its parent.
const (
	TagLeaf            byte = 0
	TagBranchNoValue   byte = 1
	TagBranchWithValue byte = 2
	TagExtension       byte = 3
)

// ErrUnknownNodeTag is returned when a raw trie node's discriminant byte
// does not match any of the four known node kinds.
var ErrUnknownNodeTag = errors.New("trie: unknown raw trie node tag")

// ErrTruncatedNode is returned when a raw trie node's encoding ends before
// a field it declares (e.g. a key length longer than the remaining bytes).
var ErrTruncatedNode = errors.New("trie: truncated raw trie node encoding")

// RawTrieNode is one of Leaf, Branch, or Extension, selected by Tag. Only the
// fields relevant to that tag are populated.
type RawTrieNode struct {
	Tag byte

	// Leaf and Extension: the HP/compact-encoded key_bytes.
	Key []byte

	// Leaf only.
	LeafValueLength uint32
	LeafValueHash   neartypes.CryptoHash

	// Branch only (TagBranchNoValue or TagBranchWithValue).
	Children        [16]*neartypes.CryptoHash
	HasBranchValue  bool
	BranchValueLen  uint32
	BranchValueHash neartypes.CryptoHash

	// Extension only.
	Child neartypes.CryptoHash
}

// RawTrieNodeWithSize is a RawTrieNode plus the subtree memory_usage NEAR's
// runtime tracks alongside it. memory_usage is part of the node's canonical
// encoding (and therefore its hash) but carries no verification meaning of
// its own; it is round-tripped unchanged.
type RawTrieNodeWithSize struct {
	Node        RawTrieNode
	MemoryUsage uint64
}

// Encode produces the exact bytes NEAR hashes to identify this node,
// matching RawTrieNode::encode_into byte-for-byte.
func (n *RawTrieNode) Encode() []byte {
	buf := make([]byte, 0, 64)
	switch n.Tag {
	case TagLeaf:
		buf = append(buf, TagLeaf)
		buf = appendUint32(buf, uint32(len(n.Key)))
		buf = append(buf, n.Key...)
		buf = appendUint32(buf, n.LeafValueLength)
		buf = append(buf, n.LeafValueHash[:]...)
	case TagBranchNoValue, TagBranchWithValue:
		if n.HasBranchValue {
			buf = append(buf, TagBranchWithValue)
			buf = appendUint32(buf, n.BranchValueLen)
			buf = append(buf, n.BranchValueHash[:]...)
		} else {
			buf = append(buf, TagBranchNoValue)
		}
		var bitmap uint16
		pos := uint16(1)
		for _, c := range n.Children {
			if c != nil {
				bitmap |= pos
			}
			pos <<= 1
		}
		buf = appendUint16(buf, bitmap)
		for _, c := range n.Children {
			if c != nil {
				buf = append(buf, c[:]...)
			}
		}
	case TagExtension:
		buf = append(buf, TagExtension)
		buf = appendUint32(buf, uint32(len(n.Key)))
		buf = append(buf, n.Key...)
		buf = append(buf, n.Child[:]...)
	}
	return buf
}

// DecodeRawTrieNode parses a single node's encoding (without its trailing
// memory_usage), matching RawTrieNode::decode.
func DecodeRawTrieNode(b []byte) (*RawTrieNode, error) {
	if len(b) < 1 {
		return nil, ErrTruncatedNode
	}
	tag := b[0]
	b = b[1:]
	switch tag {
	case TagLeaf:
		keyLen, b2, err := readUint32(b)
		if err != nil {
			return nil, err
		}
		key, b3, err := readBytes(b2, int(keyLen))
		if err != nil {
			return nil, err
		}
		valueLen, b4, err := readUint32(b3)
		if err != nil {
			return nil, err
		}
		valueHash, _, err := readHash(b4)
		if err != nil {
			return nil, err
		}
		return &RawTrieNode{Tag: TagLeaf, Key: key, LeafValueLength: valueLen, LeafValueHash: valueHash}, nil
	case TagBranchNoValue:
		children, err := decodeChildren(b)
		if err != nil {
			return nil, err
		}
		return &RawTrieNode{Tag: TagBranchNoValue, Children: children}, nil
	case TagBranchWithValue:
		valueLen, b2, err := readUint32(b)
		if err != nil {
			return nil, err
		}
		valueHash, b3, err := readHash(b2)
		if err != nil {
			return nil, err
		}
		children, err := decodeChildren(b3)
		if err != nil {
			return nil, err
		}
		return &RawTrieNode{
			Tag: TagBranchWithValue, Children: children,
			HasBranchValue: true, BranchValueLen: valueLen, BranchValueHash: valueHash,
		}, nil
	case TagExtension:
		keyLen, b2, err := readUint32(b)
		if err != nil {
			return nil, err
		}
		key, b3, err := readBytes(b2, int(keyLen))
		if err != nil {
			return nil, err
		}
		child, _, err := readHash(b3)
		if err != nil {
			return nil, err
		}
		return &RawTrieNode{Tag: TagExtension, Key: key, Child: child}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownNodeTag, tag)
	}
}

// Encode appends the node's own encoding followed by the 8-byte
// little-endian memory_usage trailer, matching
// RawTrieNodeWithSize::encode_into. This is the exact byte string whose
// sha256 is the node's hash as referenced by its parent.
func (n *RawTrieNodeWithSize) Encode() []byte {
	buf := n.Node.Encode()
	return appendUint64(buf, n.MemoryUsage)
}

// Hash returns sha256(n.Encode()), the value a parent node stores to
// reference this one.
func (n *RawTrieNodeWithSize) Hash() neartypes.CryptoHash {
	return neartypes.Sha256(n.Encode())
}

// DecodeRawTrieNodeWithSize parses a sized node, matching
// RawTrieNodeWithSize::decode: the last 8 bytes are memory_usage, and
// everything before that is the node itself.
func DecodeRawTrieNodeWithSize(b []byte) (*RawTrieNodeWithSize, error) {
	if len(b) < 8 {
		return nil, ErrTruncatedNode
	}
	node, err := DecodeRawTrieNode(b[:len(b)-8])
	if err != nil {
		return nil, err
	}
	memUsage := binary.LittleEndian.Uint64(b[len(b)-8:])
	return &RawTrieNodeWithSize{Node: *node, MemoryUsage: memUsage}, nil
}

// decodeChildren reads the u16-LE presence bitmap followed by a 32-byte hash
// for each set bit, in ascending slot order, matching decode_children.
func decodeChildren(b []byte) ([16]*neartypes.CryptoHash, error) {
	var children [16]*neartypes.CryptoHash
	bitmap, rest, err := readUint16(b)
	if err != nil {
		return children, err
	}
	pos := uint16(1)
	for i := 0; i < 16; i++ {
		if bitmap&pos != 0 {
			h, r, err := readHash(rest)
			if err != nil {
				return children, err
			}
			hh := h
			children[i] = &hh
			rest = r
		}
		pos <<= 1
	}
	return children, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func readUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrTruncatedNode
	}
	return binary.LittleEndian.Uint32(b[:4]), b[4:], nil
}

func readUint16(b []byte) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, nil, ErrTruncatedNode
	}
	return binary.LittleEndian.Uint16(b[:2]), b[2:], nil
}

func readBytes(b []byte, n int) ([]byte, []byte, error) {
	if n < 0 || len(b) < n {
		return nil, nil, ErrTruncatedNode
	}
	out := make([]byte, n)
	copy(out, b[:n])
	return out, b[n:], nil
}

func readHash(b []byte) (neartypes.CryptoHash, []byte, error) {
	if len(b) < 32 {
		return neartypes.CryptoHash{}, nil, ErrTruncatedNode
	}
	var h neartypes.CryptoHash
	copy(h[:], b[:32])
	return h, b[32:], nil
}
