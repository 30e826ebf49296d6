// Package trie decodes NEAR's raw trie node encoding and walks a linear
// proof list -- never a recursive mutable tree -- to verify membership and
// non-membership of a key against a trusted state root (spec 4.C).
package trie

import (
	"fmt"

	"github.com/near/light-client/neartypes"
)

// StateProofErrorKind discriminates the StateProofVerificationError variants
// named in spec 7. MissingProofData and InvalidRootHashOfProofData are
// raised by a caller before the walk begins (an empty proof list, or a first
// node whose hash is not a recognised chunk prev_state_root); the rest are
// raised during the walk itself.
type StateProofErrorKind int

const (
	InvalidProofData StateProofErrorKind = iota
	InvalidProofDataLength
	SpecifiedKeyHasValueInState
	MissingProofData
	InvalidRootHashOfProofData
)

func (k StateProofErrorKind) String() string {
	switch k {
	case InvalidProofData:
		return "InvalidProofData"
	case InvalidProofDataLength:
		return "InvalidProofDataLength"
	case SpecifiedKeyHasValueInState:
		return "SpecifiedKeyHasValueInState"
	case MissingProofData:
		return "MissingProofData"
	case InvalidRootHashOfProofData:
		return "InvalidRootHashOfProofData"
	default:
		return "Unknown"
	}
}

// StateProofVerificationError reports why a membership or non-membership
// proof was rejected. ProofIndex is the zero-based index of the offending
// proof node and is only meaningful when Kind is InvalidProofData.
type StateProofVerificationError struct {
	Kind       StateProofErrorKind
	ProofIndex uint16
}

func (e *StateProofVerificationError) Error() string {
	if e.Kind == InvalidProofData {
		return fmt.Sprintf("trie: %s at proof index %d", e.Kind, e.ProofIndex)
	}
	return fmt.Sprintf("trie: %s", e.Kind)
}

func invalidProofData(index int) error {
	return &StateProofVerificationError{Kind: InvalidProofData, ProofIndex: uint16(index)}
}

// VerifyMembership walks proofs against keyBytes starting from expectedRoot,
// demanding the walk terminate in a leaf or branch value whose sha256
// matches value, matching the reference verify_state_proof algorithm.
func VerifyMembership(keyBytes []byte, value []byte, proofs []*RawTrieNodeWithSize, expectedRoot neartypes.CryptoHash) error {
	key := NewNibbleSlice(keyBytes)
	expectedHash := expectedRoot

	for nodeIndex, node := range proofs {
		if node.Hash() != expectedHash {
			return invalidProofData(nodeIndex)
		}

		switch node.Node.Tag {
		case TagLeaf:
			nodeKey := DecodeNodeKey(node.Node.Key)
			if !key.Equal(nodeKey) {
				return invalidProofData(nodeIndex)
			}
			if neartypes.Sha256(value) != node.Node.LeafValueHash {
				return invalidProofData(nodeIndex)
			}
			return nil

		case TagExtension:
			nodeKey := DecodeNodeKey(node.Node.Key)
			if !key.StartsWith(nodeKey) {
				return invalidProofData(nodeIndex)
			}
			key = key.Mid(len(nodeKey))
			expectedHash = node.Node.Child

		case TagBranchNoValue, TagBranchWithValue:
			if key.IsEmpty() {
				if !node.Node.HasBranchValue {
					return invalidProofData(nodeIndex)
				}
				if neartypes.Sha256(value) != node.Node.BranchValueHash {
					return invalidProofData(nodeIndex)
				}
				return nil
			}
			child := node.Node.Children[key.At(0)]
			if child == nil {
				return invalidProofData(nodeIndex)
			}
			key = key.Mid(1)
			expectedHash = *child
		}
	}
	return &StateProofVerificationError{Kind: InvalidProofDataLength}
}

// VerifyNonMembership walks proofs against keyBytes starting from
// expectedRoot, succeeding as soon as the walk diverges from the key (a leaf
// key differs, an extension prefix mismatches, or a branch child slot is
// absent) and failing if the key instead terminates at a value, matching the
// reference verify_not_in_state algorithm.
func VerifyNonMembership(keyBytes []byte, proofs []*RawTrieNodeWithSize, expectedRoot neartypes.CryptoHash) error {
	key := NewNibbleSlice(keyBytes)
	expectedHash := expectedRoot

	for nodeIndex, node := range proofs {
		if node.Hash() != expectedHash {
			return invalidProofData(nodeIndex)
		}

		switch node.Node.Tag {
		case TagLeaf:
			nodeKey := DecodeNodeKey(node.Node.Key)
			if !key.Equal(nodeKey) {
				return nil
			}
			return &StateProofVerificationError{Kind: SpecifiedKeyHasValueInState}

		case TagExtension:
			nodeKey := DecodeNodeKey(node.Node.Key)
			if !key.StartsWith(nodeKey) {
				return nil
			}
			key = key.Mid(len(nodeKey))
			expectedHash = node.Node.Child

		case TagBranchNoValue, TagBranchWithValue:
			if key.IsEmpty() {
				if node.Node.HasBranchValue {
					return &StateProofVerificationError{Kind: SpecifiedKeyHasValueInState}
				}
				return nil
			}
			child := node.Node.Children[key.At(0)]
			if child == nil {
				return nil
			}
			key = key.Mid(1)
			expectedHash = *child
		}
	}
	return &StateProofVerificationError{Kind: InvalidProofDataLength}
}
