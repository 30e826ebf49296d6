package light

import (
	"errors"
	"testing"

	"github.com/near/light-client/neartypes"
	"github.com/near/light-client/trie"
)

func TestProofCacheRejectsOversizedProof(t *testing.T) {
	host := NewMemoryHost(0)
	pc := NewProofCache(NewClient(host), ProofCacheConfig{MaxProofDepth: 1, CacheSize: 8})

	err := pc.VerifyMembership(10, []byte{}, []byte("v"), [][]byte{{1}, {2}})
	var spErr *trie.StateProofVerificationError
	if !errors.As(err, &spErr) || spErr.Kind != trie.InvalidProofDataLength {
		t.Fatalf("expected InvalidProofDataLength for oversized proof, got %v", err)
	}
}

func TestProofCacheCachesResultAndCountsOnlyMisses(t *testing.T) {
	value := []byte("state-value")
	rootNode := &trie.RawTrieNodeWithSize{
		Node: trie.RawTrieNode{
			Tag:             trie.TagBranchWithValue,
			HasBranchValue:  true,
			BranchValueLen:  uint32(len(value)),
			BranchValueHash: neartypes.Sha256(value),
		},
		MemoryUsage: 40,
	}
	rawProof := rootNode.Encode()
	chunkRoot := neartypes.Sha256(rawProof)

	header := sampleHeaderAtHeight(50, []neartypes.CryptoHash{chunkRoot})
	host := NewMemoryHost(0)
	if err := host.SetConsensusState(50, &neartypes.ConsensusState{Header: *header}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pc := NewProofCache(NewClient(host), DefaultProofCacheConfig())

	for i := 0; i < 3; i++ {
		if err := pc.VerifyMembership(50, []byte{}, value, [][]byte{rawProof}); err != nil {
			t.Fatalf("iteration %d: expected success, got %v", i, err)
		}
	}
	if got := pc.ProofsVerified(); got != 1 {
		t.Fatalf("expected exactly one cache miss across repeated identical calls, got %d", got)
	}
}

func TestProofCacheDistinguishesHeights(t *testing.T) {
	value := []byte("state-value")
	rootNode := &trie.RawTrieNodeWithSize{
		Node: trie.RawTrieNode{
			Tag:             trie.TagBranchWithValue,
			HasBranchValue:  true,
			BranchValueLen:  uint32(len(value)),
			BranchValueHash: neartypes.Sha256(value),
		},
		MemoryUsage: 40,
	}
	rawProof := rootNode.Encode()
	chunkRoot := neartypes.Sha256(rawProof)

	host := NewMemoryHost(0)
	for _, h := range []neartypes.BlockHeight{50, 60} {
		header := sampleHeaderAtHeight(h, []neartypes.CryptoHash{chunkRoot})
		if err := host.SetConsensusState(h, &neartypes.ConsensusState{Header: *header}); err != nil {
			t.Fatalf("seed %d: %v", h, err)
		}
	}
	pc := NewProofCache(NewClient(host), DefaultProofCacheConfig())

	if err := pc.VerifyMembership(50, []byte{}, value, [][]byte{rawProof}); err != nil {
		t.Fatalf("height 50: %v", err)
	}
	if err := pc.VerifyMembership(60, []byte{}, value, [][]byte{rawProof}); err != nil {
		t.Fatalf("height 60: %v", err)
	}
	if got := pc.ProofsVerified(); got != 2 {
		t.Fatalf("expected two distinct cache misses for two heights, got %d", got)
	}
}
