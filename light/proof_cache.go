// proof_cache.go wraps Client's membership/non-membership proof verification
// with a bounded result cache and a configurable proof-depth bound
// (transaction proofs pass straight through, uncached), so a driver re-checking the same (height, key) pair -- e.g. a
// retried RPC response -- does not re-walk the trie proof every time.
package light

import (
	"sync"
	"sync/atomic"

	"github.com/near/light-client/merkle"
	"github.com/near/light-client/metrics"
	"github.com/near/light-client/neartypes"
	"github.com/near/light-client/trie"
)

// ProofCacheConfig configures a ProofCache.
type ProofCacheConfig struct {
	// MaxProofDepth bounds the number of nodes a proof list may carry;
	// longer lists are rejected before the trie walk begins.
	MaxProofDepth int
	// CacheSize is the number of verification results to remember.
	CacheSize int
}

// DefaultProofCacheConfig returns sensible defaults for the cache.
func DefaultProofCacheConfig() ProofCacheConfig {
	return ProofCacheConfig{MaxProofDepth: 64, CacheSize: 256}
}

type proofCacheKey struct {
	height      neartypes.BlockHeight
	key         string
	value       string
	membership  bool
	proofsCount int
	lastHash    neartypes.CryptoHash
}

// ProofCache wraps a Client, caching the outcome of membership and
// non-membership checks. All methods are safe for concurrent use.
type ProofCache struct {
	client   *Client
	config   ProofCacheConfig
	mu       sync.RWMutex
	cache    map[proofCacheKey]error
	verified atomic.Uint64
}

// NewProofCache creates a ProofCache delegating to client.
func NewProofCache(client *Client, config ProofCacheConfig) *ProofCache {
	if config.MaxProofDepth <= 0 {
		config.MaxProofDepth = 64
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 256
	}
	return &ProofCache{
		client: client,
		config: config,
		cache:  make(map[proofCacheKey]error, config.CacheSize),
	}
}

func proofTailHash(rawProofs [][]byte) neartypes.CryptoHash {
	if len(rawProofs) == 0 {
		return neartypes.ZeroHash
	}
	return neartypes.Sha256(rawProofs[len(rawProofs)-1])
}

// VerifyMembership verifies membership via the wrapped Client, caching the
// result by (height, key, value, membership, proof shape).
func (pc *ProofCache) VerifyMembership(height neartypes.BlockHeight, key, value []byte, rawProofs [][]byte) error {
	if len(rawProofs) > pc.config.MaxProofDepth {
		return &trie.StateProofVerificationError{Kind: trie.InvalidProofDataLength}
	}
	k := proofCacheKey{height: height, key: string(key), value: string(value), membership: true, proofsCount: len(rawProofs), lastHash: proofTailHash(rawProofs)}
	if err, ok := pc.lookup(k); ok {
		metrics.ProofCacheHits.Inc()
		return err
	}
	err := pc.client.VerifyMembership(height, key, value, rawProofs)
	pc.store(k, err)
	return err
}

// VerifyNonMembership verifies non-membership via the wrapped Client,
// caching the result by (height, key, membership, proof shape).
func (pc *ProofCache) VerifyNonMembership(height neartypes.BlockHeight, key []byte, rawProofs [][]byte) error {
	if len(rawProofs) > pc.config.MaxProofDepth {
		return &trie.StateProofVerificationError{Kind: trie.InvalidProofDataLength}
	}
	k := proofCacheKey{height: height, key: string(key), membership: false, proofsCount: len(rawProofs), lastHash: proofTailHash(rawProofs)}
	if err, ok := pc.lookup(k); ok {
		metrics.ProofCacheHits.Inc()
		return err
	}
	err := pc.client.VerifyNonMembership(height, key, rawProofs)
	pc.store(k, err)
	return err
}

// VerifyTransactionOrReceipt delegates straight to the wrapped Client; the
// proof shape here (three independent merkle.Path values plus a header)
// does not compress into the same cache key as a trie walk, so it is not
// cached.
func (pc *ProofCache) VerifyTransactionOrReceipt(
	outcome *neartypes.OutcomeWithID,
	outcomeProof merkle.Path,
	outcomeRootProof merkle.Path,
	blockLite *neartypes.LightClientBlock,
	blockProof merkle.Path,
	latest *neartypes.ConsensusState,
) error {
	return pc.client.VerifyTransactionOrReceipt(outcome, outcomeProof, outcomeRootProof, blockLite, blockProof, latest)
}

func (pc *ProofCache) lookup(k proofCacheKey) (error, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	err, ok := pc.cache[k]
	return err, ok
}

func (pc *ProofCache) store(k proofCacheKey, err error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if len(pc.cache) >= pc.config.CacheSize {
		for existing := range pc.cache {
			delete(pc.cache, existing)
			metrics.ProofCacheEvictions.Inc()
			break
		}
	}
	pc.cache[k] = err
	pc.verified.Add(1)
	metrics.ProofCacheMisses.Inc()
}

// ProofsVerified returns the number of verification calls that missed the
// cache and were forwarded to the underlying Client.
func (pc *ProofCache) ProofsVerified() uint64 {
	return pc.verified.Load()
}

// The following methods pass straight through to the wrapped Client: a
// ProofCache is meant to be a drop-in stand-in for a *Client wherever the
// CLI needs more than just the two cached proof checks (LatestHeight to
// resolve a default height, VerifyHeader to drive the sync loop, and so
// on), without every caller needing to carry both a *Client and a
// *ProofCache around.

// LatestHeight passes through to the wrapped Client.
func (pc *ProofCache) LatestHeight() (neartypes.BlockHeight, error) {
	return pc.client.LatestHeight()
}

// GetConsensusState passes through to the wrapped Client.
func (pc *ProofCache) GetConsensusState(height neartypes.BlockHeight) (*neartypes.ConsensusState, error) {
	return pc.client.GetConsensusState(height)
}

// SetConsensusState passes through to the wrapped Client.
func (pc *ProofCache) SetConsensusState(height neartypes.BlockHeight, state *neartypes.ConsensusState) error {
	return pc.client.SetConsensusState(height, state)
}

// CachedHeights passes through to the wrapped Client.
func (pc *ProofCache) CachedHeights() ([]neartypes.BlockHeight, error) {
	return pc.client.CachedHeights()
}

// EvictOldest passes through to the wrapped Client.
func (pc *ProofCache) EvictOldest() error {
	return pc.client.EvictOldest()
}

// VerifyHeader passes through to the wrapped Client. Installing a new head
// changes which heights a cached (height, key) proof result is valid for in
// principle, but proofCacheKey already binds the height itself, so stale
// cache entries are simply never looked up again once their height falls
// out of the Host's window -- no explicit invalidation is needed here.
func (pc *ProofCache) VerifyHeader(candidate *neartypes.Header) error {
	return pc.client.VerifyHeader(candidate)
}
