package light

import (
	"os"
	"strconv"

	"github.com/near/light-client/merkle"
	"github.com/near/light-client/metrics"
	"github.com/near/light-client/neartypes"
	"github.com/near/light-client/trie"
)

// Client is the facade exposing the four verification operations of spec
// 4.E over a Host's cached ConsensusStates. It holds no trust state of its
// own beyond what the Host persists; every method is pure over its inputs
// plus whatever the Host returns.
type Client struct {
	host     Host
	verifier *HeaderVerifier
}

// NewClient builds a Client over host.
func NewClient(host Host) *Client {
	return &Client{host: host, verifier: NewHeaderVerifier()}
}

// LatestHeight returns the highest height the Host has ever cached.
func (c *Client) LatestHeight() (neartypes.BlockHeight, error) {
	return c.host.LatestHeight()
}

// GetConsensusState returns the cached state at height.
func (c *Client) GetConsensusState(height neartypes.BlockHeight) (*neartypes.ConsensusState, error) {
	return c.host.GetConsensusState(height)
}

// SetConsensusState installs state at height, bypassing verify_header. Used
// to bootstrap a client from a trusted checkpoint.
func (c *Client) SetConsensusState(height neartypes.BlockHeight, state *neartypes.ConsensusState) error {
	return c.host.SetConsensusState(height, state)
}

// CachedHeights lists every height the Host currently holds.
func (c *Client) CachedHeights() ([]neartypes.BlockHeight, error) {
	return c.host.CachedHeights()
}

// EvictOldest asks the Host to drop its smallest non-latest cached height.
func (c *Client) EvictOldest() error {
	return c.host.EvictOldest()
}

// VerifyHeader loads the latest trusted ConsensusState, applies the header
// verifier (spec 4.D) against candidate, and on success installs the
// resulting state at candidate's height. A FileHost additionally receives
// the raw, unverified candidate under its failed_head directory when
// verification fails, for forensic inspection -- it is never promoted into
// the cache.
func (c *Client) VerifyHeader(candidate *neartypes.Header) error {
	timer := metrics.NewTimer(metrics.HeaderVerifyLatency)
	defer timer.Stop()

	latest, err := c.host.LatestHeight()
	if err != nil {
		return err
	}
	trusted, err := c.host.GetConsensusState(latest)
	if err != nil {
		return err
	}
	installed, err := c.verifier.VerifyHeader(candidate, trusted)
	if err != nil {
		metrics.HeadersRejected.Inc()
		c.recordFailure(candidate)
		return err
	}
	if err := c.host.SetConsensusState(candidate.Block.InnerLite.Height, installed); err != nil {
		return err
	}
	metrics.HeadersVerified.Inc()
	metrics.LatestHeight.Set(int64(candidate.Block.InnerLite.Height))
	return nil
}

func (c *Client) recordFailure(candidate *neartypes.Header) {
	fh, ok := c.host.(*FileHost)
	if !ok {
		return
	}
	path := fh.FailedHeadFile(candidate.Block.InnerLite.Height)
	_ = os.WriteFile(path, candidate.Encode(), 0o644)
}

// VerifyMembership loads the ConsensusState cached at height, recomputes
// the proof list's implied root and requires it be one of the header's
// prev_state_root_of_chunks (the caller must have fetched proofs at
// height-1, since prev_state_root commits to pre-block state), then applies
// the trie membership walk of spec 4.C.
func (c *Client) VerifyMembership(height neartypes.BlockHeight, key, value []byte, rawProofs [][]byte) error {
	timer := metrics.NewTimer(metrics.ProofVerifyLatency)
	defer timer.Stop()

	nodes, root, shardIndex, err := c.prepareProof(height, rawProofs)
	if err != nil {
		metrics.ProofRejected.Inc()
		return err
	}
	if err := trie.VerifyMembership(key, value, nodes, root); err != nil {
		metrics.ProofRejected.Inc()
		return err
	}
	metrics.MembershipVerified.Inc()
	metrics.ShardProofsVerified.WithLabel(strconv.Itoa(shardIndex)).Inc()
	return nil
}

// VerifyNonMembership is VerifyMembership's non-membership counterpart.
func (c *Client) VerifyNonMembership(height neartypes.BlockHeight, key []byte, rawProofs [][]byte) error {
	timer := metrics.NewTimer(metrics.ProofVerifyLatency)
	defer timer.Stop()

	nodes, root, shardIndex, err := c.prepareProof(height, rawProofs)
	if err != nil {
		metrics.ProofRejected.Inc()
		return err
	}
	if err := trie.VerifyNonMembership(key, nodes, root); err != nil {
		metrics.ProofRejected.Inc()
		return err
	}
	metrics.NonMembershipVerified.Inc()
	metrics.ShardProofsVerified.WithLabel(strconv.Itoa(shardIndex)).Inc()
	return nil
}

// prepareProof decodes rawProofs and locates which of the header's
// prev_state_root_of_chunks entries the proof's implied root matches,
// returning that entry's index as the proof's shard index.
func (c *Client) prepareProof(height neartypes.BlockHeight, rawProofs [][]byte) ([]*trie.RawTrieNodeWithSize, neartypes.CryptoHash, int, error) {
	if len(rawProofs) == 0 {
		return nil, neartypes.CryptoHash{}, 0, &trie.StateProofVerificationError{Kind: trie.MissingProofData}
	}
	state, err := c.host.GetConsensusState(height)
	if err != nil {
		return nil, neartypes.CryptoHash{}, 0, err
	}
	root := neartypes.Sha256(rawProofs[0])
	shardIndex := -1
	for i, r := range state.Header.PrevStateRootOfChunks {
		if r == root {
			shardIndex = i
			break
		}
	}
	if shardIndex < 0 {
		return nil, neartypes.CryptoHash{}, 0, &trie.StateProofVerificationError{Kind: trie.InvalidRootHashOfProofData}
	}
	nodes := make([]*trie.RawTrieNodeWithSize, len(rawProofs))
	for i, raw := range rawProofs {
		n, err := trie.DecodeRawTrieNodeWithSize(raw)
		if err != nil {
			return nil, neartypes.CryptoHash{}, 0, &trie.StateProofVerificationError{Kind: trie.InvalidProofData, ProofIndex: uint16(i)}
		}
		nodes[i] = n
	}
	return nodes, root, shardIndex, nil
}

// VerifyTransactionOrReceipt checks a transaction/receipt inclusion proof
// against the chunk's outcome root, the block's outcome root, and the
// client's trusted block_merkle_root (spec 4.E). latest is the trusted
// ConsensusState blockLite is checked against -- ordinarily the client's own
// latest cached state.
func (c *Client) VerifyTransactionOrReceipt(
	outcome *neartypes.OutcomeWithID,
	outcomeProof merkle.Path,
	outcomeRootProof merkle.Path,
	blockLite *neartypes.LightClientBlock,
	blockProof merkle.Path,
	latest *neartypes.ConsensusState,
) error {
	chunkOutcomeRoot := merkle.ComputeRoot(outcomeProof, outcome.LeafHash())
	outcomeRoot := merkle.ComputeRoot(outcomeRootProof, neartypes.Sha256(chunkOutcomeRoot.Bytes()))
	if outcomeRoot != blockLite.InnerLite.OutcomeRoot {
		metrics.TransactionsRejected.Inc()
		return &TransactionVerificationError{Kind: InvalidOutcomeProof}
	}

	blockRoot := merkle.ComputeRoot(blockProof, neartypes.CurrentBlockHash(blockLite))
	if blockRoot != latest.Header.Block.InnerLite.BlockMerkleRoot {
		metrics.TransactionsRejected.Inc()
		return &TransactionVerificationError{Kind: InvalidBlockProof}
	}
	metrics.TransactionsVerified.Inc()
	return nil
}
