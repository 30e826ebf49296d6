// header_verifier.go implements NEAR light client header verification: the
// height/epoch admissibility checks, block-producer signature aggregation
// against the NEAR consensus two-thirds-stake finality rule, and the
// next-producer-set and chunk-root commitments a candidate header must
// satisfy before it can replace the trusted ConsensusState.
package light

import (
	"crypto/ed25519"
	"math/big"

	"github.com/near/light-client/merkle"
	"github.com/near/light-client/neartypes"
)

// HeaderVerifier applies the ordered checks of the header-succession state
// machine to a candidate header against a trusted ConsensusState. It holds
// no mutable state: verification is pure over its inputs.
type HeaderVerifier struct{}

// NewHeaderVerifier returns a HeaderVerifier.
func NewHeaderVerifier() *HeaderVerifier {
	return &HeaderVerifier{}
}

// VerifyHeader checks candidate against trusted and, on success, returns the
// ConsensusState to install -- current_bps carried forward on a same-epoch
// header, promoted from trusted's next_bps on an epoch transition. It
// performs no mutation; installing the returned state is the caller's
// responsibility.
func (v *HeaderVerifier) VerifyHeader(candidate *neartypes.Header, trusted *neartypes.ConsensusState) (*neartypes.ConsensusState, error) {
	h := candidate
	s := trusted

	// 1. Height monotonic.
	if h.Block.InnerLite.Height <= s.Header.Block.InnerLite.Height {
		return nil, &HeaderVerificationError{Kind: InvalidBlockHeight}
	}

	// 2. Epoch admissibility.
	sameEpoch := h.Block.InnerLite.EpochID == s.Header.Block.InnerLite.EpochID
	nextEpoch := h.Block.InnerLite.EpochID == s.Header.Block.InnerLite.NextEpochID
	if !sameEpoch && !nextEpoch {
		return nil, &HeaderVerificationError{Kind: InvalidEpochID}
	}

	// 3. Epoch-boundary must carry next producers.
	if nextEpoch && !h.Block.HasNextBPs {
		return nil, &HeaderVerificationError{Kind: MissingNextBlockProducersInHead}
	}

	// 4. Resolve producer set.
	var producers []neartypes.ValidatorStake
	switch {
	case sameEpoch && s.HasCurrentBPs:
		producers = s.CurrentBPs
	case nextEpoch && s.Header.Block.HasNextBPs:
		producers = s.Header.Block.NextBPs
	default:
		return nil, &HeaderVerificationError{Kind: MissingCachedEpochBlockProducers, EpochID: h.Block.InnerLite.EpochID}
	}

	// 5. Signature/stake aggregation. This module requires equal lengths
	// rather than verifying only a common prefix (resolved ambiguity).
	approvals := h.Block.ApprovalsAfterNext
	if len(approvals) != len(producers) {
		return nil, &HeaderVerificationError{Kind: InvalidValidatorSignatureCount}
	}

	approvalMessage := neartypes.ApprovalMessage(&h.Block)
	totalStake := big.NewInt(0)
	approvedStake := big.NewInt(0)
	for i, producer := range producers {
		totalStake.Add(totalStake, producer.V1.Stake)
		sig := approvals[i]
		if sig == nil {
			continue
		}
		if !ed25519.Verify(producer.V1.PublicKey.ED25519[:], approvalMessage, sig.ED25519[:]) {
			return nil, &HeaderVerificationError{Kind: InvalidValidatorSignature, SignatureIndex: i, PublicKey: producer.V1.PublicKey}
		}
		approvedStake.Add(approvedStake, producer.V1.Stake)
	}

	// 6. Finality threshold: approved_stake*3 > total_stake*2, strict.
	lhs := new(big.Int).Mul(approvedStake, big.NewInt(3))
	rhs := new(big.Int).Mul(totalStake, big.NewInt(2))
	if lhs.Cmp(rhs) <= 0 {
		return nil, &HeaderVerificationError{Kind: BlockIsNotFinal}
	}

	// 7. Next-producer commitment.
	if h.Block.HasNextBPs {
		want := neartypes.Sha256(neartypes.EncodeValidatorStakes(h.Block.NextBPs))
		if want != h.Block.InnerLite.NextBPHash {
			return nil, &HeaderVerificationError{Kind: InvalidNextBlockProducersHash}
		}
	}

	// 8. Chunk root commitment.
	chunkRoot := merkle.RootOfHashes(h.PrevStateRootOfChunks)
	if chunkRoot != h.Block.InnerLite.PrevStateRoot {
		return nil, &HeaderVerificationError{Kind: InvalidPrevStateRootOfChunks}
	}

	installed := &neartypes.ConsensusState{Header: *h}
	switch {
	case sameEpoch:
		installed.HasCurrentBPs = s.HasCurrentBPs
		installed.CurrentBPs = s.CurrentBPs
	case nextEpoch:
		installed.HasCurrentBPs = s.Header.Block.HasNextBPs
		installed.CurrentBPs = s.Header.Block.NextBPs
	}
	return installed, nil
}
