package light

import (
	"crypto/ed25519"
	"errors"
	"math/big"
	"testing"

	"github.com/near/light-client/merkle"
	"github.com/near/light-client/neartypes"
)

type testProducer struct {
	stake neartypes.ValidatorStake
	priv  ed25519.PrivateKey
}

func makeTestProducers(t *testing.T, n int, stakeEach int64) []testProducer {
	t.Helper()
	out := make([]testProducer, n)
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		var pk neartypes.PublicKey
		pk.KeyType = neartypes.KeyTypeED25519
		copy(pk.ED25519[:], pub)
		out[i] = testProducer{
			stake: neartypes.ValidatorStake{V1: neartypes.ValidatorStakeV1{
				AccountID: "producer.near",
				PublicKey: pk,
				Stake:     big.NewInt(stakeEach),
			}},
			priv: priv,
		}
	}
	return out
}

func producerStakes(ps []testProducer) []neartypes.ValidatorStake {
	out := make([]neartypes.ValidatorStake, len(ps))
	for i, p := range ps {
		out[i] = p.stake
	}
	return out
}

// buildCandidate constructs a candidate header in epoch epochID,
// with nSigning of the given producers signing the approval message in
// order; the rest are absent (nil signature). If nextBPs is non-nil, the
// candidate carries it as next_bps (with a matching next_bp_hash) before the
// approval message -- which commits to the full inner-lite encoding -- is
// computed and signed.
func buildCandidate(t *testing.T, epochID, nextEpochID neartypes.EpochID, height uint64, producers []testProducer, nSigning int, nextBPs []testProducer) *neartypes.Header {
	t.Helper()
	chunks := []neartypes.CryptoHash{neartypes.Sha256([]byte("chunk-0")), neartypes.Sha256([]byte("chunk-1"))}
	prevStateRoot := merkle.RootOfHashes(chunks)

	block := neartypes.LightClientBlock{
		PrevBlockHash:      neartypes.Sha256([]byte("prev-block")),
		NextBlockInnerHash: neartypes.Sha256([]byte("next-block-inner")),
		InnerLite: neartypes.BlockHeaderInnerLite{
			Height:           height,
			EpochID:          epochID,
			NextEpochID:      nextEpochID,
			PrevStateRoot:    prevStateRoot,
			OutcomeRoot:      neartypes.Sha256([]byte("outcome-root")),
			TimestampNanosec: 1_700_000_000_000_000_000,
			NextBPHash:       neartypes.ZeroHash,
			BlockMerkleRoot:  neartypes.Sha256([]byte("block-merkle-root")),
		},
		InnerRestHash: neartypes.Sha256([]byte("inner-rest")),
	}
	if nextBPs != nil {
		block.HasNextBPs = true
		block.NextBPs = producerStakes(nextBPs)
		block.InnerLite.NextBPHash = neartypes.Sha256(neartypes.EncodeValidatorStakes(block.NextBPs))
	}

	msg := neartypes.ApprovalMessage(&block)
	approvals := make([]*neartypes.Signature, len(producers))
	for i := 0; i < nSigning && i < len(producers); i++ {
		sig := ed25519.Sign(producers[i].priv, msg)
		var s neartypes.Signature
		s.KeyType = neartypes.KeyTypeED25519
		copy(s.ED25519[:], sig)
		approvals[i] = &s
	}
	block.ApprovalsAfterNext = approvals

	return &neartypes.Header{Block: block, PrevStateRootOfChunks: chunks}
}

func buildTrusted(height uint64, epochID, nextEpochID neartypes.EpochID, currentBPs, nextBPs []testProducer) *neartypes.ConsensusState {
	trustedBlock := neartypes.LightClientBlock{
		InnerLite: neartypes.BlockHeaderInnerLite{
			Height:      height,
			EpochID:     epochID,
			NextEpochID: nextEpochID,
		},
	}
	if nextBPs != nil {
		trustedBlock.HasNextBPs = true
		trustedBlock.NextBPs = producerStakes(nextBPs)
	}
	return &neartypes.ConsensusState{
		Header:        neartypes.Header{Block: trustedBlock},
		HasCurrentBPs: currentBPs != nil,
		CurrentBPs:    producerStakes(currentBPs),
	}
}

func TestVerifyHeaderAcceptsUnanimousApproval(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	candidate := buildCandidate(t, epochE1, epochE2, 120, producers, 3, nil)

	v := NewHeaderVerifier()
	installed, err := v.VerifyHeader(candidate, trusted)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !installed.HasCurrentBPs || len(installed.CurrentBPs) != 3 {
		t.Fatalf("expected current_bps carried forward, got %+v", installed.CurrentBPs)
	}
}

func TestVerifyHeaderRejectsNonMonotonicHeight(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	candidate := buildCandidate(t, epochE1, epochE2, 100, producers, 3, nil)

	v := NewHeaderVerifier()
	_, err := v.VerifyHeader(candidate, trusted)
	var hErr *HeaderVerificationError
	if !errors.As(err, &hErr) || hErr.Kind != InvalidBlockHeight {
		t.Fatalf("expected InvalidBlockHeight, got %v", err)
	}
}

func TestVerifyHeaderRejectsMissingNextBPsAtEpochBoundary(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	epochE3 := neartypes.Sha256([]byte("epoch-3"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	// Candidate claims epoch E2 (trusted's next_epoch_id) but carries no next_bps.
	candidate := buildCandidate(t, epochE2, epochE3, 120, producers, 3, nil)

	v := NewHeaderVerifier()
	_, err := v.VerifyHeader(candidate, trusted)
	var hErr *HeaderVerificationError
	if !errors.As(err, &hErr) || hErr.Kind != MissingNextBlockProducersInHead {
		t.Fatalf("expected MissingNextBlockProducersInHead, got %v", err)
	}
}

func TestVerifyHeaderRejectsExactlyTwoThirds(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	candidate := buildCandidate(t, epochE1, epochE2, 120, producers, 2, nil)

	v := NewHeaderVerifier()
	_, err := v.VerifyHeader(candidate, trusted)
	var hErr *HeaderVerificationError
	if !errors.As(err, &hErr) || hErr.Kind != BlockIsNotFinal {
		t.Fatalf("expected BlockIsNotFinal for exactly 2/3 stake, got %v", err)
	}
}

func TestVerifyHeaderRejectsBadChunkRoot(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	candidate := buildCandidate(t, epochE1, epochE2, 120, producers, 3, nil)
	candidate.Block.InnerLite.PrevStateRoot = neartypes.Sha256([]byte("not the chunk root"))

	v := NewHeaderVerifier()
	_, err := v.VerifyHeader(candidate, trusted)
	var hErr *HeaderVerificationError
	if !errors.As(err, &hErr) || hErr.Kind != InvalidPrevStateRootOfChunks {
		t.Fatalf("expected InvalidPrevStateRootOfChunks, got %v", err)
	}
}

func TestVerifyHeaderRejectsBadSignature(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	candidate := buildCandidate(t, epochE1, epochE2, 120, producers, 3, nil)
	// Corrupt the first signature.
	corrupt := *candidate.Block.ApprovalsAfterNext[0]
	corrupt.ED25519[0] ^= 0xff
	candidate.Block.ApprovalsAfterNext[0] = &corrupt

	v := NewHeaderVerifier()
	_, err := v.VerifyHeader(candidate, trusted)
	var hErr *HeaderVerificationError
	if !errors.As(err, &hErr) || hErr.Kind != InvalidValidatorSignature {
		t.Fatalf("expected InvalidValidatorSignature, got %v", err)
	}
}

func TestVerifyHeaderRejectsSignatureCountMismatch(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, producers, producers)
	candidate := buildCandidate(t, epochE1, epochE2, 120, producers, 3, nil)
	candidate.Block.ApprovalsAfterNext = candidate.Block.ApprovalsAfterNext[:2]

	v := NewHeaderVerifier()
	_, err := v.VerifyHeader(candidate, trusted)
	var hErr *HeaderVerificationError
	if !errors.As(err, &hErr) || hErr.Kind != InvalidValidatorSignatureCount {
		t.Fatalf("expected InvalidValidatorSignatureCount, got %v", err)
	}
}

func TestVerifyHeaderEpochTransitionPromotesNextBPs(t *testing.T) {
	epochE1 := neartypes.Sha256([]byte("epoch-1"))
	epochE2 := neartypes.Sha256([]byte("epoch-2"))
	epochE3 := neartypes.Sha256([]byte("epoch-3"))
	e1Producers := makeTestProducers(t, 3, 100)
	e2Producers := makeTestProducers(t, 3, 100)

	trusted := buildTrusted(100, epochE1, epochE2, e1Producers, e2Producers)
	candidate := buildCandidate(t, epochE2, epochE3, 120, e2Producers, 3, e2Producers)

	v := NewHeaderVerifier()
	installed, err := v.VerifyHeader(candidate, trusted)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !installed.HasCurrentBPs || len(installed.CurrentBPs) != 3 {
		t.Fatalf("expected current_bps promoted from trusted next_bps, got %+v", installed.CurrentBPs)
	}
}
