package neartypes

import (
	"math/big"
	"testing"
)

func sampleInnerLite() BlockHeaderInnerLite {
	return BlockHeaderInnerLite{
		Height:           120,
		EpochID:          Sha256([]byte("epoch-1")),
		NextEpochID:      Sha256([]byte("epoch-2")),
		PrevStateRoot:    Sha256([]byte("state-root")),
		OutcomeRoot:      Sha256([]byte("outcome-root")),
		TimestampNanosec: 1_700_000_000_000_000_000,
		NextBPHash:       Sha256([]byte("next-bp-hash")),
		BlockMerkleRoot:  Sha256([]byte("block-merkle-root")),
	}
}

func TestBlockHeaderInnerLiteRoundTrip(t *testing.T) {
	h := sampleInnerLite()
	encoded := h.Encode()
	got, err := DecodeBlockHeaderInnerLite(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != h {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *got, h)
	}
}

func TestPublicKeyRejectsUnknownDiscriminant(t *testing.T) {
	d := NewDecoder([]byte{1, 0, 0, 0}) // discriminant 1 = would-be secp256k1
	if _, err := DecodePublicKey(d); err == nil {
		t.Fatalf("expected rejection of non-ed25519 discriminant")
	}
}

func TestSignatureRejectsUnknownDiscriminant(t *testing.T) {
	d := NewDecoder([]byte{7, 0, 0, 0})
	if _, err := DecodeSignature(d); err == nil {
		t.Fatalf("expected rejection of unknown signature discriminant")
	}
}

func TestValidatorStakeRoundTrip(t *testing.T) {
	vs := ValidatorStake{V1: ValidatorStakeV1{
		AccountID: "producer.near",
		PublicKey: PublicKey{KeyType: KeyTypeED25519, ED25519: [32]byte{1, 2, 3}},
		Stake:     big.NewInt(1_000_000),
	}}
	e := NewEncoder()
	vs.Encode(e)
	d := NewDecoder(e.Bytes())
	got, err := DecodeValidatorStake(d)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.V1.AccountID != vs.V1.AccountID {
		t.Fatalf("account id mismatch: %q != %q", got.V1.AccountID, vs.V1.AccountID)
	}
	if got.V1.Stake.Cmp(vs.V1.Stake) != 0 {
		t.Fatalf("stake mismatch: %s != %s", got.V1.Stake, vs.V1.Stake)
	}
	if got.V1.PublicKey.ED25519 != vs.V1.PublicKey.ED25519 {
		t.Fatalf("public key mismatch")
	}
}

func TestValidatorStakeRejectsUnknownVariant(t *testing.T) {
	d := NewDecoder([]byte{1})
	if _, err := DecodeValidatorStake(d); err == nil {
		t.Fatalf("expected rejection of unknown validator stake variant")
	}
}

func sampleBlock() *LightClientBlock {
	return &LightClientBlock{
		PrevBlockHash:      Sha256([]byte("prev-block")),
		NextBlockInnerHash: Sha256([]byte("next-block-inner")),
		InnerLite:          sampleInnerLite(),
		InnerRestHash:      Sha256([]byte("inner-rest")),
	}
}

func TestCurrentBlockHashFormula(t *testing.T) {
	b := sampleBlock()
	innerLiteHash := Sha256(b.InnerLite.Encode())
	want := Combine(Combine(innerLiteHash, b.InnerRestHash), b.PrevBlockHash)
	if got := CurrentBlockHash(b); got != want {
		t.Fatalf("CurrentBlockHash mismatch: got %v want %v", got, want)
	}
}

func TestCurrentBlockHashDeterministic(t *testing.T) {
	b1 := sampleBlock()
	b2 := sampleBlock()
	if CurrentBlockHash(b1) != CurrentBlockHash(b2) {
		t.Fatalf("current block hash not deterministic across identical inputs")
	}
}

func TestNextBlockHashFormula(t *testing.T) {
	b := sampleBlock()
	want := Combine(b.NextBlockInnerHash, CurrentBlockHash(b))
	if got := NextBlockHash(b); got != want {
		t.Fatalf("NextBlockHash mismatch: got %v want %v", got, want)
	}
}

func TestApprovalMessageLayout(t *testing.T) {
	b := sampleBlock()
	msg := ApprovalMessage(b)

	nextHash := NextBlockHash(b)
	inner := NewEndorsement(nextHash)
	e := NewEncoder()
	inner.Encode(e)
	wantPrefix := e.Bytes()

	if len(msg) != len(wantPrefix)+8 {
		t.Fatalf("unexpected approval message length: %d", len(msg))
	}
	for i := range wantPrefix {
		if msg[i] != wantPrefix[i] {
			t.Fatalf("approval message prefix mismatch at byte %d", i)
		}
	}
	var h uint64
	for i := 0; i < 8; i++ {
		h |= uint64(msg[len(wantPrefix)+i]) << (8 * i)
	}
	if h != b.InnerLite.Height+2 {
		t.Fatalf("approval message height mismatch: got %d want %d", h, b.InnerLite.Height+2)
	}
}

func sampleValidatorStake(name string, stake int64) ValidatorStake {
	return ValidatorStake{V1: ValidatorStakeV1{
		AccountID: name,
		PublicKey: PublicKey{KeyType: KeyTypeED25519, ED25519: [32]byte{byte(len(name))}},
		Stake:     big.NewInt(stake),
	}}
}

func TestLightClientBlockRoundTrip(t *testing.T) {
	sig := Signature{KeyType: KeyTypeED25519, ED25519: [64]byte{9, 9, 9}}
	b := sampleBlock()
	b.HasNextBPs = true
	b.NextBPs = []ValidatorStake{sampleValidatorStake("p1.near", 100), sampleValidatorStake("p2.near", 200)}
	b.ApprovalsAfterNext = []*Signature{&sig, nil}

	e := NewEncoder()
	b.Encode(e)
	d := NewDecoder(e.Bytes())
	got, err := DecodeLightClientBlock(d)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PrevBlockHash != b.PrevBlockHash || got.InnerRestHash != b.InnerRestHash {
		t.Fatalf("fixed-field mismatch")
	}
	if !got.HasNextBPs || len(got.NextBPs) != 2 || got.NextBPs[0].V1.AccountID != "p1.near" {
		t.Fatalf("next_bps mismatch: %+v", got.NextBPs)
	}
	if len(got.ApprovalsAfterNext) != 2 || got.ApprovalsAfterNext[0].ED25519 != sig.ED25519 || got.ApprovalsAfterNext[1] != nil {
		t.Fatalf("approvals mismatch: %+v", got.ApprovalsAfterNext)
	}
	if !d.Done() {
		t.Fatalf("decoder left %d unread bytes", d.Remaining())
	}
}

func TestConsensusStateRoundTrip(t *testing.T) {
	h := Header{
		Block:                 *sampleBlock(),
		PrevStateRootOfChunks: []CryptoHash{Sha256([]byte("chunk-0")), Sha256([]byte("chunk-1"))},
	}
	cs := ConsensusState{
		Header:        h,
		HasCurrentBPs: true,
		CurrentBPs:    []ValidatorStake{sampleValidatorStake("p1.near", 100)},
	}
	encoded := cs.Encode()
	got, err := DecodeConsensusState(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Header.PrevStateRootOfChunks) != 2 || got.Header.PrevStateRootOfChunks[1] != h.PrevStateRootOfChunks[1] {
		t.Fatalf("prev_state_root_of_chunks mismatch")
	}
	if !got.HasCurrentBPs || len(got.CurrentBPs) != 1 || got.CurrentBPs[0].V1.AccountID != "p1.near" {
		t.Fatalf("current_bps mismatch: %+v", got.CurrentBPs)
	}
}
