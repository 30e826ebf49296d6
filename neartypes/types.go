package neartypes

import (
	"fmt"
	"math/big"
)

// BlockHeight is a NEAR block height.
type BlockHeight = uint64

// EpochID identifies an epoch; epochs are identified by the hash of their
// first block.
type EpochID = CryptoHash

// BlockHeaderInnerLite is the fixed-shape record whose canonical encoding
// feeds current_block_hash (spec 4.A). Field order is part of the wire
// format and must not change.
type BlockHeaderInnerLite struct {
	Height           BlockHeight
	EpochID          EpochID
	NextEpochID      EpochID
	PrevStateRoot    CryptoHash
	OutcomeRoot      CryptoHash
	TimestampNanosec uint64
	NextBPHash       CryptoHash
	BlockMerkleRoot  CryptoHash
}

// blockHeaderInnerLiteSize is the fixed byte length of a BlockHeaderInnerLite
// encoding: two u64 fields and six 32-byte hashes.
const blockHeaderInnerLiteSize = 8 + 32 + 32 + 32 + 32 + 8 + 32 + 32

// Encode produces the canonical byte-exact encoding of the header's
// inner-lite fields, matching the bytes full nodes hash when computing
// current_block_hash.
func (h *BlockHeaderInnerLite) Encode() []byte {
	e := NewEncoder()
	e.WriteUint64(h.Height)
	e.WriteHash(h.EpochID)
	e.WriteHash(h.NextEpochID)
	e.WriteHash(h.PrevStateRoot)
	e.WriteHash(h.OutcomeRoot)
	e.WriteUint64(h.TimestampNanosec)
	e.WriteHash(h.NextBPHash)
	e.WriteHash(h.BlockMerkleRoot)
	return e.Bytes()
}

// DecodeBlockHeaderInnerLite reconstructs a BlockHeaderInnerLite from its
// canonical encoding.
func DecodeBlockHeaderInnerLite(b []byte) (*BlockHeaderInnerLite, error) {
	d := NewDecoder(b)
	var h BlockHeaderInnerLite
	var err error
	if h.Height, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if h.EpochID, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if h.NextEpochID, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if h.PrevStateRoot, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if h.OutcomeRoot, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if h.TimestampNanosec, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if h.NextBPHash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if h.BlockMerkleRoot, err = d.ReadHash(); err != nil {
		return nil, err
	}
	return &h, nil
}

// KeyType is the discriminant byte for PublicKey/Signature tagged sums.
// ED25519 is the sole accepted variant (spec 3, resolved ambiguity A.3):
// a declared but unimplemented Secp256k1 variant would be discriminant 1
// in NEAR's own wire format, but this codec has no payload shape for it
// and rejects any discriminant other than 0 at decode time.
type KeyType uint8

// KeyTypeED25519 is the only recognised key/signature discriminant.
const KeyTypeED25519 KeyType = 0

// PublicKey is a tagged public key. Only Ed25519 is accepted; decoding any
// other discriminant fails rather than silently passing an unusable key
// through to signature verification.
type PublicKey struct {
	KeyType KeyType
	ED25519 [32]byte
}

// Encode writes the discriminant byte followed by the 32-byte key.
func (k *PublicKey) Encode(e *Encoder) {
	e.WriteByte(byte(k.KeyType))
	e.WriteBytes(k.ED25519[:])
}

// DecodePublicKey reads a tagged public key, rejecting unknown discriminants.
func DecodePublicKey(d *Decoder) (*PublicKey, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if KeyType(tag) != KeyTypeED25519 {
		return nil, fmt.Errorf("%w: public key type %d", ErrUnknownDiscriminant, tag)
	}
	b, err := d.ReadBytes(32)
	if err != nil {
		return nil, err
	}
	pk := &PublicKey{KeyType: KeyTypeED25519}
	copy(pk.ED25519[:], b)
	return pk, nil
}

// Signature is a tagged signature. Only Ed25519 is accepted.
type Signature struct {
	KeyType KeyType
	ED25519 [64]byte
}

// Encode writes the discriminant byte followed by the 64-byte signature.
func (s *Signature) Encode(e *Encoder) {
	e.WriteByte(byte(s.KeyType))
	e.WriteBytes(s.ED25519[:])
}

// DecodeSignature reads a tagged signature, rejecting unknown discriminants.
func DecodeSignature(d *Decoder) (*Signature, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if KeyType(tag) != KeyTypeED25519 {
		return nil, fmt.Errorf("%w: signature type %d", ErrUnknownDiscriminant, tag)
	}
	b, err := d.ReadBytes(64)
	if err != nil {
		return nil, err
	}
	sig := &Signature{KeyType: KeyTypeED25519}
	copy(sig.ED25519[:], b)
	return sig, nil
}

// ValidatorStakeV1 is the sole recognised ValidatorStake variant.
type ValidatorStakeV1 struct {
	AccountID string
	PublicKey PublicKey
	Stake     *big.Int
}

// ValidatorStakeDiscriminantV1 is the discriminant for the V1 variant.
const ValidatorStakeDiscriminantV1 = 0

// ValidatorStake is a versioned sum type; V1 is the only variant NEAR has
// ever shipped, but the discriminant byte is still part of the wire format.
type ValidatorStake struct {
	V1 ValidatorStakeV1
}

// Encode writes the V1 discriminant followed by the account id, public key,
// and stake.
func (v *ValidatorStake) Encode(e *Encoder) {
	e.WriteByte(ValidatorStakeDiscriminantV1)
	e.WriteString(v.V1.AccountID)
	v.V1.PublicKey.Encode(e)
	e.WriteBalance(v.V1.Stake)
}

// DecodeValidatorStake reads a tagged ValidatorStake, rejecting unknown
// discriminants.
func DecodeValidatorStake(d *Decoder) (*ValidatorStake, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag != ValidatorStakeDiscriminantV1 {
		return nil, fmt.Errorf("%w: validator stake variant %d", ErrUnknownDiscriminant, tag)
	}
	accountID, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	pk, err := DecodePublicKey(d)
	if err != nil {
		return nil, err
	}
	stake, err := d.ReadBalance()
	if err != nil {
		return nil, err
	}
	return &ValidatorStake{V1: ValidatorStakeV1{AccountID: accountID, PublicKey: *pk, Stake: stake}}, nil
}

// EncodeValidatorStakes canonically encodes an ordered sequence of
// ValidatorStake values: a u32-LE count followed by each encoding. This is
// the byte sequence hashed to check next_bp_hash (spec 4.D.7).
func EncodeValidatorStakes(stakes []ValidatorStake) []byte {
	e := NewEncoder()
	e.SeqLen(len(stakes))
	for i := range stakes {
		stakes[i].Encode(e)
	}
	return e.Bytes()
}

// ApprovalInner is the tagged sum signed (as part of the approval message)
// by block producers endorsing a block two heights ahead. Only Endorsement
// is ever produced by this client; Skip exists for wire-format completeness.
type ApprovalInner struct {
	IsSkip      bool
	Endorsement CryptoHash
	SkipHeight  BlockHeight
}

const (
	approvalInnerDiscriminantEndorsement = 0
	approvalInnerDiscriminantSkip        = 1
)

// Encode writes the discriminant byte followed by the variant payload.
func (a *ApprovalInner) Encode(e *Encoder) {
	if a.IsSkip {
		e.WriteByte(approvalInnerDiscriminantSkip)
		e.WriteUint64(a.SkipHeight)
		return
	}
	e.WriteByte(approvalInnerDiscriminantEndorsement)
	e.WriteHash(a.Endorsement)
}

// NewEndorsement builds the ApprovalInner::Endorsement variant used in
// approval_message construction (spec 4.A).
func NewEndorsement(nextBlockHash CryptoHash) ApprovalInner {
	return ApprovalInner{Endorsement: nextBlockHash}
}

// LightClientBlock is the foreign block view offered as a header-succession
// candidate (spec 3).
type LightClientBlock struct {
	PrevBlockHash      CryptoHash
	NextBlockInnerHash CryptoHash
	InnerLite          BlockHeaderInnerLite
	InnerRestHash      CryptoHash
	NextBPs            []ValidatorStake // nil means absent
	HasNextBPs         bool
	ApprovalsAfterNext []*Signature // nil element means that producer did not sign
}

// CurrentBlockHash implements spec 4.A:
// combine(combine(sha256(encode(inner_lite)), inner_rest_hash), prev_block_hash).
func CurrentBlockHash(b *LightClientBlock) CryptoHash {
	innerLiteHash := Sha256(b.InnerLite.Encode())
	step1 := Combine(innerLiteHash, b.InnerRestHash)
	return Combine(step1, b.PrevBlockHash)
}

// NextBlockHash implements spec 4.A: combine(next_block_inner_hash, current_block_hash(block)).
func NextBlockHash(b *LightClientBlock) CryptoHash {
	return Combine(b.NextBlockInnerHash, CurrentBlockHash(b))
}

// ApprovalMessage implements spec 4.A:
// encode(ApprovalInner::Endorsement(next_block_hash(block))) || le_u64(height+2).
func ApprovalMessage(b *LightClientBlock) []byte {
	nextHash := NextBlockHash(b)
	inner := NewEndorsement(nextHash)
	e := NewEncoder()
	inner.Encode(e)
	msg := e.Bytes()

	var heightBuf [8]byte
	h := b.InnerLite.Height + 2
	for i := 0; i < 8; i++ {
		heightBuf[i] = byte(h >> (8 * i))
	}
	return append(msg, heightBuf[:]...)
}

// Encode writes the canonical encoding of a LightClientBlock: the fixed
// hash/inner-lite fields in order, then an optional next_bps sequence, then
// the approvals_after_next sequence of optional signatures.
func (b *LightClientBlock) Encode(e *Encoder) {
	e.WriteHash(b.PrevBlockHash)
	e.WriteHash(b.NextBlockInnerHash)
	e.WriteBytes(b.InnerLite.Encode())
	e.WriteHash(b.InnerRestHash)
	e.WriteOption(b.HasNextBPs, func() {
		e.SeqLen(len(b.NextBPs))
		for i := range b.NextBPs {
			b.NextBPs[i].Encode(e)
		}
	})
	e.SeqLen(len(b.ApprovalsAfterNext))
	for _, sig := range b.ApprovalsAfterNext {
		e.WriteOption(sig != nil, func() { sig.Encode(e) })
	}
}

// DecodeLightClientBlock reconstructs a LightClientBlock from its canonical
// encoding.
func DecodeLightClientBlock(d *Decoder) (*LightClientBlock, error) {
	var b LightClientBlock
	var err error
	if b.PrevBlockHash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if b.NextBlockInnerHash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	innerLiteBytes, err := d.ReadBytes(blockHeaderInnerLiteSize)
	if err != nil {
		return nil, err
	}
	innerLite, err := DecodeBlockHeaderInnerLite(innerLiteBytes)
	if err != nil {
		return nil, err
	}
	b.InnerLite = *innerLite
	if b.InnerRestHash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if b.HasNextBPs, err = d.ReadOptionPresent(); err != nil {
		return nil, err
	}
	if b.HasNextBPs {
		n, err := d.ReadSeqLen()
		if err != nil {
			return nil, err
		}
		b.NextBPs = make([]ValidatorStake, n)
		for i := 0; i < n; i++ {
			vs, err := DecodeValidatorStake(d)
			if err != nil {
				return nil, err
			}
			b.NextBPs[i] = *vs
		}
	}
	n, err := d.ReadSeqLen()
	if err != nil {
		return nil, err
	}
	b.ApprovalsAfterNext = make([]*Signature, n)
	for i := 0; i < n; i++ {
		present, err := d.ReadOptionPresent()
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		sig, err := DecodeSignature(d)
		if err != nil {
			return nil, err
		}
		b.ApprovalsAfterNext[i] = sig
	}
	return &b, nil
}

// Header is the trusted-side header: a LightClientBlock plus the
// prev_state_root of each shard chunk at the block's height (spec 3).
type Header struct {
	Block                 LightClientBlock
	PrevStateRootOfChunks []CryptoHash
}

// Encode writes the canonical encoding of a Header.
func (h *Header) Encode() []byte {
	e := NewEncoder()
	h.Block.Encode(e)
	e.SeqLen(len(h.PrevStateRootOfChunks))
	for _, r := range h.PrevStateRootOfChunks {
		e.WriteHash(r)
	}
	return e.Bytes()
}

// DecodeHeader reconstructs a Header from its canonical encoding.
func DecodeHeader(b []byte) (*Header, error) {
	d := NewDecoder(b)
	block, err := DecodeLightClientBlock(d)
	if err != nil {
		return nil, err
	}
	n, err := d.ReadSeqLen()
	if err != nil {
		return nil, err
	}
	roots := make([]CryptoHash, n)
	for i := range roots {
		if roots[i], err = d.ReadHash(); err != nil {
			return nil, err
		}
	}
	return &Header{Block: *block, PrevStateRootOfChunks: roots}, nil
}

// ConsensusState is the unit of trust cached per height (spec 3).
type ConsensusState struct {
	Header        Header
	CurrentBPs    []ValidatorStake // nil permitted for a bootstrap state
	HasCurrentBPs bool
}

// Encode writes the canonical encoding of a ConsensusState: the header
// followed by an optional current_bps sequence. This is the exact byte
// layout written to a cached-height file by the file-backed host (spec 6).
func (c *ConsensusState) Encode() []byte {
	e := NewEncoder()
	e.WriteBytes(c.Header.Encode())
	e.WriteOption(c.HasCurrentBPs, func() {
		e.SeqLen(len(c.CurrentBPs))
		for i := range c.CurrentBPs {
			c.CurrentBPs[i].Encode(e)
		}
	})
	return e.Bytes()
}

// DecodeConsensusState reconstructs a ConsensusState from its canonical
// encoding.
func DecodeConsensusState(b []byte) (*ConsensusState, error) {
	header, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	headerLen := len(header.Encode())
	d := NewDecoder(b[headerLen:])
	var cs ConsensusState
	cs.Header = *header
	if cs.HasCurrentBPs, err = d.ReadOptionPresent(); err != nil {
		return nil, err
	}
	if cs.HasCurrentBPs {
		n, err := d.ReadSeqLen()
		if err != nil {
			return nil, err
		}
		cs.CurrentBPs = make([]ValidatorStake, n)
		for i := 0; i < n; i++ {
			vs, err := DecodeValidatorStake(d)
			if err != nil {
				return nil, err
			}
			cs.CurrentBPs[i] = *vs
		}
	}
	return &cs, nil
}

// OutcomeWithID is the leaf input to verify_transaction_or_receipt (spec
// 4.E): a transaction or receipt ID together with the sequence of hashes its
// execution outcome reduces to (status, logs, receipt IDs and the rest,
// folded by the RPC layer before the proof ever reaches this core). The
// core only needs the ordered hash sequence, not the outcome's full shape.
type OutcomeWithID struct {
	ID     CryptoHash
	Hashes []CryptoHash
}

// ToHashesEncoded returns the canonical encoding of the outcome's hash
// sequence (id prepended), matching the NEAR RPC's
// ExecutionOutcomeWithIdView::to_hashes() layout.
func (o *OutcomeWithID) ToHashesEncoded() []byte {
	e := NewEncoder()
	e.SeqLen(len(o.Hashes) + 1)
	e.WriteHash(o.ID)
	for _, h := range o.Hashes {
		e.WriteHash(h)
	}
	return e.Bytes()
}

// LeafHash is the merkle leaf value verify_transaction_or_receipt folds
// into chunk_outcome_root: sha256(encode(outcome_with_id.to_hashes())).
func (o *OutcomeWithID) LeafHash() CryptoHash {
	return Sha256(o.ToHashesEncoded())
}
