package light

import (
	"fmt"

	"github.com/near/light-client/neartypes"
)

// HeaderErrorKind discriminates the HeaderVerificationError variants named
// in spec 7. Each corresponds to one of the ordered checks in 4.D; the
// verifier stops and reports the first one that fails.
type HeaderErrorKind int

const (
	InvalidBlockHeight HeaderErrorKind = iota
	InvalidEpochID
	MissingNextBlockProducersInHead
	MissingCachedEpochBlockProducers
	InvalidValidatorSignature
	BlockIsNotFinal
	InvalidNextBlockProducersHash
	InvalidPrevStateRootOfChunks
	// InvalidValidatorSignatureCount is a super-set detail alongside
	// spec's named taxonomy (resolved ambiguity: the reference
	// implementation requires approvals_after_next and the resolved
	// producer set to have equal length, not just a common prefix).
	InvalidValidatorSignatureCount
)

func (k HeaderErrorKind) String() string {
	switch k {
	case InvalidBlockHeight:
		return "InvalidBlockHeight"
	case InvalidEpochID:
		return "InvalidEpochId"
	case MissingNextBlockProducersInHead:
		return "MissingNextBlockProducersInHead"
	case MissingCachedEpochBlockProducers:
		return "MissingCachedEpochBlockProducers"
	case InvalidValidatorSignature:
		return "InvalidValidatorSignature"
	case BlockIsNotFinal:
		return "BlockIsNotFinal"
	case InvalidNextBlockProducersHash:
		return "InvalidNextBlockProducersHash"
	case InvalidPrevStateRootOfChunks:
		return "InvalidPrevStateRootOfChunks"
	case InvalidValidatorSignatureCount:
		return "InvalidValidatorSignatureCount"
	default:
		return "Unknown"
	}
}

// HeaderVerificationError reports why a candidate header was rejected by
// VerifyHeader. EpochID is populated for MissingCachedEpochBlockProducers;
// SignatureIndex and PublicKey are populated for InvalidValidatorSignature.
type HeaderVerificationError struct {
	Kind           HeaderErrorKind
	EpochID        neartypes.EpochID
	SignatureIndex int
	PublicKey      neartypes.PublicKey
}

func (e *HeaderVerificationError) Error() string {
	switch e.Kind {
	case MissingCachedEpochBlockProducers:
		return fmt.Sprintf("light: %s for epoch %s", e.Kind, e.EpochID)
	case InvalidValidatorSignature:
		return fmt.Sprintf("light: %s from producer %d", e.Kind, e.SignatureIndex)
	default:
		return fmt.Sprintf("light: %s", e.Kind)
	}
}

// TransactionErrorKind discriminates the TransactionVerificationError
// variants named in spec 7.
type TransactionErrorKind int

const (
	InvalidOutcomeProof TransactionErrorKind = iota
	InvalidBlockProof
)

func (k TransactionErrorKind) String() string {
	switch k {
	case InvalidOutcomeProof:
		return "InvalidOutcomeProof"
	case InvalidBlockProof:
		return "InvalidBlockProof"
	default:
		return "Unknown"
	}
}

// TransactionVerificationError reports why verify_transaction_or_receipt
// rejected a proof bundle.
type TransactionVerificationError struct {
	Kind TransactionErrorKind
}

func (e *TransactionVerificationError) Error() string {
	return fmt.Sprintf("light: %s", e.Kind)
}

// HostErrorKind discriminates the HostError variants named in spec 7.
type HostErrorKind int

const (
	MissingHeadAtHeight HostErrorKind = iota
	UninitializedClient
)

func (k HostErrorKind) String() string {
	switch k {
	case MissingHeadAtHeight:
		return "MissingHeadAtHeight"
	case UninitializedClient:
		return "UninitializedClient"
	default:
		return "Unknown"
	}
}

// HostError reports a failure in the cache/host layer. Height is populated
// for MissingHeadAtHeight.
type HostError struct {
	Kind   HostErrorKind
	Height neartypes.BlockHeight
}

func (e *HostError) Error() string {
	if e.Kind == MissingHeadAtHeight {
		return fmt.Sprintf("light: %s %d", e.Kind, e.Height)
	}
	return fmt.Sprintf("light: %s", e.Kind)
}
