// rpc.go implements the RPC collaborator contract (spec.md 6): the four
// operations the verification core needs from a NEAR JSON-RPC endpoint,
// plus retry-with-backoff, modelled on the teacher's
// pkg/sync/downloader.go syncWithRetry linear-backoff loop.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/mr-tron/base58"

	"github.com/near/light-client/merkle"
	"github.com/near/light-client/metrics"
	"github.com/near/light-client/neartypes"
)

// Collaborator is the RPC surface the driver and CLI commands consume.
type Collaborator interface {
	NextLightClientBlock(ctx context.Context, lastBlockHash neartypes.CryptoHash) (*neartypes.LightClientBlock, error)
	ChunkPrevStateRoots(ctx context.Context, height neartypes.BlockHeight) ([]neartypes.CryptoHash, error)
	ViewStateWithProof(ctx context.Context, accountID string, keyPrefix []byte, blockHeight neartypes.BlockHeight) (value []byte, proofs [][]byte, err error)
	LightClientProof(ctx context.Context, txHash neartypes.CryptoHash, senderID string, headBlockHash neartypes.CryptoHash) (*neartypes.OutcomeWithID, merkle.Path, merkle.Path, *neartypes.LightClientBlock, merkle.Path, error)
}

// HTTPCollaborator drives a NEAR JSON-RPC endpoint over HTTP, retrying
// transient failures with linear backoff.
type HTTPCollaborator struct {
	endpoint   string
	maxRetries int
	httpClient *http.Client
}

// NewHTTPCollaborator builds a Collaborator against endpoint.
func NewHTTPCollaborator(endpoint string, maxRetries int) *HTTPCollaborator {
	return &HTTPCollaborator{
		endpoint:   endpoint,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC method call, making at most maxRetries attempts
// in all (at least one) with a linear backoff between them, same shape as
// the teacher's syncWithRetry.
func (c *HTTPCollaborator) call(ctx context.Context, method string, params any, out any) error {
	timer := metrics.NewTimer(metrics.RPCLatency)
	defer timer.Stop()
	metrics.RPCRequests.Inc()

	var lastErr error
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.RPCRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		err := c.callOnce(ctx, method, params, out)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	metrics.RPCErrors.Inc()
	return fmt.Errorf("rpc: %s failed after %d attempts: %w", method, attempts, lastErr)
}

func (c *HTTPCollaborator) callOnce(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: "nearlc", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("rpc: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc: %s: read body: %w", method, err)
	}
	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("rpc: %s: decode envelope: %w", method, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("rpc: %s: %s (code %d)", method, parsed.Error.Message, parsed.Error.Code)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("rpc: %s: decode result: %w", method, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// next_light_client_block
// ---------------------------------------------------------------------------

type nextLightClientBlockResult struct {
	PrevBlockHash      string               `json:"prev_block_hash"`
	NextBlockInnerHash string               `json:"next_block_inner_hash"`
	InnerLite          innerLiteView        `json:"inner_lite"`
	InnerRestHash      string               `json:"inner_rest_hash"`
	NextBps            []validatorStakeView `json:"next_bps"`
	ApprovalsAfterNext []*string            `json:"approvals_after_next"`
}

type innerLiteView struct {
	Height          uint64 `json:"height"`
	EpochID         string `json:"epoch_id"`
	NextEpochID     string `json:"next_epoch_id"`
	PrevStateRoot   string `json:"prev_state_root"`
	OutcomeRoot     string `json:"outcome_root"`
	Timestamp       uint64 `json:"timestamp_nanosec,string"`
	NextBpHash      string `json:"next_bp_hash"`
	BlockMerkleRoot string `json:"block_merkle_root"`
}

type validatorStakeView struct {
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
	Stake     string `json:"stake"`
}

func (c *HTTPCollaborator) NextLightClientBlock(ctx context.Context, lastBlockHash neartypes.CryptoHash) (*neartypes.LightClientBlock, error) {
	var result nextLightClientBlockResult
	params := map[string]string{"last_block_hash": base58.Encode(lastBlockHash[:])}
	if err := c.call(ctx, "next_light_client_block", params, &result); err != nil {
		return nil, err
	}
	return decodeLightClientBlockView(&result)
}

func decodeLightClientBlockView(v *nextLightClientBlockResult) (*neartypes.LightClientBlock, error) {
	var b neartypes.LightClientBlock
	var err error
	if b.PrevBlockHash, err = neartypes.CryptoHashFromBase58(v.PrevBlockHash); err != nil {
		return nil, fmt.Errorf("prev_block_hash: %w", err)
	}
	if b.NextBlockInnerHash, err = neartypes.CryptoHashFromBase58(v.NextBlockInnerHash); err != nil {
		return nil, fmt.Errorf("next_block_inner_hash: %w", err)
	}
	if b.InnerRestHash, err = neartypes.CryptoHashFromBase58(v.InnerRestHash); err != nil {
		return nil, fmt.Errorf("inner_rest_hash: %w", err)
	}
	inner, err := decodeInnerLiteView(&v.InnerLite)
	if err != nil {
		return nil, err
	}
	b.InnerLite = *inner

	if v.NextBps != nil {
		b.HasNextBPs = true
		b.NextBPs = make([]neartypes.ValidatorStake, len(v.NextBps))
		for i, vs := range v.NextBps {
			stake, err := decodeValidatorStakeView(&vs)
			if err != nil {
				return nil, fmt.Errorf("next_bps[%d]: %w", i, err)
			}
			b.NextBPs[i] = *stake
		}
	}

	b.ApprovalsAfterNext = make([]*neartypes.Signature, len(v.ApprovalsAfterNext))
	for i, sig := range v.ApprovalsAfterNext {
		if sig == nil {
			continue
		}
		s, err := decodeSignatureBase58(*sig)
		if err != nil {
			return nil, fmt.Errorf("approvals_after_next[%d]: %w", i, err)
		}
		b.ApprovalsAfterNext[i] = s
	}
	return &b, nil
}

func decodeInnerLiteView(v *innerLiteView) (*neartypes.BlockHeaderInnerLite, error) {
	var h neartypes.BlockHeaderInnerLite
	var err error
	h.Height = v.Height
	h.TimestampNanosec = v.Timestamp
	if h.EpochID, err = neartypes.CryptoHashFromBase58(v.EpochID); err != nil {
		return nil, fmt.Errorf("epoch_id: %w", err)
	}
	if h.NextEpochID, err = neartypes.CryptoHashFromBase58(v.NextEpochID); err != nil {
		return nil, fmt.Errorf("next_epoch_id: %w", err)
	}
	if h.PrevStateRoot, err = neartypes.CryptoHashFromBase58(v.PrevStateRoot); err != nil {
		return nil, fmt.Errorf("prev_state_root: %w", err)
	}
	if h.OutcomeRoot, err = neartypes.CryptoHashFromBase58(v.OutcomeRoot); err != nil {
		return nil, fmt.Errorf("outcome_root: %w", err)
	}
	if h.NextBPHash, err = neartypes.CryptoHashFromBase58(v.NextBpHash); err != nil {
		return nil, fmt.Errorf("next_bp_hash: %w", err)
	}
	if h.BlockMerkleRoot, err = neartypes.CryptoHashFromBase58(v.BlockMerkleRoot); err != nil {
		return nil, fmt.Errorf("block_merkle_root: %w", err)
	}
	return &h, nil
}

func decodeValidatorStakeView(v *validatorStakeView) (*neartypes.ValidatorStake, error) {
	pk, err := decodePublicKeyBase58(v.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("public_key: %w", err)
	}
	stake, ok := new(big.Int).SetString(v.Stake, 10)
	if !ok {
		return nil, fmt.Errorf("stake: invalid decimal %q", v.Stake)
	}
	return &neartypes.ValidatorStake{V1: neartypes.ValidatorStakeV1{
		AccountID: v.AccountID,
		PublicKey: *pk,
		Stake:     stake,
	}}, nil
}

// decodePublicKeyBase58 decodes NEAR's "ed25519:<base58>" wire display.
func decodePublicKeyBase58(s string) (*neartypes.PublicKey, error) {
	raw, err := decodeTaggedBase58(s, "ed25519:")
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("expected 32-byte ed25519 key, got %d", len(raw))
	}
	pk := &neartypes.PublicKey{KeyType: neartypes.KeyTypeED25519}
	copy(pk.ED25519[:], raw)
	return pk, nil
}

func decodeSignatureBase58(s string) (*neartypes.Signature, error) {
	raw, err := decodeTaggedBase58(s, "ed25519:")
	if err != nil {
		return nil, err
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("expected 64-byte ed25519 signature, got %d", len(raw))
	}
	sig := &neartypes.Signature{KeyType: neartypes.KeyTypeED25519}
	copy(sig.ED25519[:], raw)
	return sig, nil
}

func decodeTaggedBase58(s, prefix string) ([]byte, error) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("missing %q prefix in %q", prefix, s)
	}
	return base58.Decode(s[len(prefix):])
}

// ---------------------------------------------------------------------------
// block (chunk prev_state_root lookup)
// ---------------------------------------------------------------------------

type blockResult struct {
	Chunks []struct {
		PrevStateRoot string `json:"prev_state_root"`
	} `json:"chunks"`
}

func (c *HTTPCollaborator) ChunkPrevStateRoots(ctx context.Context, height neartypes.BlockHeight) ([]neartypes.CryptoHash, error) {
	var result blockResult
	params := map[string]uint64{"block_id": height}
	if err := c.call(ctx, "block", params, &result); err != nil {
		return nil, err
	}
	roots := make([]neartypes.CryptoHash, len(result.Chunks))
	for i, ch := range result.Chunks {
		root, err := neartypes.CryptoHashFromBase58(ch.PrevStateRoot)
		if err != nil {
			return nil, fmt.Errorf("chunks[%d].prev_state_root: %w", i, err)
		}
		roots[i] = root
	}
	return roots, nil
}

// ---------------------------------------------------------------------------
// query (view_state with proof)
// ---------------------------------------------------------------------------

type viewStateResult struct {
	Values []struct {
		Value string   `json:"value"`
		Proof []string `json:"proof"`
	} `json:"values"`
	Proof []string `json:"proof"`
}

func (c *HTTPCollaborator) ViewStateWithProof(ctx context.Context, accountID string, keyPrefix []byte, blockHeight neartypes.BlockHeight) ([]byte, [][]byte, error) {
	params := map[string]any{
		"request_type":  "view_state",
		"account_id":    accountID,
		"prefix_base64": base64.StdEncoding.EncodeToString(keyPrefix),
		"include_proof": true,
		"block_id":      blockHeight,
	}
	var result viewStateResult
	if err := c.call(ctx, "query", params, &result); err != nil {
		return nil, nil, err
	}
	rawProofs := make([][]byte, len(result.Proof))
	for i, p := range result.Proof {
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, nil, fmt.Errorf("proof[%d]: %w", i, err)
		}
		rawProofs[i] = b
	}
	if len(result.Values) == 0 {
		return nil, rawProofs, nil
	}
	value, err := base64.StdEncoding.DecodeString(result.Values[0].Value)
	if err != nil {
		return nil, nil, fmt.Errorf("values[0].value: %w", err)
	}
	return value, rawProofs, nil
}

// ---------------------------------------------------------------------------
// EXPERIMENTAL_light_client_proof
// ---------------------------------------------------------------------------

// merklePathItemView mirrors NEAR's {hash, direction} merkle path step.
type merklePathItemView struct {
	Hash      string `json:"hash"`
	Direction string `json:"direction"`
}

// executionOutcomeView is the subset of NEAR's ExecutionOutcome the client
// needs to fold into outcome_with_id.to_hashes() (spec.md 4.E): the
// outcome's status and logs, each sha256-hashed individually, and its
// receipt ids, passed through as they are, before being handed to the
// core's OutcomeWithID.
type executionOutcomeView struct {
	Status     json.RawMessage `json:"status"`
	Logs       []string        `json:"logs"`
	ReceiptIDs []string        `json:"receipt_ids"`
}

// toHashes folds the outcome into the ordered hash list to_hashes()
// produces: the status hash, then one hash per log, then the receipt ids
// verbatim (they are already CryptoHash values on the wire).
func (o *executionOutcomeView) toHashes() ([]neartypes.CryptoHash, error) {
	hashes := []neartypes.CryptoHash{neartypes.Sha256(o.Status)}
	for _, log := range o.Logs {
		hashes = append(hashes, neartypes.Sha256([]byte(log)))
	}
	for i, r := range o.ReceiptIDs {
		h, err := neartypes.CryptoHashFromBase58(r)
		if err != nil {
			return nil, fmt.Errorf("receipt_ids[%d]: %w", i, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

type lightClientProofResult struct {
	OutcomeProof struct {
		ID      string               `json:"id"`
		Proof   []merklePathItemView `json:"proof"`
		Outcome executionOutcomeView `json:"outcome"`
	} `json:"outcome_proof"`
	OutcomeRootProof []merklePathItemView `json:"outcome_root_proof"`
	BlockHeaderLite  struct {
		PrevBlockHash      string               `json:"prev_block_hash"`
		NextBlockInnerHash string               `json:"next_block_inner_hash"`
		InnerLite          innerLiteView        `json:"inner_lite"`
		InnerRestHash      string               `json:"inner_rest_hash"`
		NextBps            []validatorStakeView `json:"next_bps"`
		ApprovalsAfterNext []*string            `json:"approvals_after_next"`
	} `json:"block_header_lite"`
	BlockProof []merklePathItemView `json:"block_proof"`
}

func (c *HTTPCollaborator) LightClientProof(
	ctx context.Context,
	txHash neartypes.CryptoHash,
	senderID string,
	headBlockHash neartypes.CryptoHash,
) (*neartypes.OutcomeWithID, merkle.Path, merkle.Path, *neartypes.LightClientBlock, merkle.Path, error) {
	params := map[string]string{
		"type":              "transaction",
		"transaction_hash":  base58.Encode(txHash[:]),
		"sender_id":         senderID,
		"light_client_head": base58.Encode(headBlockHash[:]),
	}
	var result lightClientProofResult
	if err := c.call(ctx, "EXPERIMENTAL_light_client_proof", params, &result); err != nil {
		return nil, nil, nil, nil, nil, err
	}

	outcomeID, err := neartypes.CryptoHashFromBase58(result.OutcomeProof.ID)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("outcome_proof.id: %w", err)
	}
	outcomeHashes, err := result.OutcomeProof.Outcome.toHashes()
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("outcome_proof.outcome: %w", err)
	}
	outcome := &neartypes.OutcomeWithID{ID: outcomeID, Hashes: outcomeHashes}

	outcomeProof, err := decodeMerklePath(result.OutcomeProof.Proof)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("outcome_proof.proof: %w", err)
	}
	outcomeRootProof, err := decodeMerklePath(result.OutcomeRootProof)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("outcome_root_proof: %w", err)
	}
	blockProof, err := decodeMerklePath(result.BlockProof)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("block_proof: %w", err)
	}

	blockView := nextLightClientBlockResult{
		PrevBlockHash:      result.BlockHeaderLite.PrevBlockHash,
		NextBlockInnerHash: result.BlockHeaderLite.NextBlockInnerHash,
		InnerLite:          result.BlockHeaderLite.InnerLite,
		InnerRestHash:      result.BlockHeaderLite.InnerRestHash,
		NextBps:            result.BlockHeaderLite.NextBps,
		ApprovalsAfterNext: result.BlockHeaderLite.ApprovalsAfterNext,
	}
	blockLite, err := decodeLightClientBlockView(&blockView)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("block_header_lite: %w", err)
	}

	return outcome, outcomeProof, outcomeRootProof, blockLite, blockProof, nil
}

func decodeMerklePath(items []merklePathItemView) (merkle.Path, error) {
	path := make(merkle.Path, len(items))
	for i, item := range items {
		hash, err := neartypes.CryptoHashFromBase58(item.Hash)
		if err != nil {
			return nil, fmt.Errorf("[%d].hash: %w", i, err)
		}
		var dir merkle.Direction
		switch item.Direction {
		case "Left":
			dir = merkle.Left
		case "Right":
			dir = merkle.Right
		default:
			return nil, fmt.Errorf("[%d].direction: unknown %q", i, item.Direction)
		}
		path[i] = merkle.PathItem{Hash: hash, Direction: dir}
	}
	return path, nil
}
