package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/near/light-client/config"
	"github.com/near/light-client/light"
	"github.com/near/light-client/neartypes"
)

// wiring bundles the collaborators a command needs, built from a loaded
// Config. Every subcommand constructs one via loadWiring before doing work.
type wiring struct {
	cfg    *config.Config
	host   *light.FileHost
	client *light.ProofCache
	rpc    Collaborator
}

func loadWiring(configPath string) (*wiring, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	host, err := light.NewFileHost(cfg.StateData.DataFolder, cfg.StateData.MaxCachedHeights)
	if err != nil {
		return nil, err
	}
	client := light.NewClient(host)
	cache := light.NewProofCache(client, light.DefaultProofCacheConfig())
	rpc := NewHTTPCollaborator(cfg.NearRPC.RPCEndpoint, cfg.NearRPC.MaxRetries)
	return &wiring{cfg: cfg, host: host, client: cache, rpc: rpc}, nil
}

func newStartCmd(configPath *string) *cobra.Command {
	var pollSeconds int
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the driver loop that syncs successor headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWiring(*configPath)
			if err != nil {
				return err
			}
			driver := NewDriver(w.client, w.rpc, time.Duration(pollSeconds)*time.Second)
			ctx, cancel := signalContext()
			defer cancel()
			err = driver.Run(ctx)
			if err != nil && ctx.Err() != nil {
				return nil // cancelled by signal: not a failure
			}
			return err
		},
	}
	cmd.Flags().IntVar(&pollSeconds, "poll-seconds", 10, "interval between successor-header polls")
	return cmd
}

func newViewHeadCmd(configPath *string) *cobra.Command {
	var detail bool
	cmd := &cobra.Command{
		Use:   "view-head [height]",
		Short: "Print the cached ConsensusState at height (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWiring(*configPath)
			if err != nil {
				return err
			}
			height, err := resolveHeight(w.client, args)
			if err != nil {
				return err
			}
			state, err := w.client.GetConsensusState(height)
			if err != nil {
				return err
			}
			printConsensusState(cmd, height, state, detail)
			return nil
		},
	}
	cmd.Flags().BoolVar(&detail, "detail", false, "also print the full producer set after the summary")
	return cmd
}

func newVerifyMembershipCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-membership <account_id> <base64 key> <base64 value> [height]",
		Short: "Verify a contract storage key/value membership proof",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWiring(*configPath)
			if err != nil {
				return err
			}
			accountID := args[0]
			key, err := base64.StdEncoding.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("key: %w", err)
			}
			value, err := base64.StdEncoding.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}
			var height neartypes.BlockHeight
			if len(args) == 4 {
				height, err = parseHeight(args[3])
			} else {
				height, err = w.client.LatestHeight()
			}
			if err != nil {
				return err
			}

			storageKey := neartypes.ContractStorageKey(accountID, key)
			_, proofs, err := w.rpc.ViewStateWithProof(cmd.Context(), accountID, key, height-1)
			if err != nil {
				return fmt.Errorf("fetch proof: %w", err)
			}
			if err := w.client.VerifyMembership(height, storageKey, value, proofs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "membership verified")
			return nil
		},
	}
	return cmd
}

func newVerifyNonMembershipCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-non-membership <account_id> <base64 key> [height]",
		Short: "Verify a contract storage key absence proof",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWiring(*configPath)
			if err != nil {
				return err
			}
			accountID := args[0]
			key, err := base64.StdEncoding.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("key: %w", err)
			}
			var height neartypes.BlockHeight
			if len(args) == 3 {
				height, err = parseHeight(args[2])
			} else {
				height, err = w.client.LatestHeight()
			}
			if err != nil {
				return err
			}

			storageKey := neartypes.ContractStorageKey(accountID, key)
			_, proofs, err := w.rpc.ViewStateWithProof(cmd.Context(), accountID, key, height-1)
			if err != nil {
				return fmt.Errorf("fetch proof: %w", err)
			}
			if err := w.client.VerifyNonMembership(height, storageKey, proofs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "non-membership verified")
			return nil
		},
	}
	return cmd
}

func newVerifyTransactionCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-transaction <base58 tx_hash> <sender_id>",
		Short: "Verify a transaction/receipt inclusion proof against the latest head",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWiring(*configPath)
			if err != nil {
				return err
			}
			txHashBytes, err := base58.Decode(args[0])
			if err != nil {
				return fmt.Errorf("tx_hash: %w", err)
			}
			txHash, err := neartypes.CryptoHashFromBytes(txHashBytes)
			if err != nil {
				return fmt.Errorf("tx_hash: %w", err)
			}
			senderID := args[1]

			latestHeight, err := w.client.LatestHeight()
			if err != nil {
				return err
			}
			latest, err := w.client.GetConsensusState(latestHeight)
			if err != nil {
				return err
			}
			headHash := neartypes.CurrentBlockHash(&latest.Header.Block)

			outcome, outcomeProof, outcomeRootProof, blockLite, blockProof, err := w.rpc.LightClientProof(cmd.Context(), txHash, senderID, headHash)
			if err != nil {
				return fmt.Errorf("fetch proof: %w", err)
			}
			if err := w.client.VerifyTransactionOrReceipt(outcome, outcomeProof, outcomeRootProof, blockLite, blockProof, latest); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "transaction verified")
			return nil
		},
	}
	return cmd
}

func resolveHeight(client *light.ProofCache, args []string) (neartypes.BlockHeight, error) {
	if len(args) == 1 {
		return parseHeight(args[0])
	}
	return client.LatestHeight()
}

func parseHeight(s string) (neartypes.BlockHeight, error) {
	h, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid height %q: %w", s, err)
	}
	return h, nil
}

func printConsensusState(cmd *cobra.Command, height neartypes.BlockHeight, state *neartypes.ConsensusState, detail bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "height:            %d\n", height)
	fmt.Fprintf(out, "epoch_id:          %s\n", state.Header.Block.InnerLite.EpochID)
	fmt.Fprintf(out, "next_epoch_id:     %s\n", state.Header.Block.InnerLite.NextEpochID)
	fmt.Fprintf(out, "block_merkle_root: %s\n", state.Header.Block.InnerLite.BlockMerkleRoot)
	fmt.Fprintf(out, "current_bps:       %d producers (known: %v)\n", len(state.CurrentBPs), state.HasCurrentBPs)
	if !detail {
		return
	}
	for i, vs := range state.CurrentBPs {
		fmt.Fprintf(out, "  [%d] %s stake=%s\n", i, vs.V1.AccountID, vs.V1.Stake.String())
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
