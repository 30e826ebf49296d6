// driver.go implements the `start` command's loop: repeatedly fetch the
// successor light client block from the RPC collaborator, assemble a
// candidate Header, and hand it to the Client for verification, mirroring
// the teacher's pkg/sync/downloader.go poll-verify-install shape but over
// NEAR light client blocks instead of Ethereum block headers.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/near/light-client/light"
	"github.com/near/light-client/log"
	"github.com/near/light-client/metrics"
	"github.com/near/light-client/neartypes"
)

// Driver runs the continuous header-sync loop against a Collaborator.
type Driver struct {
	client       *light.ProofCache
	rpc          Collaborator
	pollInterval time.Duration
	logger       *log.Logger
}

// NewDriver builds a Driver polling rpc for successor headers every
// pollInterval. client is the ProofCache that the start command builds in
// loadWiring; the driver uses only its pass-through methods. Every CLI
// command runs in its own process with its own ProofCache, so nothing is
// shared with a separate verify-membership/verify-non-membership run.
func NewDriver(client *light.ProofCache, rpc Collaborator, pollInterval time.Duration) *Driver {
	return &Driver{
		client:       client,
		rpc:          rpc,
		pollInterval: pollInterval,
		logger:       log.Default().Module("driver"),
	}
}

// Run blocks, polling for and verifying successor headers until ctx is
// cancelled.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := d.tick(ctx); err != nil {
			d.logger.Warn("tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.pollInterval):
		}
	}
}

func (d *Driver) tick(ctx context.Context) error {
	latest, err := d.client.LatestHeight()
	if err != nil {
		return fmt.Errorf("driver: latest height: %w", err)
	}
	trusted, err := d.client.GetConsensusState(latest)
	if err != nil {
		return fmt.Errorf("driver: get trusted state: %w", err)
	}
	lastBlockHash := neartypes.CurrentBlockHash(&trusted.Header.Block)

	candidateBlock, err := d.rpc.NextLightClientBlock(ctx, lastBlockHash)
	if err != nil {
		return fmt.Errorf("driver: next_light_client_block: %w", err)
	}
	if candidateBlock.InnerLite.Height <= latest {
		d.logger.WithHeight(candidateBlock.InnerLite.Height).Debug("no new successor block yet", "latest", latest)
		return nil
	}

	chunkRoots, err := d.rpc.ChunkPrevStateRoots(ctx, candidateBlock.InnerLite.Height)
	if err != nil {
		return fmt.Errorf("driver: chunk prev_state_roots: %w", err)
	}
	candidate := &neartypes.Header{Block: *candidateBlock, PrevStateRootOfChunks: chunkRoots}

	if err := d.client.VerifyHeader(candidate); err != nil {
		d.logger.WithHeight(candidateBlock.InnerLite.Height).Warn("header rejected", "error", err)
		return err
	}
	d.logger.WithHeight(candidateBlock.InnerLite.Height).Info("header installed")

	if err := d.client.EvictOldest(); err != nil {
		d.logger.Warn("eviction failed", "error", err)
	}
	heights, err := d.client.CachedHeights()
	if err == nil {
		metrics.CachedHeightsGauge.Set(int64(len(heights)))
	}
	return nil
}
