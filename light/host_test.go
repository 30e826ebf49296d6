package light

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/near/light-client/neartypes"
)

func TestMemoryHostLatestHeightUninitialized(t *testing.T) {
	h := NewMemoryHost(0)
	if _, err := h.LatestHeight(); err == nil {
		t.Fatal("expected error on empty host")
	}
}

func TestMemoryHostSetAndGet(t *testing.T) {
	h := NewMemoryHost(0)
	header := sampleHeaderAtHeight(10, nil)
	state := &neartypes.ConsensusState{Header: *header}
	if err := h.SetConsensusState(10, state); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := h.GetConsensusState(10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Header.Block.InnerLite.Height != 10 {
		t.Fatalf("height mismatch: %d", got.Header.Block.InnerLite.Height)
	}
	latest, err := h.LatestHeight()
	if err != nil || latest != 10 {
		t.Fatalf("latest = %d, %v, want 10, nil", latest, err)
	}
}

func TestMemoryHostGetMissingHeight(t *testing.T) {
	h := NewMemoryHost(0)
	_, err := h.GetConsensusState(5)
	var hostErr *HostError
	if !errors.As(err, &hostErr) || hostErr.Kind != MissingHeadAtHeight {
		t.Fatalf("expected MissingHeadAtHeight, got %v", err)
	}
}

func TestMemoryHostEvictOldestNeverEvictsLatest(t *testing.T) {
	h := NewMemoryHost(2)
	for _, height := range []uint64{10, 20, 30} {
		state := &neartypes.ConsensusState{Header: *sampleHeaderAtHeight(height, nil)}
		if err := h.SetConsensusState(height, state); err != nil {
			t.Fatalf("set %d: %v", height, err)
		}
		if err := h.EvictOldest(); err != nil {
			t.Fatalf("evict: %v", err)
		}
	}
	heights, err := h.CachedHeights()
	if err != nil {
		t.Fatalf("cached heights: %v", err)
	}
	if len(heights) != 2 {
		t.Fatalf("cached heights = %v, want 2 entries", heights)
	}
	if heights[len(heights)-1] != 30 {
		t.Fatalf("latest height evicted: %v", heights)
	}
}

func TestFileHostRoundTrip(t *testing.T) {
	dir := t.TempDir()
	h, err := NewFileHost(dir, 0)
	if err != nil {
		t.Fatalf("new file host: %v", err)
	}
	header := sampleHeaderAtHeight(42, []neartypes.CryptoHash{neartypes.Sha256([]byte("root"))})
	state := &neartypes.ConsensusState{Header: *header}
	if err := h.SetConsensusState(42, state); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := h.GetConsensusState(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Header.Block.InnerLite.Height != 42 {
		t.Fatalf("height mismatch: %d", got.Header.Block.InnerLite.Height)
	}
	latest, err := h.LatestHeight()
	if err != nil || latest != 42 {
		t.Fatalf("latest = %d, %v, want 42, nil", latest, err)
	}
}

func TestFileHostEvictOldestNeverEvictsLatest(t *testing.T) {
	dir := t.TempDir()
	h, err := NewFileHost(dir, 2)
	if err != nil {
		t.Fatalf("new file host: %v", err)
	}
	for _, height := range []uint64{1, 2, 3} {
		state := &neartypes.ConsensusState{Header: *sampleHeaderAtHeight(height, nil)}
		if err := h.SetConsensusState(height, state); err != nil {
			t.Fatalf("set %d: %v", height, err)
		}
		if err := h.EvictOldest(); err != nil {
			t.Fatalf("evict: %v", err)
		}
	}
	heights, err := h.CachedHeights()
	if err != nil {
		t.Fatalf("cached heights: %v", err)
	}
	if len(heights) != 2 {
		t.Fatalf("cached heights = %v, want 2 entries", heights)
	}
	if heights[len(heights)-1] != 3 {
		t.Fatalf("latest height evicted: %v", heights)
	}
	if _, err := h.GetConsensusState(3); err != nil {
		t.Fatalf("latest height missing after eviction: %v", err)
	}
}

func TestFileHostFailedHeadFile(t *testing.T) {
	dir := t.TempDir()
	h, err := NewFileHost(dir, 0)
	if err != nil {
		t.Fatalf("new file host: %v", err)
	}
	got := h.FailedHeadFile(7)
	want := filepath.Join(dir, "failed_head", "7")
	if got != want {
		t.Fatalf("FailedHeadFile = %q, want %q", got, want)
	}
}
