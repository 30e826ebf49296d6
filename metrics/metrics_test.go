package metrics

import "testing"

func TestCounterVec_WithLabelCreatesPerShardCounters(t *testing.T) {
	v := NewCounterVec("proof.shard_verified")

	v.WithLabel("0").Inc()
	v.WithLabel("0").Inc()
	v.WithLabel("2").Inc()

	if got := v.WithLabel("0").Value(); got != 2 {
		t.Fatalf("shard 0 value = %d, want 2", got)
	}
	if got := v.WithLabel("2").Value(); got != 1 {
		t.Fatalf("shard 2 value = %d, want 1", got)
	}
	// A shard never observed stays at zero rather than panicking.
	if got := v.WithLabel("5").Value(); got != 0 {
		t.Fatalf("unobserved shard 5 value = %d, want 0", got)
	}
}

func TestCounterVec_WithLabelReturnsSameCounterForSameLabel(t *testing.T) {
	v := NewCounterVec("test.vec")
	a := v.WithLabel("1")
	b := v.WithLabel("1")
	a.Inc()
	if b.Value() != 1 {
		t.Fatalf("expected WithLabel to return the same Counter for a repeated label")
	}
}

func TestCounterVec_Snapshot(t *testing.T) {
	v := NewCounterVec("proof.shard_verified")
	v.WithLabel("0").Add(3)
	v.WithLabel("1").Add(5)

	snap := v.Snapshot()
	if snap["proof.shard_verified{shard=0}"] != 3 {
		t.Fatalf("snapshot[shard=0] = %v, want 3", snap["proof.shard_verified{shard=0}"])
	}
	if snap["proof.shard_verified{shard=1}"] != 5 {
		t.Fatalf("snapshot[shard=1] = %v, want 5", snap["proof.shard_verified{shard=1}"])
	}
}

func TestRegistry_CounterVecGetOrCreate(t *testing.T) {
	r := NewRegistry()
	a := r.CounterVec("proof.shard_verified")
	b := r.CounterVec("proof.shard_verified")
	a.WithLabel("0").Inc()
	if b.WithLabel("0").Value() != 1 {
		t.Fatal("expected Registry.CounterVec to return the same CounterVec on repeated calls")
	}
}

func TestRegistry_SnapshotIncludesCounterVecs(t *testing.T) {
	r := NewRegistry()
	r.CounterVec("proof.shard_verified").WithLabel("3").Inc()

	snap := r.Snapshot()
	if snap["proof.shard_verified{shard=3}"] != int64(1) {
		t.Fatalf("snapshot missing labeled counter, got %v", snap)
	}
}
