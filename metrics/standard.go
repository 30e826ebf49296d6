package metrics

// Pre-defined metrics for the light client. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Header verification metrics ----

	// HeadersVerified counts headers that passed VerifyHeader.
	HeadersVerified = DefaultRegistry.Counter("header.verified")
	// HeadersRejected counts headers that failed VerifyHeader.
	HeadersRejected = DefaultRegistry.Counter("header.rejected")
	// HeaderVerifyLatency records VerifyHeader duration in milliseconds.
	HeaderVerifyLatency = DefaultRegistry.Histogram("header.verify_ms")
	// LatestHeight tracks the highest height installed in the host.
	LatestHeight = DefaultRegistry.Gauge("header.latest_height")

	// ---- State proof metrics ----

	// MembershipVerified counts successful verify_membership calls.
	MembershipVerified = DefaultRegistry.Counter("proof.membership_verified")
	// NonMembershipVerified counts successful verify_non_membership calls.
	NonMembershipVerified = DefaultRegistry.Counter("proof.non_membership_verified")
	// ProofRejected counts proof verifications that returned an error.
	ProofRejected = DefaultRegistry.Counter("proof.rejected")
	// ProofVerifyLatency records trie proof walk duration in milliseconds.
	ProofVerifyLatency = DefaultRegistry.Histogram("proof.verify_ms")
	// ShardProofsVerified counts successful proof verifications broken out
	// by the shard index whose prev_state_root the proof walk matched.
	ShardProofsVerified = DefaultRegistry.CounterVec("proof.shard_verified")

	// ---- Transaction proof metrics ----

	// TransactionsVerified counts successful verify_transaction_or_receipt calls.
	TransactionsVerified = DefaultRegistry.Counter("transaction.verified")
	// TransactionsRejected counts rejected transaction proof bundles.
	TransactionsRejected = DefaultRegistry.Counter("transaction.rejected")

	// ---- Proof cache metrics ----

	// ProofCacheHits counts ProofCache lookups served without calling the Client.
	ProofCacheHits = DefaultRegistry.Counter("proof_cache.hits")
	// ProofCacheMisses counts ProofCache lookups forwarded to the Client.
	ProofCacheMisses = DefaultRegistry.Counter("proof_cache.misses")
	// ProofCacheEvictions counts entries evicted to respect CacheSize.
	ProofCacheEvictions = DefaultRegistry.Counter("proof_cache.evictions")

	// ---- Host metrics ----

	// CachedHeightsGauge tracks the number of heights currently cached by the Host.
	CachedHeightsGauge = DefaultRegistry.Gauge("host.cached_heights")
	// HostEvictions counts EvictOldest calls that removed a height.
	HostEvictions = DefaultRegistry.Counter("host.evictions")

	// ---- RPC collaborator metrics ----

	// RPCRequests counts outgoing NEAR JSON-RPC requests.
	RPCRequests = DefaultRegistry.Counter("rpc.requests")
	// RPCErrors counts NEAR JSON-RPC requests that failed after retries.
	RPCErrors = DefaultRegistry.Counter("rpc.errors")
	// RPCRetries counts individual retry attempts across all requests.
	RPCRetries = DefaultRegistry.Counter("rpc.retries")
	// RPCLatency records NEAR JSON-RPC request latency in milliseconds.
	RPCLatency = DefaultRegistry.Histogram("rpc.latency_ms")
)
