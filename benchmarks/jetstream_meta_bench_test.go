package benchmarks

import (
	"testing"

	cbor "github.com/synadia-labs/cbor-dyn/cbor"
	"github.com/synadia-labs/cbor-dyn/tests/jetstreammeta"
)

// BenchmarkCBORRuntime_JetStreamMetaSnapshot_Encode exercises CBOR
// marshalling of a realistic JetStream meta snapshot workload. The
// fixture mirrors the shape and scale of the NATS
// BenchmarkJetStreamMetaSnapshot benchmark (200 streams, 500
// consumers each), but encodes the snapshot using this CBOR runtime
// instead of JSON+S2.
func BenchmarkCBORRuntime_JetStreamMetaSnapshot_Encode(b *testing.B) {
	snap := jetstreammeta.BuildMetaSnapshotFixture(
		jetstreammeta.DefaultNumStreams,
		jetstreammeta.DefaultNumConsumers,
	)

	// Sanity check that encoding succeeds once before benchmarking.
	if _, err := cbor.Marshal(snap, cbor.EncodeOptions{}); err != nil {
		b.Fatalf("Marshal (warmup) failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var out []byte
	for i := 0; i < b.N; i++ {
		var err error
		out, err = cbor.Marshal(snap, cbor.EncodeOptions{})
		if err != nil {
			b.Fatalf("Marshal: %v", err)
		}
	}
	_ = out
}
