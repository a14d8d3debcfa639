package jetstreammeta

import (
	"encoding/json"
	"testing"
	"time"

	cbor "github.com/synadia-labs/cbor-dyn/cbor"
)

func TestClientInfo_Encode(t *testing.T) {
	ci := &ClientInfo{Account: "G", Service: "JS", Cluster: "R3S"}
	if _, err := cbor.Marshal(ci, cbor.EncodeOptions{}); err != nil {
		t.Fatalf("ClientInfo Marshal failed: %v", err)
	}
}

func TestRaftGroup_Encode(t *testing.T) {
	rg := &RaftGroup{Name: "rg", Peers: []string{"n1", "n2"}, Storage: MemoryStorage}
	if _, err := cbor.Marshal(rg, cbor.EncodeOptions{}); err != nil {
		t.Fatalf("RaftGroup Marshal failed: %v", err)
	}
}

func TestWriteableConsumerAssignment_Encode(t *testing.T) {
	cfgJSON, _ := json.Marshal(ConsumerConfigSnapshot{Durable: "C", MemoryStorage: true})
	ca := &WriteableConsumerAssignment{
		Created:    testTime(),
		Name:       "C",
		Stream:     "S",
		ConfigJSON: json.RawMessage(cfgJSON),
	}
	if _, err := cbor.Marshal(ca, cbor.EncodeOptions{}); err != nil {
		t.Fatalf("WriteableConsumerAssignment Marshal failed: %v", err)
	}
}

func TestWriteableStreamAssignment_Encode(t *testing.T) {
	ci := &ClientInfo{Account: "G", Service: "JS", Cluster: "R3S"}
	rg := &RaftGroup{Name: "rg", Peers: []string{"n1", "n2"}, Storage: MemoryStorage}
	cfgJSON, _ := json.Marshal(StreamConfigSnapshot{Name: "S", Subjects: []string{"SUB"}, Storage: MemoryStorage})
	wa := &WriteableStreamAssignment{
		Client:     ci,
		Created:    testTime(),
		ConfigJSON: json.RawMessage(cfgJSON),
		Group:      rg,
		Sync:       "_INBOX.sync",
	}
	if _, err := cbor.Marshal(wa, cbor.EncodeOptions{}); err != nil {
		t.Fatalf("WriteableStreamAssignment Marshal failed: %v", err)
	}
}

func TestMetaSnapshot_Encode_DoesNotPanic(t *testing.T) {
	ci := &ClientInfo{Account: "G", Service: "JS", Cluster: "R3S"}
	rg := &RaftGroup{Name: "rg", Peers: []string{"n1", "n2"}, Storage: MemoryStorage}
	cfgJSON, _ := json.Marshal(StreamConfigSnapshot{Name: "S", Subjects: []string{"SUB"}, Storage: MemoryStorage})
	ccfgJSON, _ := json.Marshal(ConsumerConfigSnapshot{Durable: "C", MemoryStorage: true})
	ca := &WriteableConsumerAssignment{
		Client:     ci,
		Created:    testTime(),
		Name:       "C",
		Stream:     "S",
		ConfigJSON: json.RawMessage(ccfgJSON),
		Group:      rg,
		State: &ConsumerState{
			Delivered: SequencePair{Consumer: 1, Stream: 1},
			AckFloor:  SequencePair{Consumer: 0, Stream: 0},
			Pending: map[uint64]*Pending{
				1: {Sequence: 1, Timestamp: testTime().UnixNano()},
			},
			Redelivered: map[uint64]uint64{1: 2},
		},
	}
	ws := WriteableStreamAssignment{
		Client:     ci,
		Created:    testTime(),
		ConfigJSON: json.RawMessage(cfgJSON),
		Group:      rg,
		Sync:       "_INBOX.sync",
		Consumers:  []*WriteableConsumerAssignment{ca},
	}
	snap := MetaSnapshot{Streams: []WriteableStreamAssignment{ws}}
	if _, err := cbor.Marshal(snap, cbor.EncodeOptions{}); err != nil {
		t.Fatalf("MetaSnapshot Marshal failed: %v", err)
	}
}

func TestBuildMetaSnapshotFixture_Encode(t *testing.T) {
	snap := BuildMetaSnapshotFixture(2, 2)
	if _, err := cbor.Marshal(snap, cbor.EncodeOptions{}); err != nil {
		t.Fatalf("BuildMetaSnapshotFixture Marshal failed: %v", err)
	}
}

func TestBuildMetaSnapshotFixture_Decode(t *testing.T) {
	orig := BuildMetaSnapshotFixture(2, 2)
	b, err := cbor.Marshal(orig, cbor.EncodeOptions{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out MetaSnapshot
	if err := cbor.DecodeValue(b, &out, cbor.DecodeOptions{}); err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if len(out.Streams) != len(orig.Streams) {
		t.Fatalf("stream count mismatch: got %d want %d", len(out.Streams), len(orig.Streams))
	}
}

func testTime() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
