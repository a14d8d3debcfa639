package jetstreammeta

// This package defines a reduced, self-contained model of the
// JetStream meta snapshot structures used by
// github.com/nats-io/nats-server/v2 in jetstream_cluster.go.
//
// It is intentionally trimmed down to only the fields that
// participate in snapshot marshalling so that we can benchmark
// CBOR encoding/decoding of a realistic, highly nested object
// graph without depending on the NATS server codebase itself.

import (
	"encoding/json"
	"time"

	cbor "github.com/synadia-labs/cbor-dyn/cbor"
)

// StorageType determines how messages are stored for retention.
// These values mirror the identifiers used by NATS.
type StorageType int

const (
	// FileStorage stores data on disk.
	FileStorage = StorageType(22)
	// MemoryStorage stores data in memory only.
	MemoryStorage = StorageType(33)
)

// MarshalCBOR encodes the storage type as a small integer code so that
// generated code can delegate to this helper instead of inlining the
// encoding logic in multiple places.
func (st StorageType) MarshalCBOR(b []byte) ([]byte, error) {
	return cbor.AppendInt(b, int(st)), nil
}

// UnmarshalCBOR decodes a storage type integer code.
func (st *StorageType) UnmarshalCBOR(b []byte) ([]byte, error) {
	val, rest, err := cbor.ReadIntBytes(b)
	if err != nil {
		return b, err
	}
	*st = StorageType(val)
	return rest, nil
}

// ClientInfo is a reduced copy of the NATS ClientInfo struct with
// only JSON/Cbor-visible fields retained. The Tags field is
// simplified to []string to avoid pulling in external dependencies.
type ClientInfo struct {
	Start      *time.Time    `json:"start,omitempty" msg:"start,omitempty" cbor:"start,omitempty"`
	Host       string        `json:"host,omitempty" msg:"host,omitempty" cbor:"host,omitempty"`
	ID         uint64        `json:"id,omitempty" msg:"id,omitempty" cbor:"id,omitempty"`
	Account    string        `json:"acc,omitempty" msg:"acc,omitempty" cbor:"acc,omitempty"`
	Service    string        `json:"svc,omitempty" msg:"svc,omitempty" cbor:"svc,omitempty"`
	User       string        `json:"user,omitempty" msg:"user,omitempty" cbor:"user,omitempty"`
	Name       string        `json:"name,omitempty" msg:"name,omitempty" cbor:"name,omitempty"`
	Lang       string        `json:"lang,omitempty" msg:"lang,omitempty" cbor:"lang,omitempty"`
	Version    string        `json:"ver,omitempty" msg:"ver,omitempty" cbor:"ver,omitempty"`
	RTT        time.Duration `json:"rtt,omitempty" msg:"rtt,omitempty" cbor:"rtt,omitempty"`
	Server     string        `json:"server,omitempty" msg:"server,omitempty" cbor:"server,omitempty"`
	Cluster    string        `json:"cluster,omitempty" msg:"cluster,omitempty" cbor:"cluster,omitempty"`
	Alternates []string      `json:"alts,omitempty" msg:"alts,omitempty" cbor:"alts,omitempty"`
	Stop       *time.Time    `json:"stop,omitempty" msg:"stop,omitempty" cbor:"stop,omitempty"`
	Jwt        string        `json:"jwt,omitempty" msg:"jwt,omitempty" cbor:"jwt,omitempty"`
	IssuerKey  string        `json:"issuer_key,omitempty" msg:"issuer_key,omitempty" cbor:"issuer_key,omitempty"`
	NameTag    string        `json:"name_tag,omitempty" msg:"name_tag,omitempty" cbor:"name_tag,omitempty"`
	Tags       []string      `json:"tags,omitempty" msg:"tags,omitempty" cbor:"tags,omitempty"`
	Kind       string        `json:"kind,omitempty" msg:"kind,omitempty" cbor:"kind,omitempty"`
	ClientType string        `json:"client_type,omitempty" msg:"client_type,omitempty" cbor:"client_type,omitempty"`
	MQTTClient string        `json:"client_id,omitempty" msg:"client_id,omitempty" cbor:"client_id,omitempty"`
	Nonce      string        `json:"nonce,omitempty" msg:"nonce,omitempty" cbor:"nonce,omitempty"`
}

// ForAssignmentSnap returns the minimal ClientInfo view that NATS
// uses when capturing assignment snapshots. We keep this here so
// our benchmark can closely mirror the server's behaviour.
func (ci *ClientInfo) ForAssignmentSnap() *ClientInfo {
	if ci == nil {
		return nil
	}
	return &ClientInfo{
		Account: ci.Account,
		Service: ci.Service,
		Cluster: ci.Cluster,
	}
}

// RaftGroup models the placement information for streams and
// consumers in the JetStream meta-layer.
type RaftGroup struct {
	Name      string      `json:"name" msg:"name" cbor:"name"`
	Peers     []string    `json:"peers" msg:"peers" cbor:"peers"`
	Storage   StorageType `json:"store" msg:"store" cbor:"store"`
	Cluster   string      `json:"cluster,omitempty" msg:"cluster,omitempty" cbor:"cluster,omitempty"`
	Preferred string      `json:"preferred,omitempty" msg:"preferred,omitempty" cbor:"preferred,omitempty"`
	ScaleUp   bool        `json:"scale_up,omitempty" msg:"scale_up,omitempty" cbor:"scale_up,omitempty"`
}

// SequencePair tracks both stream and consumer sequence numbers for
// a given message, mirroring NATS' SequencePair.
type SequencePair struct {
	Consumer uint64 `json:"consumer_seq" msg:"consumer_seq" cbor:"consumer_seq"`
	Stream   uint64 `json:"stream_seq" msg:"stream_seq" cbor:"stream_seq"`
}

// Pending represents a pending message for explicit/ack-all
// consumers. Only the fields relevant to JSON/CBOR are kept.
type Pending struct {
	Sequence  uint64 `json:"sequence" msg:"sequence" cbor:"sequence"`
	Timestamp int64  `json:"ts" msg:"ts" cbor:"ts"`
}

// ConsumerState mirrors the NATS ConsumerState type sufficiently to
// exercise a realistic nested map workload when encoding.
type ConsumerState struct {
	Delivered   SequencePair        `json:"delivered" msg:"delivered" cbor:"delivered"`
	AckFloor    SequencePair        `json:"ack_floor" msg:"ack_floor" cbor:"ack_floor"`
	Pending     map[uint64]*Pending `json:"pending,omitempty" msg:"pending,omitempty" cbor:"pending,omitempty"`
	Redelivered map[uint64]uint64   `json:"redelivered,omitempty" msg:"redelivered,omitempty" cbor:"redelivered,omitempty"`
}

// consumerAssignment mirrors just the subset of NATS' consumer
// assignment struct that participates in meta snapshots.
type consumerAssignment struct {
	Client     *ClientInfo     `json:"client,omitempty" msg:"client,omitempty" cbor:"client,omitempty"`
	Created    time.Time       `json:"created" msg:"created" cbor:"created"`
	Name       string          `json:"name" msg:"name" cbor:"name"`
	Stream     string          `json:"stream" msg:"stream" cbor:"stream"`
	ConfigJSON json.RawMessage `json:"consumer" msg:"consumer" cbor:"consumer"`
	Group      *RaftGroup      `json:"group" msg:"group" cbor:"group"`
	State      *ConsumerState  `json:"state,omitempty" msg:"state,omitempty" cbor:"state,omitempty"`
	// Internal (not marshalled)
	pending bool `json:"-" msg:"-" cbor:"-"`
}

// streamAssignment mirrors the NATS streamAssignment type, again
// limited to the fields that flow into writeable snapshots.
type streamAssignment struct {
	Client     *ClientInfo     `json:"client,omitempty" msg:"client,omitempty" cbor:"client,omitempty"`
	Created    time.Time       `json:"created" msg:"created" cbor:"created"`
	ConfigJSON json.RawMessage `json:"stream" msg:"stream" cbor:"stream"`
	Group      *RaftGroup      `json:"group" msg:"group" cbor:"group"`
	Sync       string          `json:"sync" msg:"sync" cbor:"sync"`
	// Internal (not marshalled)
	consumers map[string]*consumerAssignment `json:"-" msg:"-" cbor:"-"`
}

// WriteableConsumerAssignment is the on-the-wire consumer snapshot
// representation used by the JetStream meta snapshot.
type WriteableConsumerAssignment struct {
	Client     *ClientInfo     `json:"client,omitempty" msg:"client,omitempty" cbor:"client,omitempty"`
	Created    time.Time       `json:"created" msg:"created" cbor:"created"`
	Name       string          `json:"name" msg:"name" cbor:"name"`
	Stream     string          `json:"stream" msg:"stream" cbor:"stream"`
	ConfigJSON json.RawMessage `json:"consumer" msg:"consumer" cbor:"consumer"`
	Group      *RaftGroup      `json:"group" msg:"group" cbor:"group"`
	State      *ConsumerState  `json:"state,omitempty" msg:"state,omitempty" cbor:"state,omitempty"`
}

// WriteableStreamAssignment is the on-the-wire stream snapshot
// representation used by the JetStream meta snapshot.
type WriteableStreamAssignment struct {
	Client     *ClientInfo                    `json:"client,omitempty" msg:"client,omitempty" cbor:"client,omitempty"`
	Created    time.Time                      `json:"created" msg:"created" cbor:"created"`
	ConfigJSON json.RawMessage                `json:"stream" msg:"stream" cbor:"stream"`
	Group      *RaftGroup                     `json:"group" msg:"group" cbor:"group"`
	Sync       string                         `json:"sync" msg:"sync" cbor:"sync"`
	Consumers  []*WriteableConsumerAssignment `json:"consumers,omitempty" msg:"consumers,omitempty" cbor:"consumers,omitempty"`
}

// MetaSnapshot is a simple wrapper type that holds the full set of
// writeable stream assignments.
type MetaSnapshot struct {
	Streams []WriteableStreamAssignment `json:"streams" msg:"streams" cbor:"streams"`
}

// StreamConfigSnapshot and ConsumerConfigSnapshot are minimal
// configuration shapes used to generate realistic JSON blobs that are
// stored inside ConfigJSON fields.
type StreamConfigSnapshot struct {
	Name     string            `json:"name" msg:"name" cbor:"name"`
	Subjects []string          `json:"subjects" msg:"subjects" cbor:"subjects"`
	Storage  StorageType       `json:"storage" msg:"storage" cbor:"storage"`
	Metadata map[string]string `json:"metadata,omitempty" msg:"metadata,omitempty" cbor:"metadata,omitempty"`
}

type ConsumerConfigSnapshot struct {
	Durable       string            `json:"durable" msg:"durable" cbor:"durable"`
	MemoryStorage bool              `json:"mem_storage" msg:"mem_storage" cbor:"mem_storage"`
	Metadata      map[string]string `json:"metadata,omitempty" msg:"metadata,omitempty" cbor:"metadata,omitempty"`
}
