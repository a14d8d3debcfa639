package structs

import (
	"testing"

	cbor "github.com/synadia-labs/cbor-dyn/cbor"
)

// FuzzDecodeIntoStructs exercises DecodeValue against representative
// struct shapes to ensure arbitrary inputs never panic, only error.
func FuzzDecodeIntoStructs(f *testing.F) {
	seedPerson := &Person{Name: "Alice", Age: 30, Data: []byte{1, 2, 3}}
	if b, err := cbor.Marshal(seedPerson, cbor.EncodeOptions{}); err == nil {
		f.Add(b)
	}
	seedScalars := &Scalars{S: "s", B: true, I: 1}
	if b, err := cbor.Marshal(seedScalars, cbor.EncodeOptions{}); err == nil {
		f.Add(b)
	}
	seedContainers := &Containers{}
	if b, err := cbor.Marshal(seedContainers, cbor.EncodeOptions{}); err == nil {
		f.Add(b)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic in struct fuzz: %v", r)
			}
		}()

		var p Person
		_ = cbor.DecodeValue(data, &p, cbor.DecodeOptions{})

		var s Scalars
		_ = cbor.DecodeValue(data, &s, cbor.DecodeOptions{})

		var c Containers
		_ = cbor.DecodeValue(data, &c, cbor.DecodeOptions{})
	})
}
