// Package codec turns stored count snapshots into bytes and back.
//
// A Codec is used by the totals store; the filter identity encoding in the root
// package is fixed to deterministic CBOR and does not go through this package.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Names accepted by ByName.
const (
	NameJSON     = "json"
	NameCBOR     = "cbor"
	NameMsgpack  = "msgpack"
	NameProtobuf = "protobuf"
)

// ByName returns the codec registered under name. Empty name selects JSON.
// NameProtobuf is available for listcount.Snapshot only.
// maxDecode > 0 wraps the codec in a Limit.
func ByName[V any](name string, maxDecode int) (Codec[V], error) {
	var inner Codec[V]
	switch name {
	case "", NameJSON:
		inner = JSON[V]{}
	case NameCBOR:
		cb, err := NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		inner = cb
	case NameMsgpack:
		inner = Msgpack[V]{}
	case NameProtobuf:
		pb, ok := any(SnapshotProtobuf{}).(Codec[V])
		if !ok {
			return nil, fmt.Errorf("codec: %s supports listcount.Snapshot only", NameProtobuf)
		}
		inner = pb
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if maxDecode > 0 {
		return Limit[V]{Inner: inner, MaxDecode: maxDecode}, nil
	}
	return inner, nil
}
