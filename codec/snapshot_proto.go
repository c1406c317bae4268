package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/unkn0wn-root/listcount"
)

// SnapshotProtobuf encodes a listcount.Snapshot as the protobuf message
//
//	message Snapshot {
//	  int64 total = 1;
//	  google.protobuf.Timestamp counted_at = 2;
//	}
//
// Unknown fields are skipped on decode.
type SnapshotProtobuf struct{}

var _ Codec[listcount.Snapshot] = SnapshotProtobuf{}

var timestamps = NewProtobuf(func() *timestamppb.Timestamp { return &timestamppb.Timestamp{} })

func (SnapshotProtobuf) Encode(s listcount.Snapshot) ([]byte, error) {
	var b []byte
	if s.Total != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(s.Total))
	}
	if !s.CountedAt.IsZero() {
		ts, err := timestamps.Encode(timestamppb.New(s.CountedAt))
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	return b, nil
}

func (SnapshotProtobuf) Decode(b []byte) (listcount.Snapshot, error) {
	var s listcount.Snapshot
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, fmt.Errorf("codec: snapshot tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return s, fmt.Errorf("codec: snapshot total: %w", protowire.ParseError(m))
			}
			s.Total = int64(v)
			n = m
		case num == 2 && typ == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return s, fmt.Errorf("codec: snapshot counted_at: %w", protowire.ParseError(m))
			}
			ts, err := timestamps.Decode(raw)
			if err != nil {
				return s, fmt.Errorf("codec: snapshot counted_at: %w", err)
			}
			if err := ts.CheckValid(); err != nil {
				return s, fmt.Errorf("codec: snapshot counted_at: %w", err)
			}
			s.CountedAt = ts.AsTime()
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return s, fmt.Errorf("codec: snapshot field %d: %w", num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return s, nil
}
