package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/unkn0wn-root/listcount"
)

type snap struct {
	Total     int64     `json:"total" msgpack:"total" cbor:"total"`
	Identity  string    `json:"identity" msgpack:"identity" cbor:"identity"`
	CountedAt time.Time `json:"counted_at" msgpack:"counted_at" cbor:"counted_at"`
}

func TestByNameSelectsCodec(t *testing.T) {
	in := snap{Total: 42, Identity: "a1", CountedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	for _, name := range []string{"", NameJSON, NameCBOR, NameMsgpack} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName[snap](name, 0)
			require.NoError(t, err)
			b, err := c.Encode(in)
			require.NoError(t, err)
			out, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, in.Total, out.Total)
			assert.Equal(t, in.Identity, out.Identity)
			assert.True(t, in.CountedAt.Equal(out.CountedAt))
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName[snap]("gob", 0)
	require.Error(t, err)
}

func TestByNameWrapsLimit(t *testing.T) {
	c, err := ByName[snap](NameJSON, 8)
	require.NoError(t, err)
	_, ok := c.(Limit[snap])
	require.True(t, ok)

	b, err := c.Encode(snap{Total: 1, Identity: "long-enough"})
	require.NoError(t, err)
	_, err = c.Decode(b)
	require.ErrorContains(t, err, "payload too large")
}

func TestCBORDeterministicMapOrder(t *testing.T) {
	c := MustCBOR[map[string]any](true)
	a, err := c.Encode(map[string]any{"name": "ops", "role": "admin", "id": 3})
	require.NoError(t, err)
	b, err := c.Encode(map[string]any{"id": 3, "role": "admin", "name": "ops"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProtobufTotal(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} })
	b, err := c.Encode(wrapperspb.Int64(1234))
	require.NoError(t, err)
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.True(t, proto.Equal(wrapperspb.Int64(1234), got))

	_, err = c.Decode([]byte{0xff, 0xff})
	assert.Error(t, err)
}

func TestSnapshotProtobuf(t *testing.T) {
	c, err := ByName[listcount.Snapshot](NameProtobuf, 0)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)
	b, err := c.Encode(listcount.Snapshot{Total: 4_000_000_000, CountedAt: at})
	require.NoError(t, err)
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000_000), got.Total)
	assert.True(t, at.Equal(got.CountedAt))

	// fields added by a newer writer are skipped
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("x"))
	got, err = c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000_000), got.Total)
}

func TestSnapshotProtobufZero(t *testing.T) {
	c := SnapshotProtobuf{}
	b, err := c.Encode(listcount.Snapshot{})
	require.NoError(t, err)
	assert.Empty(t, b)
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, listcount.Snapshot{}, got)
}

func TestSnapshotProtobufCorrupt(t *testing.T) {
	c := SnapshotProtobuf{}
	_, err := c.Decode([]byte{0x08})
	assert.Error(t, err)
	_, err = c.Decode([]byte{0x12, 0x05, 0x01})
	assert.Error(t, err)
}

func TestProtobufByNameOtherTypes(t *testing.T) {
	_, err := ByName[snap](NameProtobuf, 0)
	require.ErrorContains(t, err, "listcount.Snapshot only")
}
