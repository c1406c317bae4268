package codec

import "encoding/json"

// JSON is the default codec. Human-readable in redis-cli, larger than the
// binary codecs.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
