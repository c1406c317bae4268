package client

import (
	"encoding/json"
	"fmt"

	"github.com/unkn0wn-root/listcount"
)

const (
	fieldPage     = "page"
	fieldCountNum = "count_num"
)

// Response is the list response envelope. Total is present only when the
// request had count_num=true.
type Response[T any] struct {
	Status  bool   `json:"status"`
	Data    []T    `json:"data"`
	Total   *int64 `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result converts a successful envelope.
func (r Response[T]) Result() listcount.PageQueryResult[T] {
	return listcount.PageQueryResult[T]{Rows: r.Data, Total: r.Total}
}

// EncodeRequest builds the list request body:
//
//	{ ...filters, "page": {"page": n, "limit": n}, "count_num": bool }
//
// Null filters are omitted.
func EncodeRequest(q listcount.Query) ([]byte, error) {
	body := make(map[string]any, len(q.Filters)+2)
	for k, v := range q.Filters {
		if k == fieldPage || k == fieldCountNum {
			return nil, fmt.Errorf("%w: %q", ErrReservedField, k)
		}
		if v.IsNull() {
			continue
		}
		body[k] = v
	}
	body[fieldPage] = q.Page.Normalize()
	body[fieldCountNum] = q.CountNum
	return json.Marshal(body)
}
