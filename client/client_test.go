package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/listcount"
)

type role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestEncodeRequestShape(t *testing.T) {
	q := listcount.Query{
		Filters:  listcount.FilterSet{"name": listcount.String("admin"), "status": listcount.Int(1), "desc": listcount.Null()},
		Page:     listcount.Page{Page: 2, Limit: 10},
		CountNum: true,
	}
	b, err := EncodeRequest(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"admin","status":1,"page":{"page":2,"limit":10},"count_num":true}`, string(b))
}

func TestEncodeRequestDefaultsPage(t *testing.T) {
	b, err := EncodeRequest(listcount.Query{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"page":{"page":1,"limit":20},"count_num":false}`, string(b))
}

func TestEncodeRequestRejectsReserved(t *testing.T) {
	_, err := EncodeRequest(listcount.Query{Filters: listcount.FilterSet{"page": listcount.Int(1)}})
	require.ErrorIs(t, err, ErrReservedField)
}

func newServer(t *testing.T, h http.HandlerFunc) *Lister[role] {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	l, err := New[role](Config{
		URL:    srv.URL,
		Header: http.Header{"Authorization": []string{"Bearer t"}},
	})
	require.NoError(t, err)
	return l
}

func TestFetchWithAndWithoutTotal(t *testing.T) {
	l := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		resp := map[string]any{
			"status": true,
			"data":   []role{{ID: 1, Name: "admin"}},
		}
		if body["count_num"] == true {
			resp["total"] = 5
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	ctx := context.Background()

	res, err := l.Fetch(ctx, listcount.Query{CountNum: true})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "admin", res.Rows[0].Name)
	require.NotNil(t, res.Total)
	assert.Equal(t, int64(5), *res.Total)

	res, err = l.Fetch(ctx, listcount.Query{Page: listcount.Page{Page: 2}})
	require.NoError(t, err)
	assert.Nil(t, res.Total)
}

func TestFetchAPIError(t *testing.T) {
	l := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"permission denied"}`))
	})
	_, err := l.Fetch(context.Background(), listcount.Query{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "permission denied", apiErr.Message)
}

func TestFetchHTTPError(t *testing.T) {
	l := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := l.Fetch(context.Background(), listcount.Query{})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "upstream down")
}

func TestFetchBadJSON(t *testing.T) {
	l := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	})
	_, err := l.Fetch(context.Background(), listcount.Query{})
	require.ErrorContains(t, err, "decode response")
}

func TestFetchCanceled(t *testing.T) {
	release := make(chan struct{})
	l := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := l.Fetch(ctx, listcount.Query{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New[role](Config{})
	require.Error(t, err)
}
