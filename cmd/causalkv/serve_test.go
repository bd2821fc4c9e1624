package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bluesky-social/causalkv/feed"
	"github.com/bluesky-social/causalkv/kvstore"
	"github.com/bluesky-social/causalkv/replication"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, feeds ...feed.Feed) *kvstore.DB {
	db := kvstore.Open(feeds, &kvstore.Options{Logger: slog.Default()})
	require.NoError(t, db.Ready(context.Background()))
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}

func newKey(t *testing.T) feed.Key {
	k, err := feed.NewKey()
	require.NoError(t, err)
	return k
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServerKV(t *testing.T) {
	assert := assert.New(t)

	db := testStore(t, feed.NewMemFeed(newKey(t), true))
	srv := NewServer(db, slog.Default())

	rec := do(srv, http.MethodGet, "/_health", "")
	assert.Equal(http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/kv/hello", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodPut, "/kv/hello", "world")
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = do(srv, http.MethodGet, "/kv/hello", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []nodeOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal("hello", got[0].Key)
	assert.Equal("world", got[0].Value)
	assert.Equal(uint64(1), got[0].Seq)

	rec = do(srv, http.MethodPut, "/kv/other", "thing")
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = do(srv, http.MethodGet, "/list", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal("hello", got[0].Key)
	assert.Equal("other", got[1].Key)

	rec = do(srv, http.MethodGet, "/list?prefix=9", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestServerReadOnly(t *testing.T) {
	assert := assert.New(t)

	db := testStore(t, feed.NewMemFeed(newKey(t), false))
	srv := NewServer(db, slog.Default())

	rec := do(srv, http.MethodPut, "/kv/hello", "world")
	assert.Equal(http.StatusForbidden, rec.Code)
}

func TestServerReplicate(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ka, kb := newKey(t), newKey(t)
	remote := testStore(t, feed.NewMemFeed(ka, true), feed.NewMemFeed(kb, false))
	local := testStore(t, feed.NewMemFeed(ka, false), feed.NewMemFeed(kb, true))

	require.NoError(t, remote.Put(ctx, "from-remote", []byte("r")))
	require.NoError(t, local.Put(ctx, "from-local", []byte("l")))

	ts := httptest.NewServer(NewServer(remote, slog.Default()))
	defer ts.Close()

	s, err := local.Replicate(ctx, replication.Options{})
	require.NoError(t, err)
	require.NoError(t, replication.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/replicate", s))

	nodes, err := local.Get(ctx, "from-remote")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal([]byte("r"), nodes[0].Value)

	// the serving side finishes its half of the session on its own schedule
	assert.Eventually(func() bool {
		nodes, err := remote.Get(ctx, "from-local")
		return err == nil && len(nodes) == 1 && string(nodes[0].Value) == "l"
	}, 5*time.Second, 20*time.Millisecond)
}
