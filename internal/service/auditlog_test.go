package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yono-dev/craftmind/internal/config"
)

func TestAuditLoggerDisabled(t *testing.T) {
	l := NewAuditLogger("")
	assert.False(t, l.Enabled())
	// Must be a no-op, not a panic or a network call.
	l.Record(context.Background(), 1, "chat", "m", "in", "out")
}

func TestAuditRecordFollowsRedirectWithRePost(t *testing.T) {
	var ingested auditPayload
	ingestCalls := 0

	var mux http.ServeMux
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		// The webhook host bounces to the real ingest endpoint.
		w.Header().Set("Location", "/ingest")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		ingestCalls++
		require.Equal(t, "POST", r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ingested))
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	l := NewAuditLogger(srv.URL + "/hook")
	l.Record(context.Background(), 42, "chat", "model-x", "question", "answer")

	assert.Equal(t, 1, ingestCalls)
	assert.Equal(t, int64(42), ingested.UserID)
	assert.Equal(t, "chat", ingested.Mode)
	assert.Equal(t, "model-x", ingested.Model)
	assert.Equal(t, "question", ingested.UserInput)
	assert.Equal(t, "answer", ingested.Response)
}

func TestAuditRecordTruncatesResponse(t *testing.T) {
	var ingested auditPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ingested))
	}))
	defer srv.Close()

	long := strings.Repeat("a", config.MaxAuditResponseLen+500)
	l := NewAuditLogger(srv.URL)
	l.Record(context.Background(), 1, "chat", "m", "in", long)

	assert.Len(t, ingested.Response, config.MaxAuditResponseLen)
}

func TestFetchHistory(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/data?"+r.URL.RawQuery)
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "history", r.URL.Query().Get("action"))
		assert.Equal(t, "42", r.URL.Query().Get("userId"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		fmt.Fprint(w, `{"status":"ok","entries":[
			{"timestamp":"2026-08-01 10:00","mode":"chat","model":"m","userInput":"q","aiResponse":"a"}
		]}`)
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	l := NewAuditLogger(srv.URL + "/hook")
	entries, err := l.FetchHistory(context.Background(), 42, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chat", entries[0].Mode)
	assert.Equal(t, "q", entries[0].UserInput)
}

func TestFetchHistoryBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","entries":[]}`)
	}))
	defer srv.Close()

	l := NewAuditLogger(srv.URL)
	_, err := l.FetchHistory(context.Background(), 1, 1)
	assert.Error(t, err)
}
