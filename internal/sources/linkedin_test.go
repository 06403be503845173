package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/cache"
)

func TestLinkedInRecoversFromUpstream429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(profileSearchResponse{
			Items: []linkedinProfile{{
				Name:       "A Person",
				Headline:   "Engineer at Initech",
				ProfileURL: "https://linkedin.com/in/a-person",
			}},
			Found: 1,
			Page:  0,
			Pages: 1,
		})
	}))
	defer server.Close()

	adapter := NewLinkedIn(server.URL, "token", false, zap.NewNop())
	src := NewSource(adapter, testLimiter(), cache.NewMemory(0), time.Minute, 3, zap.NewNop())
	sink := &recordingSink{}

	records := src.Fetch(context.Background(), testJob(), sink)

	if len(records) != 1 {
		t.Fatalf("expected the record after retry, got %d", len(records))
	}
	if records[0].Profile.Name != "A Person" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if len(sink.entries) != 0 {
		t.Fatalf("recovered throttle must not appear in partial failures: %v", sink.entries)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls.Load())
	}
}

func TestLinkedInPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		resp := profileSearchResponse{Pages: 2}
		switch page {
		case "", "0":
			resp.Page = 0
			resp.Items = []linkedinProfile{{Name: "First", ProfileURL: "https://linkedin.com/in/first"}}
		default:
			resp.Page = 1
			resp.Items = []linkedinProfile{{Name: "Second", ProfileURL: "https://linkedin.com/in/second"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := NewLinkedIn(server.URL, "token", false, zap.NewNop())
	src := NewSource(adapter, testLimiter(), cache.NewMemory(0), time.Minute, 3, zap.NewNop())
	sink := &recordingSink{}

	records := src.Fetch(context.Background(), testJob(), sink)

	if len(records) != 2 {
		t.Fatalf("expected records from both pages, got %d", len(records))
	}
	if records[0].Profile.Name != "First" || records[1].Profile.Name != "Second" {
		t.Fatalf("unexpected page order: %+v", records)
	}
}

func TestLinkedInServerErrorIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewLinkedIn(server.URL, "token", false, zap.NewNop())
	src := NewSource(adapter, testLimiter(), cache.NewMemory(0), time.Minute, 1, zap.NewNop())
	sink := &recordingSink{}

	records := src.Fetch(context.Background(), testJob(), sink)

	if len(records) != 0 {
		t.Fatalf("expected no records on 5xx")
	}
	if len(sink.entries) != 1 || sink.entries[0].Reason != ReasonTransport {
		t.Fatalf("expected transport failure, got %v", sink.entries)
	}
}
