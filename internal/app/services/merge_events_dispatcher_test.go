package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	waLog "go.mau.fi/whatsmeow/util/log"
)

func TestMergeEventsDispatcherPostsEvents(t *testing.T) {
	var got []member.MergeEvent
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewMergeEventsDispatcher(srv.URL, "secret", srv.Client(), waLog.Noop)
	event := member.MergeEvent{Type: member.EventMerged, MergedLogin: "alice", RemovedLogins: []string{"alice2"}, OccurredAt: time.Now().UTC()}
	if err := d.Dispatch(context.Background(), []member.MergeEvent{event}); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if len(got) != 1 || got[0].MergedLogin != "alice" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestMergeEventsDispatcherStatusAndNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	events := []member.MergeEvent{{Type: member.EventMerged, MergedLogin: "alice"}}
	failing := NewMergeEventsDispatcher(srv.URL, "", srv.Client(), waLog.Noop)
	if err := failing.Dispatch(context.Background(), events); !errors.Is(err, errMergeWebhookStatus) {
		t.Fatalf("expected status error, got %v", err)
	}
	if err := NewMergeEventsDispatcher(" ", "", nil, nil).Dispatch(context.Background(), events); err != nil {
		t.Fatalf("empty URL should be a no-op, got %v", err)
	}
}
