package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

type fakeHelix struct {
	tokenCalls int32
	userCalls  int32
	rejectOnce int32
}

func (f *fakeHelix) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		if r.Method != http.MethodPost || r.FormValue("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.userCalls, 1)
		if atomic.CompareAndSwapInt32(&f.rejectOnce, 1, 0) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("Client-Id") != "cid" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		var data []User
		for _, login := range r.URL.Query()["login"] {
			if login == "ghost" {
				continue
			}
			data = append(data, User{ID: "id-" + login, Login: login})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	return mux
}

// redirect sends every request to the test server, keeping the path.
type redirect struct {
	target *url.URL
	next   http.RoundTripper
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = r.target.Host
	return r.next.RoundTrip(out)
}

func newTestClient(t *testing.T, f *fakeHelix) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	httpClient := &http.Client{Transport: redirect{target: target, next: srv.Client().Transport}}
	client, err := NewClient(Config{ClientID: "cid", ClientSecret: "secret"}, NewTokenCache(time.Minute), httpClient, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestResolveNumericIDsCachesToken(t *testing.T) {
	f := &fakeHelix{}
	client := newTestClient(t, f)
	ctx := context.Background()

	ids, err := client.ResolveNumericIDs(ctx, []string{"Alice", "alice", "ghost", "bob"})
	if err != nil {
		t.Fatalf("ResolveNumericIDs error: %v", err)
	}
	if len(ids) != 2 || ids["alice"] != "id-alice" || ids["bob"] != "id-bob" {
		t.Fatalf("unexpected ids %v", ids)
	}
	id, err := client.ResolveNumericID(ctx, "ghost")
	if err != nil || id != "" {
		t.Fatalf("unknown login should resolve to empty, got %q %v", id, err)
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 1 {
		t.Fatalf("token should be fetched once, got %d", got)
	}
}

func TestResolveRefreshesRejectedToken(t *testing.T) {
	f := &fakeHelix{rejectOnce: 1}
	client := newTestClient(t, f)

	id, err := client.ResolveNumericID(context.Background(), "alice")
	if err != nil || id != "id-alice" {
		t.Fatalf("ResolveNumericID = %q, %v", id, err)
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 2 {
		t.Fatalf("expected token refresh after 401, got %d token calls", got)
	}
}

func TestUsersBatchesByHundred(t *testing.T) {
	f := &fakeHelix{}
	client := newTestClient(t, f)
	logins := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		logins = append(logins, "user"+string(rune('a'+i%26))+string(rune('a'+i/26)))
	}
	users, err := client.Users(context.Background(), logins)
	if err != nil {
		t.Fatalf("Users error: %v", err)
	}
	if len(users) != 150 {
		t.Fatalf("expected 150 users, got %d", len(users))
	}
	if got := atomic.LoadInt32(&f.userCalls); got != 2 {
		t.Fatalf("expected 2 batches, got %d", got)
	}
}

func TestNewClientRequiresClientID(t *testing.T) {
	if _, err := NewClient(Config{}, nil, nil, nil); err == nil {
		t.Fatalf("expected an error without a client id")
	}
}

func TestTokenRequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	client, err := NewClient(Config{ClientID: "cid", ClientSecret: "bad"}, nil,
		&http.Client{Transport: redirect{target: target, next: srv.Client().Transport}}, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if _, err := client.ResolveNumericID(context.Background(), "alice"); !errors.Is(err, ErrTokenRequest) {
		t.Fatalf("expected token request error, got %v", err)
	}
}

func TestTokenCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewTokenCache(time.Minute)
	cache.now = func() time.Time { return now }

	cache.Set("tok", 10*time.Minute)
	if tok, ok := cache.Get(); !ok || tok != "tok" {
		t.Fatalf("expected cached token")
	}
	now = now.Add(9*time.Minute + 30*time.Second)
	if _, ok := cache.Get(); ok {
		t.Fatalf("token inside the skew window must be treated as expired")
	}
	cache.Set("tok2", time.Hour)
	cache.Invalidate()
	if _, ok := cache.Get(); ok {
		t.Fatalf("invalidated token must not be returned")
	}
}
