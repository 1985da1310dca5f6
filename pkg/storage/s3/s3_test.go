package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

const listBody = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>legacy</Name>
  <Prefix>evaluations/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>evaluations/2024-03/section-b.json</Key><Size>2</Size></Contents>
  <Contents><Key>evaluations/2024-03/section-a.json</Key><Size>2</Size></Contents>
</ListBucketResult>`

const missingBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("list-type") == "2":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(listBody))
		case strings.HasSuffix(r.URL.Path, "/evaluations/2024-03/section-a.json"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(missingBody))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := New(context.Background(), Config{
		Region:       "us-east-1",
		AccessKey:    "test",
		SecretKey:    "test",
		Bucket:       "legacy",
		BaseEndpoint: srv.URL,
		UsePathStyle: true,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return client
}

func TestListKeysSorted(t *testing.T) {
	client := newTestClient(t)
	keys, err := client.ListKeys(context.Background(), "evaluations/")
	if err != nil {
		t.Fatalf("ListKeys error: %v", err)
	}
	want := []string{"evaluations/2024-03/section-a.json", "evaluations/2024-03/section-b.json"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	client := newTestClient(t)
	data, err := client.Get(context.Background(), "evaluations/2024-03/section-a.json")
	if err != nil || string(data) != "{}" {
		t.Fatalf("Get = %q, %v", data, err)
	}
	data, err = client.Get(context.Background(), "evaluations/2024-03/section-d.json")
	if err != nil || data != nil {
		t.Fatalf("missing key should return nil, nil; got %q, %v", data, err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
