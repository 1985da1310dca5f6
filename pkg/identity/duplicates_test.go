package identity

import (
	"reflect"
	"testing"
)

func TestDetectDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    []Group
	}{
		{
			name: "shared login without divergence is not reported",
			records: []Record{
				{Login: "Alice", DisplayName: "Alice", ChatHandle: "alice"},
				{Login: "alice", DisplayName: "alice", ChatHandle: "alice"},
			},
		},
		{
			name: "shared login with different chat handles is reported",
			records: []Record{
				{Login: "Alice", ChatHandle: "alice"},
				{Login: "alice", ChatHandle: "alice_2"},
			},
			want: []Group{{Key: "alice", KeyType: KeyLogin, Logins: []string{"Alice", "alice"}}},
		},
		{
			name: "missing values are not a divergence",
			records: []Record{
				{Login: "a1", DisplayName: "Red Shadow", ChatID: "1021398088474169414"},
				{Login: "a1", DisplayName: "Red Shadow"},
			},
		},
		{
			name: "group reported once across keys",
			records: []Record{
				{Login: "redshadow", DisplayName: "Red Shadow", ChatHandle: "red", ChatID: "1"},
				{Login: "red_shadow31", DisplayName: "red-shadow", ChatHandle: "red", ChatID: "2"},
				{Login: "other", DisplayName: "Other"},
			},
			want: []Group{{Key: "red_shadow", KeyType: KeyDisplayName, Logins: []string{"red_shadow31", "redshadow"}}},
		},
		{
			name: "chat id collision",
			records: []Record{
				{Login: "one", DisplayName: "One", ChatID: "1021398088474169414"},
				{Login: "two", DisplayName: "Two", ChatID: "1021398088474169414"},
			},
			want: []Group{{Key: "1021398088474169414", KeyType: KeyChatID, Logins: []string{"one", "two"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDuplicates(tt.records)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
