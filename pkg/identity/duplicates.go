package identity

import (
	"sort"
	"strings"
)

// KeyType names the identity key a duplicate group was found under.
type KeyType string

const (
	KeyDisplayName KeyType = "displayName"
	KeyLogin       KeyType = "login"
	KeyChatHandle  KeyType = "chatHandle"
	KeyChatID      KeyType = "chatId"
)

var keyOrder = []KeyType{KeyDisplayName, KeyLogin, KeyChatHandle, KeyChatID}

// Record is the identity view of a member used for duplicate detection.
type Record struct {
	Login       string
	DisplayName string
	ChatHandle  string
	ChatID      string
}

func (r Record) key(k KeyType) string {
	switch k {
	case KeyDisplayName:
		return NormalizeHandle(r.DisplayName)
	case KeyLogin:
		return NormalizeLogin(r.Login)
	case KeyChatHandle:
		return NormalizeHandle(r.ChatHandle)
	case KeyChatID:
		return strings.TrimSpace(r.ChatID)
	}
	return ""
}

// Group is a set of records sharing one key value while disagreeing on
// another key. Logins are sorted.
type Group struct {
	Key     string
	KeyType KeyType
	Logins  []string
}

// DetectDuplicates groups records by each identity key and keeps the groups
// of two or more records whose members disagree on at least one other key.
// Missing key values are neither grouped nor counted as a distinct value.
// A member set already reported under an earlier key is not reported again.
func DetectDuplicates(records []Record) []Group {
	reported := make(map[string]struct{})
	var out []Group

	for _, keyType := range keyOrder {
		buckets := make(map[string][]Record)
		for _, rec := range records {
			value := rec.key(keyType)
			if value == "" {
				continue
			}
			buckets[value] = append(buckets[value], rec)
		}

		values := make([]string, 0, len(buckets))
		for value, members := range buckets {
			if len(members) >= 2 {
				values = append(values, value)
			}
		}
		sort.Strings(values)

		for _, value := range values {
			members := buckets[value]
			if !diverges(members, keyType) {
				continue
			}
			logins := make([]string, 0, len(members))
			for _, m := range members {
				logins = append(logins, m.Login)
			}
			sort.Strings(logins)
			signature := strings.Join(logins, "\x00")
			if _, seen := reported[signature]; seen {
				continue
			}
			reported[signature] = struct{}{}
			out = append(out, Group{Key: value, KeyType: keyType, Logins: logins})
		}
	}
	return out
}

func diverges(members []Record, grouped KeyType) bool {
	for _, other := range keyOrder {
		if other == grouped {
			continue
		}
		distinct := make(map[string]struct{})
		for _, m := range members {
			if v := m.key(other); v != "" {
				distinct[v] = struct{}{}
			}
		}
		if len(distinct) > 1 {
			return true
		}
	}
	return false
}
