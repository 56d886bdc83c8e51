package util

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// MemoKey namespaces a user key inside a shared memo or generation store.
func MemoKey(ns, key string) string {
	return "memo:" + ns + ":" + key
}

// BatchKey returns a deterministic key for a set of members with a short hash.
// Member order does not matter.
func BatchKey(prefix string, keys []string) string {
	s := make([]string, len(keys))
	copy(s, keys)
	sort.Strings(s)
	joined := strings.Join(s, "\x00")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%s:%x", prefix, sum)[:len(prefix)+1+16] // prefix + ":" + first 16 hex chars
}
