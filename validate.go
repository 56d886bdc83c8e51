package omnikv

import (
	"strings"
	"unicode/utf8"
)

// MaxKeyLength matches the VARCHAR(192) key column of SQL backends.
const MaxKeyLength = 192

func checkKey(k string, idx int) error {
	n := utf8.RuneCountInString(k)
	switch {
	case n == 0:
		return &ValidationError{Key: k, Index: idx, Reason: "key must not be empty"}
	case n > MaxKeyLength:
		return &ValidationError{Key: truncateKey(k, 32), Index: idx, Reason: "key must be 1 through 192 characters in length"}
	case strings.TrimSpace(k) == "":
		return &ValidationError{Key: k, Index: idx, Reason: "key must not be blank"}
	}
	return nil
}

// truncateKey cuts k to n runes for error messages.
func truncateKey(k string, n int) string {
	for i := range k {
		if n == 0 {
			return k[:i] + "..."
		}
		n--
	}
	return k
}

// validateKey checks a single key.
func validateKey(k string) error { return checkKey(k, -1) }

// validateKeys checks every key of a multi-key call. An empty slice fails
// unless allowEmpty is set.
func validateKeys(ks []string, allowEmpty bool) error {
	if len(ks) == 0 && !allowEmpty {
		return &ValidationError{Index: -1, Reason: "key list must contain at least one entry"}
	}
	for i, k := range ks {
		if err := checkKey(k, i); err != nil {
			return err
		}
	}
	return nil
}
