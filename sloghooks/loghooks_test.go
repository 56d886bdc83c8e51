package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRedactsKeys(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{})
	h.LazyDeleteFailed("user:secret", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "user:secret") {
		t.Fatalf("raw key logged: %s", out)
	}
	if !strings.Contains(out, "omnikv.lazy_delete_failed") || !strings.Contains(out, "err=boom") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{Redact: func(string) string { return "xxx" }})
	h.MergeSkipped("k", "next_not_record")
	if !strings.Contains(buf.String(), "key=xxx") || !strings.Contains(buf.String(), "reason=next_not_record") {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{CacheEvery: 10})
	for i := 0; i < 25; i++ {
		h.CacheHit("k")
	}
	if n := strings.Count(buf.String(), "omnikv.cache_hit"); n != 2 {
		t.Fatalf("logged %d hits, want 2", n)
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.CacheMiss("k")
	h.GenError("bump", 3, errors.New("x"))
}
