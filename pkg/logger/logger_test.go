package logger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dreschagin/photo-gallery/internal/application/port"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []port.LogEntry
}

func (p *recordingPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	for _, entry := range entries {
		_ = p.Publish(ctx, entry)
	}
	return nil
}

func (p *recordingPublisher) Flush(_ context.Context) error {
	return nil
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"info", INFO},
		{"warn", WARN},
		{"error", ERROR},
		{"", INFO},
		{"verbose", INFO},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_PublishesAboveLevel(t *testing.T) {
	log := NewWithOptions(Options{Level: "warn", Format: "console"})
	publisher := &recordingPublisher{}
	log.SetLogPublisher(publisher)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("listing slow", "bucket", "photos", "duration_ms", 1200)
	log.Error("listing failed", errors.New("access denied"), "bucket", "photos")

	if len(publisher.entries) != 2 {
		t.Fatalf("expected 2 published entries, got %d", len(publisher.entries))
	}

	warn := publisher.entries[0]
	if warn.Level != port.LogLevelWarn || warn.Message != "listing slow" {
		t.Fatalf("unexpected warn entry: %+v", warn)
	}
	if warn.Fields["bucket"] != "photos" {
		t.Fatalf("expected bucket field, got %v", warn.Fields)
	}

	errEntry := publisher.entries[1]
	if errEntry.Level != port.LogLevelError {
		t.Fatalf("unexpected level: %s", errEntry.Level)
	}
	if errEntry.Fields["error"] != "access denied" {
		t.Fatalf("expected error field, got %v", errEntry.Fields)
	}
}

func TestToFields_OddArgs(t *testing.T) {
	fields := toFields("a", 1, "dangling")
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "a" {
		t.Fatalf("unexpected key: %s", fields[0].Key)
	}
}
