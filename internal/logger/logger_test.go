package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		rb.Push(i)
	}

	got := rb.GetAll()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("GetAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetAll()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	rb.Clear()
	if rb.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", rb.Len())
	}
}

type recordingHub struct {
	mu    sync.Mutex
	types []string
}

func (h *recordingHub) Broadcast(msgType string, _ interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, msgType)
	return nil
}

func TestLogBroadcaster_ParsesAndForwards(t *testing.T) {
	hub := &recordingHub{}
	b := NewLogBroadcaster(hub, 10)
	log := zerolog.New(b)

	log.Info().Str("component", "engine").Str("mediaType", "tv").Msg("Intent resolved")
	_, _ = b.Write([]byte("not json"))

	entries := b.GetRecentLogs()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != "info" || e.Component != "engine" || e.Message != "Intent resolved" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Fields["mediaType"] != "tv" {
		t.Errorf("Fields[mediaType] = %v, want tv", e.Fields["mediaType"])
	}
	if len(hub.types) != 1 || hub.types[0] != MessageType {
		t.Errorf("hub received %v, want [%s]", hub.types, MessageType)
	}
}

func TestLogBroadcaster_Recent(t *testing.T) {
	b := NewLogBroadcaster(nil, 10)
	log := zerolog.New(b)
	log.Debug().Msg("one")
	log.Warn().Msg("two")
	log.Error().Msg("three")
	log.Warn().Msg("four")

	got := b.Recent(zerolog.WarnLevel, 2)
	if len(got) != 2 || got[0].Message != "three" || got[1].Message != "four" {
		t.Errorf("Recent(warn, 2) = %+v", got)
	}
	if all := b.Recent(zerolog.TraceLevel, 0); len(all) != 4 {
		t.Errorf("Recent(trace, 0) returned %d entries, want 4", len(all))
	}
}

func TestNew_WritesFileAndStreams(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	log := New(Config{
		Level:           "info",
		Format:          "json",
		Path:            dir,
		EnableStreaming: true,
		BufferSize:      5,
		Console:         &console,
	})
	hub := &recordingHub{}
	log.SetBroadcastHub(hub)

	log.Info().Msg("hello")
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello")) {
		t.Errorf("log file does not contain the entry: %s", data)
	}
	if !bytes.Contains(console.Bytes(), []byte("hello")) {
		t.Errorf("console output does not contain the entry: %s", console.String())
	}
	if n := len(log.GetRecentLogs()); n != 1 {
		t.Errorf("GetRecentLogs() returned %d entries, want 1", n)
	}
	if len(hub.types) != 1 {
		t.Errorf("hub received %d messages, want 1", len(hub.types))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
