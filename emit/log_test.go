package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, false, ^uintptr(0))
	l.Emit(Event{RunID: "r1", Step: 1, NodeID: "f.go:10:true", Msg: "dispatched", At: time.Now()})
	if !strings.Contains(buf.String(), "dispatched") {
		t.Fatalf("expected message in output, got %q", buf.String())
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogEmitter(&buf, true, ^uintptr(0))
	l.Emit(Event{RunID: "r1", Step: 2, Msg: "solved"})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON line: %v (%q)", err, buf.String())
	}
	if decoded.Msg != "solved" {
		t.Fatalf("expected msg 'solved', got %q", decoded.Msg)
	}
}

func TestNullEmitterDiscards(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{Msg: "ignored"})
	if err := n.Flush(nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
