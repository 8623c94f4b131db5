package logging

import (
	"strings"
	"testing"
)

func TestEmitWritesToAllOutputs(t *testing.T) {
	var a, b strings.Builder
	SetOutputs(&a, &b)
	defer SetOutputs()

	Infof("Test", "hello %d", 42)
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, "INFO") || !strings.Contains(out, "[Test] hello 42") {
			t.Fatalf("line = %q", out)
		}
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	var sb strings.Builder
	SetOutputs(&sb)
	defer SetOutputs()

	Debugf("Test", "hidden")
	if sb.Len() != 0 {
		t.Fatalf("debug line emitted: %q", sb.String())
	}
	SetDebug(true)
	defer SetDebug(false)
	Debugf("Test", "shown")
	if !strings.Contains(sb.String(), "shown") {
		t.Fatalf("debug line missing: %q", sb.String())
	}
}

func TestBufferKeepsTail(t *testing.T) {
	buf := NewBuffer(3)
	SetOutputs(buf)
	defer SetOutputs()

	for _, s := range []string{"one", "two", "three", "four"} {
		Warnf("Test", "%s", s)
	}
	tail := buf.Tail(10)
	if len(tail) != 3 {
		t.Fatalf("tail = %v", tail)
	}
	if !strings.Contains(tail[0], "two") || !strings.Contains(tail[2], "four") {
		t.Fatalf("tail = %v", tail)
	}
	short := buf.Tail(1)
	if len(short) != 1 || !strings.Contains(short[0], "four") {
		t.Fatalf("short tail = %v", short)
	}
}
