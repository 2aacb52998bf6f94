package logger

import "testing"

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "Production", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("mode", mode).Debug("built")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded", "k", "v")
	l.Sync()
}

func TestSetDebug(t *testing.T) {
	l, err := New("prod")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	child := l.With("component", "test")
	if l.DebugEnabled() || child.DebugEnabled() {
		t.Fatal("prod logger should start at info level")
	}

	l.SetDebug(true)
	if !l.DebugEnabled() || !child.DebugEnabled() {
		t.Error("SetDebug(true) did not enable debug on the logger and its children")
	}

	l.SetDebug(false)
	if l.DebugEnabled() {
		t.Error("SetDebug(false) left debug enabled")
	}
}

func TestSetDebug_Nop(t *testing.T) {
	l := Nop()
	l.SetDebug(true)
	if l.DebugEnabled() {
		t.Error("Nop logger should stay silent")
	}
}
