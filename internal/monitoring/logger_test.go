package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op that must not reach the previous logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

func TestSetTrace(t *testing.T) {
	originalLogf := Logf
	originalTracef := Tracef
	defer func() {
		Logf = originalLogf
		Tracef = originalTracef
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	Tracef("hidden %d", 1)
	if len(lines) != 0 {
		t.Fatalf("Tracef should be silent by default, got %v", lines)
	}

	SetTrace(true)
	Tracef("shown %d", 2)
	if len(lines) != 1 || lines[0] != "[trace] shown 2" {
		t.Fatalf("unexpected debug output %v", lines)
	}

	SetTrace(false)
	Tracef("hidden again")
	if len(lines) != 1 {
		t.Fatalf("Tracef should be silent after SetTrace(false), got %v", lines)
	}
}
