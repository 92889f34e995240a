package logging

import "testing"

func TestNew(t *testing.T) {
	for _, mode := range []string{"debug", "release", ""} {
		logger, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		if logger == nil {
			t.Fatalf("New(%q) returned nil logger", mode)
		}
		debug := logger.Core().Enabled(-1)
		if mode == "release" && debug {
			t.Error("Expected release logger to skip debug")
		}
		if mode != "release" && !debug {
			t.Errorf("Expected %q logger to emit debug", mode)
		}
		Sync(logger)
	}
	Sync(nil)
}
