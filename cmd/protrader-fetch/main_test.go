package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs, oldFlags := os.Args, flag.CommandLine
	t.Cleanup(func() { os.Args, flag.CommandLine = oldArgs, oldFlags })

	os.Args = append([]string{"protrader-fetch"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	t.Setenv("PROTRADER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("APCA_API_KEY_ID", "key")
	t.Setenv("APCA_API_SECRET_KEY", "secret")
	t.Setenv("DATA_DIR", t.TempDir())
}

func TestRunExitCodes(t *testing.T) {
	withArgs(t)
	if code := run(); code != 2 {
		t.Errorf("run() without -symbols = %d, want 2", code)
	}

	withArgs(t, "-symbols", "AAPL", "-start", "2024-13-01")
	if code := run(); code != 1 {
		t.Errorf("run() with a bad -start = %d, want 1", code)
	}
}
