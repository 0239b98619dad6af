package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testServerConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		EventsDBPath:      filepath.Join(dir, "events.db"),
		ProjectionsDBPath: filepath.Join(dir, "projections.db"),
		SnapshotEvery:     100,
	}
}

func TestServerServeStopsOnContextCancel(t *testing.T) {
	server, err := NewWithAddr(testServerConfig(t), "127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if server.Addr() == "" {
		t.Fatal("expected a listener address")
	}
	if server.Service() == nil {
		t.Fatal("expected a wired service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestNewWithAddrRejectsBadAddress(t *testing.T) {
	if _, err := NewWithAddr(testServerConfig(t), "256.256.256.256:0"); err == nil {
		t.Fatal("expected listen error")
	}
}
