package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"tubewatch/internal/config"
	"tubewatch/internal/daemon"
	"tubewatch/internal/store"
	"tubewatch/internal/testsupport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/api/status", d.Addr()))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()
	var status struct {
		Running bool `json:"running"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}

	// Second start while running should fail.
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	d.Stop()
}

func TestConfiguredChannelsAreTracked(t *testing.T) {
	cfg := testConfig(t)
	cfg.Channels.Tracked = []string{"somecreator", "@another"}

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	channels, err := st.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	names := make(map[string]bool, len(channels))
	for _, channel := range channels {
		names[channel.Name] = true
	}
	if !names["somecreator"] || !names["another"] {
		t.Fatalf("configured channels not tracked: %+v", channels)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testConfig(t)

	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = first.Close() })

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock to reject a second instance")
	}
}
