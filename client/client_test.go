package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sardine-ai/dmx-artnet-checker/artnet"
	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sardine-ai/dmx-artnet-checker/server"
	"github.com/sardine-ai/dmx-artnet-checker/settings"
)

type recordingTransport struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingTransport) Send(universe uint16, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, append([]byte(nil), data...))
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func startServer(t *testing.T, authKey string) (*httptest.Server, *settings.Store, *recordingTransport) {
	t.Helper()
	registry, err := settings.NewRegistry(filepath.Join(t.TempDir(), "settings"))
	if err != nil {
		t.Fatalf("Error creating registry: %s", err.Error())
	}
	store := settings.NewStore(registry)
	transport := &recordingTransport{}
	controller := artnet.NewController(func(string, int) (artnet.Transport, error) {
		return transport, nil
	}, store.Config().Network)

	srv := server.NewServer(store, controller)
	srv.AuthKey = authKey
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store, transport
}

func TestNewClient(t *testing.T) {
	ts, store, _ := startServer(t, "secret")
	if err := store.UpdateSection("app", map[string]interface{}{"name": "Club"}); err != nil {
		t.Fatalf("Error updating section: %s", err.Error())
	}

	client := NewClient(context.Background(), ts.URL, "secret", 0)
	defer client.Close()

	cfg := client.Config()
	if cfg.App.Name != "Club" {
		t.Errorf("Expected app name Club, got %s", cfg.App.Name)
	}
	if cfg.ChannelCount() != 16 {
		t.Errorf("Expected 16 channels, got %d", cfg.ChannelCount())
	}
	if client.ActiveFile() != "config/config.yaml" {
		t.Errorf("Expected active file config/config.yaml, got %s", client.ActiveFile())
	}

	var network model.NetworkConfig
	if err := client.GetConfig("network", &network); err != nil {
		t.Fatalf("Error getting config: %s", err.Error())
	}
	if network.DefaultPort != 6454 {
		t.Errorf("Expected port 6454, got %d", network.DefaultPort)
	}
	if err := client.GetConfig("missing", &network); err == nil {
		t.Error("Expected error for missing section")
	}
}

func TestNewClientUnauthorized(t *testing.T) {
	ts, _, _ := startServer(t, "secret")
	client := NewClient(context.Background(), ts.URL, "wrong", 0)
	defer client.Close()

	// the failed initial fetch leaves the defaults in place
	if client.Config().App.Name != model.DefaultConfig().App.Name {
		t.Errorf("Expected default app name, got %s", client.Config().App.Name)
	}

	err := client.Refresh(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", apiErr.StatusCode)
	}
}

func TestClientBackgroundRefresh(t *testing.T) {
	ts, store, _ := startServer(t, "")
	client := NewClient(context.Background(), ts.URL, "", 20*time.Millisecond)
	defer client.Close()

	err := store.UpdateSection("channels", map[string]interface{}{
		"display_range": map[string]interface{}{"start": 1, "end": 48},
	})
	if err != nil {
		t.Fatalf("Error updating section: %s", err.Error())
	}

	deadline := time.Now().Add(5 * time.Second)
	for client.Config().ChannelCount() != 48 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected 48 channels after refresh, got %d", client.Config().ChannelCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientFilesAndSwitch(t *testing.T) {
	ts, store, _ := startServer(t, "")
	if _, _, err := store.SaveAs("stage", "", ""); err != nil {
		t.Fatalf("Error saving config: %s", err.Error())
	}
	client := NewClient(context.Background(), ts.URL, "", 0)
	defer client.Close()
	ctx := context.Background()

	files, err := client.ListFiles(ctx)
	if err != nil {
		t.Fatalf("Error listing files: %s", err.Error())
	}
	if len(files) != 1 || files[0] != "config/stage.yaml" {
		t.Errorf("Expected [config/stage.yaml], got %v", files)
	}

	if err := client.SwitchActive(ctx, "config/stage.yaml"); err != nil {
		t.Fatalf("Error switching: %s", err.Error())
	}
	if client.ActiveFile() != "config/stage.yaml" {
		t.Errorf("Expected active file config/stage.yaml, got %s", client.ActiveFile())
	}

	err = client.SwitchActive(ctx, "config/missing.yaml")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 APIError, got %v", err)
	}

	err = client.UpdateSection(ctx, "channels", map[string]interface{}{
		"display_range": map[string]interface{}{"start": 1, "end": 8},
	})
	if err != nil {
		t.Fatalf("Error updating section: %s", err.Error())
	}
	if client.Config().ChannelCount() != 8 {
		t.Errorf("Expected 8 channels, got %d", client.Config().ChannelCount())
	}
}

func TestClientArtNet(t *testing.T) {
	ts, _, transport := startServer(t, "")
	client := NewClient(context.Background(), ts.URL, "", 0)
	defer client.Close()
	ctx := context.Background()

	err := client.SetChannel(ctx, nil, 0, 255)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 APIError when not connected, got %v", err)
	}

	universe := 3
	status, err := client.Connect(ctx, "10.0.0.255", 0, &universe)
	if err != nil {
		t.Fatalf("Error connecting: %s", err.Error())
	}
	expected := artnet.Status{Connected: true, Address: "10.0.0.255", Port: 6454, Universe: 3}
	if status != expected {
		t.Errorf("Expected %+v, got %+v", expected, status)
	}

	if err := client.SetChannel(ctx, nil, 9, 128); err != nil {
		t.Fatalf("Error setting channel: %s", err.Error())
	}
	if err := client.Send(ctx, nil, []int{1, 2}); err != nil {
		t.Fatalf("Error sending: %s", err.Error())
	}
	transport.mu.Lock()
	if len(transport.frames) != 2 || transport.frames[1][9] != 128 || transport.frames[1][1] != 2 {
		t.Errorf("Unexpected frames %v", len(transport.frames))
	}
	transport.mu.Unlock()

	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("Error disconnecting: %s", err.Error())
	}
	status, err = client.Status(ctx)
	if err != nil {
		t.Fatalf("Error getting status: %s", err.Error())
	}
	if status.Connected {
		t.Error("Expected disconnected status")
	}
}
