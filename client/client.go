package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sardine-ai/dmx-artnet-checker/artnet"
	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// APIError is returned when the server answers with a non-success envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	sync.RWMutex
	BaseURL         string
	APIKey          string
	HTTPClient      *http.Client
	RefreshInterval time.Duration
	cancel          context.CancelFunc
	document        model.Document // Last fetched configuration document
	activeFile      string
}

// NewClient creates a Client for the server at baseURL and fetches the
// configuration once. When refreshInterval is positive a background
// goroutine keeps the cached configuration up to date until Close.
func NewClient(ctx context.Context, baseURL, apiKey string, refreshInterval time.Duration) *Client {
	ctx, cancel := context.WithCancel(ctx)
	client := &Client{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		APIKey:          apiKey,
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
		RefreshInterval: refreshInterval,
		cancel:          cancel,
		document:        model.DefaultConfig().Document(),
	}

	if err := client.Refresh(ctx); err != nil {
		logrus.WithError(err).Error("error refreshing configuration")
	}
	if refreshInterval > 0 {
		go refresh(ctx, client)
	}
	return client
}

func refresh(ctx context.Context, client *Client) {
	ticker := time.NewTicker(client.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := client.Refresh(ctx); err != nil {
				logrus.WithError(err).Error("error refreshing configuration")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the background refresh goroutine.
func (c *Client) Close() {
	c.cancel()
}

type configResponse struct {
	Config       model.Document `json:"config"`
	ChannelCount int            `json:"channelCount"`
	ActiveFile   string         `json:"activeFile"`
}

// Refresh fetches the configuration and replaces the cached copy.
func (c *Client) Refresh(ctx context.Context) error {
	var resp configResponse
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &resp); err != nil {
		return err
	}
	c.store(resp)
	return nil
}

func (c *Client) store(resp configResponse) {
	if resp.Config == nil {
		return
	}
	c.Lock()
	defer c.Unlock()
	c.document = resp.Config
	c.activeFile = resp.ActiveFile
}

// Document returns a copy of the cached configuration document.
func (c *Client) Document() model.Document {
	c.RLock()
	defer c.RUnlock()
	return c.document.Clone()
}

// Config returns the typed view of the cached configuration.
func (c *Client) Config() model.Config {
	cfg, err := c.Document().Config()
	if err != nil {
		logrus.WithError(err).Error("error decoding configuration, using defaults")
		return model.DefaultConfig()
	}
	return cfg
}

// ActiveFile returns the active file reported by the last fetch.
func (c *Client) ActiveFile() string {
	c.RLock()
	defer c.RUnlock()
	return c.activeFile
}

// GetConfig decodes the cached section with the given name into data.
func (c *Client) GetConfig(name string, data interface{}) error {
	c.RLock()
	section, ok := c.document[name]
	c.RUnlock()
	if !ok {
		return errors.New("config not found")
	}
	marshal, err := yaml.Marshal(section)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(marshal, data)
}

// UpdateSection merges data into a section on the server.
func (c *Client) UpdateSection(ctx context.Context, section string, data map[string]interface{}) error {
	var resp configResponse
	if err := c.do(ctx, http.MethodPatch, "/api/config/"+section, data, &resp); err != nil {
		return err
	}
	c.store(resp)
	return nil
}

// ListFiles returns the configuration files known to the server.
func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	var resp struct {
		Files []string `json:"files"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/settings/files", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// SwitchActive makes file the active configuration on the server.
func (c *Client) SwitchActive(ctx context.Context, file string) error {
	var resp configResponse
	if err := c.do(ctx, http.MethodPost, "/api/settings/active", map[string]string{"file": file}, &resp); err != nil {
		return err
	}
	c.store(resp)
	return nil
}

type statusResponse struct {
	IsConnected bool `json:"isConnected"`
	Config      struct {
		IP       string `json:"ip"`
		Port     int    `json:"port"`
		Universe int    `json:"universe"`
	} `json:"config"`
}

func (r statusResponse) status() artnet.Status {
	return artnet.Status{Connected: r.IsConnected, Address: r.Config.IP, Port: r.Config.Port, Universe: r.Config.Universe}
}

// Connect opens an Art-Net session on the server. Empty or nil arguments
// keep the server's current endpoint.
func (c *Client) Connect(ctx context.Context, ip string, port int, universe *int) (artnet.Status, error) {
	body := map[string]interface{}{}
	if ip != "" {
		body["ip"] = ip
	}
	if port != 0 {
		body["port"] = port
	}
	if universe != nil {
		body["universe"] = *universe
	}
	var resp statusResponse
	if err := c.do(ctx, http.MethodPost, "/api/artnet/connect", body, &resp); err != nil {
		return artnet.Status{}, err
	}
	return resp.status(), nil
}

// Disconnect closes the server's Art-Net session.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/artnet/disconnect", nil, nil)
}

// Status reports the server's Art-Net session.
func (c *Client) Status(ctx context.Context) (artnet.Status, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/api/artnet/status", nil, &resp); err != nil {
		return artnet.Status{}, err
	}
	return resp.status(), nil
}

// SetChannel sets one zero-based channel. A nil universe uses the session
// universe.
func (c *Client) SetChannel(ctx context.Context, universe *int, channel, value int) error {
	body := map[string]interface{}{"channel": channel, "value": value}
	if universe != nil {
		body["universe"] = *universe
	}
	return c.do(ctx, http.MethodPost, "/api/artnet/channel", body, nil)
}

// Send writes values starting at channel 0.
func (c *Client) Send(ctx context.Context, universe *int, values []int) error {
	body := map[string]interface{}{"channels": values}
	if universe != nil {
		body["universe"] = *universe
	}
	return c.do(ctx, http.MethodPost, "/api/artnet/send", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-KEY", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Message string `json:"message"`
		}
		message := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
			message = envelope.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
