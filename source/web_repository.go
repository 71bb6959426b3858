package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

// WebRepository is a struct that implements the Repository interface for
// configuration documents fetched from a remote HTTP endpoint.
type WebRepository struct {
	sync.RWMutex              // RWMutex to synchronize access to data during refresh
	Name         string       // Name of the configuration source
	URL          *url.URL     // URL of the remote document
	APIKey       string       // Optional API key for X-API-Key header authentication
	Client       *http.Client // HTTP client, http.DefaultClient when nil
	rawData      []byte       // Raw content of the remote document
}

// GetName returns the name of the configuration source.
func (w *WebRepository) GetName() string {
	return w.Name
}

// GetRawData returns the raw content fetched by the last successful Refresh.
func (w *WebRepository) GetRawData() []byte {
	w.RLock()
	defer w.RUnlock()
	return w.rawData
}

// Refresh fetches the document from the remote URL.
func (w *WebRepository) Refresh(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL.String(), nil)
	if err != nil {
		logrus.Debug("error creating request")
		return err
	}

	// Set X-API-Key header if API key is configured
	if w.APIKey != "" {
		request.Header.Set("X-API-Key", w.APIKey)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(request)
	if err != nil {
		logrus.Debug("error doing request")
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logrus.WithError(err).Debug("error closing response body")
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", w.URL.Redacted(), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Debug("error reading response body")
		return err
	}

	w.Lock()
	w.rawData = data
	w.Unlock()

	return nil
}

// NewWebRepository creates a WebRepository for rawURL.
func NewWebRepository(rawURL string) (*WebRepository, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return &WebRepository{Name: nameFromURL(u), URL: u}, nil
}
