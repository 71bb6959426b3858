package source

import (
	"context"
	"io"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GcpStorageRepository is a struct that implements the Repository interface
// for a configuration document stored as an object in a GCS bucket.
type GcpStorageRepository struct {
	sync.RWMutex                  // RWMutex to synchronize access to data during refresh
	Name          string          // Name of the configuration source
	BucketName    string          // Name of the GCS bucket
	ObjectName    string          // Name of the document within the bucket
	Client        *storage.Client // GCS client instance
	rawData       []byte          // Raw content of the document
	clientOnce    sync.Once       // Ensures client is initialized only once
	clientInitErr error           // Stores error from client initialization
}

// GetName returns the name of the configuration source.
func (g *GcpStorageRepository) GetName() string {
	return g.Name
}

// GetRawData returns the raw content read by the last successful Refresh.
func (g *GcpStorageRepository) GetRawData() []byte {
	g.RLock()
	defer g.RUnlock()
	return g.rawData
}

// Refresh downloads the object from the bucket.
func (g *GcpStorageRepository) Refresh(ctx context.Context) error {
	if g.Client == nil {
		g.clientOnce.Do(func() {
			var opts []option.ClientOption
			// Public buckets and the emulator need no credentials.
			if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
				opts = append(opts, option.WithoutAuthentication())
			}
			g.Client, g.clientInitErr = storage.NewClient(ctx, opts...)
		})
		if g.clientInitErr != nil {
			return g.clientInitErr
		}
	}

	reader, err := g.Client.Bucket(g.BucketName).Object(g.ObjectName).NewReader(ctx)
	if err != nil {
		logrus.Debug("error creating reader")
		return err
	}
	defer reader.Close()

	fileContent, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	g.Lock()
	g.rawData = fileContent
	g.Unlock()

	return nil
}
