package source

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// AwsS3Repository is a struct that implements the Repository interface for a
// configuration document stored as an object in an S3 bucket.
type AwsS3Repository struct {
	sync.RWMutex               // RWMutex to synchronize access to data during refresh
	Name          string       // Name of the configuration source
	BucketName    string       // Name of the S3 bucket
	ObjectName    string       // Key of the document within the bucket
	Region        string       // Optional region override for the default AWS config
	Client        *s3.Client   // S3 client instance
	rawData       []byte       // Raw content of the document
	clientOnce    sync.Once    // Ensures client is initialized only once
	clientInitErr error        // Stores error from client initialization
}

// GetName returns the name of the configuration source.
func (a *AwsS3Repository) GetName() string {
	return a.Name
}

// GetRawData returns the raw content read by the last successful Refresh.
func (a *AwsS3Repository) GetRawData() []byte {
	a.RLock()
	defer a.RUnlock()
	return a.rawData
}

// Refresh downloads the object from the bucket.
func (a *AwsS3Repository) Refresh(ctx context.Context) error {
	// Thread-safe client initialization using sync.Once (only if client not pre-configured)
	if a.Client == nil {
		a.clientOnce.Do(func() {
			var opts []func(*config.LoadOptions) error
			if a.Region != "" {
				opts = append(opts, config.WithRegion(a.Region))
			}
			cfg, err := config.LoadDefaultConfig(ctx, opts...)
			if err != nil {
				a.clientInitErr = fmt.Errorf("failed to load AWS config: %w", err)
				return
			}
			a.Client = s3.NewFromConfig(cfg)
		})
		if a.clientInitErr != nil {
			return a.clientInitErr
		}
	}

	result, err := a.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.BucketName),
		Key:    aws.String(a.ObjectName),
	})
	if err != nil {
		logrus.Debug("error getting object")
		return err
	}
	defer result.Body.Close()

	fileContent, err := io.ReadAll(result.Body)
	if err != nil {
		return err
	}

	a.Lock()
	a.rawData = fileContent
	a.Unlock()

	return nil
}
