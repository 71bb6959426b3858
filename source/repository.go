package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
)

// Repository fetches one configuration document from somewhere outside the
// settings root. Parsing is left to the caller, which picks a codec from
// GetName.
type Repository interface {
	GetName() string
	GetRawData() []byte
	Refresh(ctx context.Context) error
}

// Spec describes where a configuration document should be fetched from.
type Spec struct {
	Type     string `json:"type"`     // fs, http, git, s3 or gcs
	Path     string `json:"path"`     // File path, or the path inside a git repository
	URL      string `json:"url"`      // HTTP or git URL
	Branch   string `json:"branch"`   // Optional git branch
	Username string `json:"username"` // Optional git basic auth user
	Password string `json:"password"` // Optional git basic auth password or token
	Bucket   string `json:"bucket"`   // S3 or GCS bucket
	Object   string `json:"object"`   // S3 key or GCS object name
	Region   string `json:"region"`   // Optional S3 region
	APIKey   string `json:"api_key"`  // Optional X-API-Key for http sources
}

// ErrMissingField is returned by New when the spec lacks a required field.
var ErrMissingField = errors.New("missing required field")

// ErrUnknownType is returned by New for an unsupported source type.
var ErrUnknownType = errors.New("unknown source type")

// IsFile reports whether spec reads from the local filesystem.
func (s Spec) IsFile() bool {
	switch s.Type {
	case "fs", "file", "":
		return true
	}
	return false
}

// New builds the Repository described by spec.
func New(spec Spec) (Repository, error) {
	switch spec.Type {
	case "fs", "file", "":
		if spec.Path == "" {
			return nil, fmt.Errorf("%w: path", ErrMissingField)
		}
		return NewFileRepository(spec.Path)
	case "http", "https":
		if spec.URL == "" {
			return nil, fmt.Errorf("%w: url", ErrMissingField)
		}
		repo, err := NewWebRepository(spec.URL)
		if err != nil {
			return nil, err
		}
		repo.APIKey = spec.APIKey
		return repo, nil
	case "git":
		if spec.URL == "" {
			return nil, fmt.Errorf("%w: url", ErrMissingField)
		}
		if spec.Path == "" {
			return nil, fmt.Errorf("%w: path", ErrMissingField)
		}
		repo, err := NewGitRepository(spec.URL, spec.Path)
		if err != nil {
			return nil, err
		}
		repo.Branch = spec.Branch
		if spec.Username != "" || spec.Password != "" {
			repo.SetBasicAuth(spec.Username, spec.Password)
		}
		return repo, nil
	case "s3":
		if spec.Bucket == "" {
			return nil, fmt.Errorf("%w: bucket", ErrMissingField)
		}
		if spec.Object == "" {
			return nil, fmt.Errorf("%w: object", ErrMissingField)
		}
		return &AwsS3Repository{Name: spec.Object, BucketName: spec.Bucket, ObjectName: spec.Object, Region: spec.Region}, nil
	case "gcs":
		if spec.Bucket == "" {
			return nil, fmt.Errorf("%w: bucket", ErrMissingField)
		}
		if spec.Object == "" {
			return nil, fmt.Errorf("%w: object", ErrMissingField)
		}
		return &GcpStorageRepository{Name: spec.Object, BucketName: spec.Bucket, ObjectName: spec.Object}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, spec.Type)
	}
}

// nameFromURL returns the last path element of u, which carries the file
// extension used to pick a codec.
func nameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return u.Host
	}
	return name
}
