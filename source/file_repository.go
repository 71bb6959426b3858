package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileRepository is a struct that implements the Repository interface for
// configuration documents stored on the local filesystem.
type FileRepository struct {
	sync.RWMutex        // RWMutex to synchronize access to data during refresh
	Name         string // Name of the configuration source
	Path         string // Absolute path of the configuration file
	rawData      []byte // Raw content of the configuration file
}

// GetName returns the name of the configuration source.
func (f *FileRepository) GetName() string {
	return f.Name
}

// GetRawData returns the raw content read by the last successful Refresh.
func (f *FileRepository) GetRawData() []byte {
	f.RLock()
	defer f.RUnlock()
	return f.rawData
}

// Refresh reads the file. A missing file is reported with an error matching
// fs.ErrNotExist.
func (f *FileRepository) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		logrus.WithField("path", f.Path).Debug("error reading file")
		return err
	}

	f.Lock()
	f.rawData = data
	f.Unlock()
	return nil
}

// NewFileRepository creates a FileRepository for path, made absolute.
func NewFileRepository(path string) (*FileRepository, error) {
	absPath, err := makeAbsoluteFilePath(path)
	if err != nil {
		return nil, err
	}
	return &FileRepository{Name: filepath.Base(absPath), Path: absPath}, nil
}

func makeAbsoluteFilePath(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		logrus.WithError(err).Error("error getting absolute path")
		return "", err
	}
	return absPath, nil
}
