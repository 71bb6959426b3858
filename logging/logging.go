// Package logging applies the logging section of a configuration to logrus.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSize = 10 * 1024 * 1024

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Configure sets the logrus level from cfg and, when file logging is on,
// tees output to a rotating file. A relative log file is placed under dir.
// The returned Closer releases the file.
func Configure(logger *logrus.Logger, cfg model.LoggingConfig, dir string) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nopCloser{}, fmt.Errorf("logging: %w", err)
	}
	logger.SetLevel(level)

	if !cfg.FileLogging || cfg.LogFile == "" {
		logger.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	maxBytes, err := MaxSizeBytes(cfg.MaxFileSize)
	if err != nil {
		return nopCloser{}, err
	}
	path := cfg.LogFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    megabytes(maxBytes),
		MaxBackups: cfg.MaxFiles,
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
	logger.WithField("path", path).Debug("logging to file")
	return rotator, nil
}

// MaxSizeBytes parses a size such as "10MB". An empty size yields 10MB.
func MaxSizeBytes(size string) (uint64, error) {
	if size == "" {
		return defaultMaxSize, nil
	}
	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, fmt.Errorf("logging: max_file_size %q: %w", size, err)
	}
	return n, nil
}

// megabytes rounds up to the whole megabytes lumberjack counts in.
func megabytes(n uint64) int {
	const mb = 1024 * 1024
	m := int((n + mb - 1) / mb)
	if m < 1 {
		m = 1
	}
	return m
}
