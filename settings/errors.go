package settings

import (
	"errors"

	"github.com/sardine-ai/dmx-artnet-checker/model"
)

var (
	// ErrNotFound reports a configuration file that does not exist.
	ErrNotFound = errors.New("configuration file not found")
	// ErrParse reports content that could not be decoded into a document.
	ErrParse = errors.New("configuration could not be parsed")
	// ErrWrite reports a failure to persist a document.
	ErrWrite = errors.New("configuration could not be written")
	// ErrInvalidName reports a save-as name that is empty once sanitized.
	ErrInvalidName = errors.New("invalid configuration name")
	// ErrAlreadyExists reports a save-as target that is already on disk.
	ErrAlreadyExists = errors.New("configuration file already exists")
	// ErrFetch reports a failure to fetch a document from an import source.
	ErrFetch = errors.New("configuration could not be fetched")
	// ErrInvalidPath reports a file reference escaping the settings root.
	ErrInvalidPath = errors.New("invalid configuration path")
	// ErrValidation is matched by every *model.ValidationError and by
	// documents whose values do not fit the schema.
	ErrValidation = model.ErrValidation
)
