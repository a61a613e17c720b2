package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/logging"
)

// Read reads robot settings from the given file.
func Read(filePath string, logger logging.Logger) (*Settings, error) {
	//nolint:gosec
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Debugw("failed to close settings file", "path", filePath, "error", err)
		}
	}()
	return FromReader(filePath, f, logger)
}

// FromReader reads robot settings from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Settings, error) {
	var attributes map[string]interface{}
	if err := json.NewDecoder(r).Decode(&attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to decode settings from %q", originalPath)
	}
	settings, unused, err := decodeSettings(attributes)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process settings from %q", originalPath)
	}
	for _, key := range unused {
		logger.Debugw("ignoring unknown settings field", "path", originalPath, "field", key)
	}
	if err := settings.Validate("settings"); err != nil {
		return nil, err
	}
	return settings, nil
}

// decodeSettings also returns the attribute keys that matched no field.
func decodeSettings(attributes map[string]interface{}) (*Settings, []string, error) {
	var settings Settings
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   &settings,
		Metadata: &md,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, nil, err
	}
	return &settings, md.Unused, nil
}
