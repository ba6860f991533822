package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/lepinkainen/gameaugment/internal/fileutil"
	"github.com/tidwall/gjson"
)

// Load reads the record collection at path. Any problem is a FatalLoadError:
// the run cannot continue without its input.
func Load(path string) ([]*Record, error) {
	if !fileutil.FileExists(path) {
		return nil, apperrors.NewFatalLoadError(path, fmt.Errorf("no such file"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewFatalLoadError(path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, apperrors.NewFatalLoadError(path, fmt.Errorf("not valid JSON"))
	}
	if !gjson.ParseBytes(data).IsArray() {
		return nil, apperrors.NewFatalLoadError(path, fmt.Errorf("expected a JSON array of records"))
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewFatalLoadError(path, err)
	}
	for i, rec := range records {
		if rec == nil {
			return nil, apperrors.NewFatalLoadError(path, fmt.Errorf("record %d is null", i))
		}
	}

	slog.Debug("Loaded records", "path", path, "count", len(records))
	return records, nil
}

// Encode renders records in the stable on-disk format: two-space indent,
// no HTML escaping, trailing newline.
func Encode(records []*Record) ([]byte, error) {
	if records == nil {
		records = []*Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the full collection to path atomically.
func Save(path string, records []*Record) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	slog.Debug("Saved records", "path", path, "count", len(records))
	return nil
}
