package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
)

const maxSeedSize = 8 << 20

// ErrSeedFormat is returned for seed files with an unknown extension.
var ErrSeedFormat = errors.New("seed file must be .yaml, .yml, .json or .toml")

// ReadSeed reads the records of a seed file.
//
// YAML and JSON files hold either a list of records or an object with the
// list under "records" or "data". TOML files hold a [[records]] array.
func ReadSeed(path string) ([]directory.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	if info.Size() > maxSeedSize {
		return nil, fmt.Errorf("seed file too large: %d bytes (max %d)", info.Size(), maxSeedSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}

	records, err := parseSeed(filepath.Ext(path), content)
	if err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", path, err)
	}
	return records, nil
}

func parseSeed(ext string, content []byte) ([]directory.Record, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var payload any
		if err := yaml.Unmarshal(content, &payload); err != nil {
			return nil, err
		}
		if payload == nil {
			return []directory.Record{}, nil
		}
		return recordsOf(payload, "records", "data")

	case ".json":
		var payload any
		if err := json.Unmarshal(content, &payload); err != nil {
			return nil, err
		}
		return recordsOf(payload, "records", "data")

	case ".toml":
		var doc struct {
			Records []map[string]any `toml:"records"`
		}
		if _, err := toml.Decode(string(content), &doc); err != nil {
			return nil, err
		}
		records := make([]directory.Record, len(doc.Records))
		for i, r := range doc.Records {
			records[i] = r
		}
		return records, nil

	default:
		return nil, ErrSeedFormat
	}
}
