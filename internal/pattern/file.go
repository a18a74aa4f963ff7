package pattern

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk layout of a seed rule file:
//
//	categories:
//	  - category: current_assets
//	    patterns:
//	      - ^cash$
//	      - ^inventory$
type SeedFile struct {
	Categories []CategoryPatterns `yaml:"categories"`
}

// ParseSeed decodes a YAML seed. Unknown keys are rejected so typos surface
// instead of silently dropping rules.
func ParseSeed(r io.Reader) ([]CategoryPatterns, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file SeedFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("seed declares no categories")
	}
	return file.Categories, nil
}

// LoadSeedFile reads and compiles a seed file into a new RuleTable.
func LoadSeedFile(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	seed, err := ParseSeed(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	table, err := NewRuleTable(seed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// MarshalSeed renders a table snapshot in seed file layout, for display.
func MarshalSeed(snapshot []CategoryPatterns) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(SeedFile{Categories: snapshot}); err != nil {
		return nil, fmt.Errorf("failed to encode seed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode seed: %w", err)
	}
	return buf.Bytes(), nil
}
