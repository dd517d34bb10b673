package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/condscope/internal/ir"
)

// LoadYAML parses a YAML schema document. Unknown fields are rejected.
func LoadYAML(data []byte) (*ir.SchemaSpec, error) {
	var spec ir.SchemaSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parse YAML schema: %w", err)
	}
	if len(spec.Entities) == 0 {
		return nil, fmt.Errorf("parse YAML schema: at least one entity is required")
	}
	return &spec, nil
}

// LoadFile loads a schema from a YAML file or from a directory of CUE
// files.
func LoadFile(path string) (*ir.SchemaSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(data, path)
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return nil, fmt.Errorf("unsupported schema file %s: want .cue, .yaml or a directory", path)
	}
}
