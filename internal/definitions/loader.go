package definitions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a workflow definition from a .yaml, .yml or .json file.
func LoadFile(path string) (*domain.WorkflowDef, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(b)
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return nil, fmt.Errorf("unsupported definition file extension %q", filepath.Ext(path))
	}
}

func ParseJSON(b []byte) (*domain.WorkflowDef, error) {
	var def domain.WorkflowDef
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &def, nil
}

func ParseYAML(b []byte) (*domain.WorkflowDef, error) {
	var def domain.WorkflowDef
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &def, nil
}
