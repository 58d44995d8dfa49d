package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/railopt/core/model"
)

// readFile decodes a YAML or JSON file into out, chosen by extension. "-"
// reads JSON from stdin.
func readFile(path string, stdin io.Reader, out any) error {
	if path == "" {
		return fmt.Errorf("input file required")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func readSnapshot(path string, stdin io.Reader) (model.Snapshot, error) {
	var snap model.Snapshot
	err := readFile(path, stdin, &snap)
	return snap, err
}

// conflictInput is the payload of the resolve command.
type conflictInput struct {
	Trains    []model.Train           `json:"trains" yaml:"trains"`
	Conflicts []model.SectionConflict `json:"conflicts" yaml:"conflicts"`
}

func (c conflictInput) trainMap() map[string]model.Train {
	out := make(map[string]model.Train, len(c.Trains))
	for _, t := range c.Trains {
		out[t.ID] = t
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
