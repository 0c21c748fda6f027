// Package catalog loads YAML widget type definitions and provides a
// fast-lookup registry of the widget kinds an operator can place.
package catalog

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soneri/appcanvas/model"
)

// Loader scans directories for YAML widget type files, parses them, and
// computes SHA-256 checksums.
type Loader struct{}

// NewLoader creates a new catalog Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively scans directories for *.yaml and *.yml files and
// parses each into a WidgetType.
func (l *Loader) LoadAll(directories []string) ([]model.WidgetType, error) {
	var types []model.WidgetType
	seen := make(map[string]string)

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}

			wt, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			if prev, dup := seen[wt.ID]; dup {
				return fmt.Errorf("duplicate widget type id %q in %s (already defined in %s)", wt.ID, path, prev)
			}
			seen[wt.ID] = path
			types = append(types, wt)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return types, nil
}

// LoadFile loads and parses a single YAML widget type file.
func (l *Loader) LoadFile(path string) (model.WidgetType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.WidgetType{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var wt model.WidgetType
	if err := yaml.Unmarshal(data, &wt); err != nil {
		return model.WidgetType{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if wt.ID == "" {
		return model.WidgetType{}, fmt.Errorf("parsing %s: missing widget type id", path)
	}

	wt.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	wt.SourceFile = path

	return wt, nil
}
