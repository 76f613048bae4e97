package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile records the outcome of the last combine next to the partitions.
const ManifestFile = "reconcile_manifest.yaml"

type Manifest struct {
	RunID       string           `yaml:"run_id"`
	CreatedAt   time.Time        `yaml:"created_at"`
	Sources     []ManifestSource `yaml:"sources"`
	Partitions  PartitionCounts  `yaml:"partitions"`
	Unmatchable int              `yaml:"unmatchable_rows"`
}

type ManifestSource struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	Rows int    `yaml:"rows"`
}

type PartitionCounts struct {
	Matched         int `yaml:"matched"`
	Unmatched       int `yaml:"unmatched"`
	Duplicates      int `yaml:"duplicates"`
	DuplicateGroups int `yaml:"duplicate_groups"`
}

// NewManifest summarizes res. Source paths are taken in Database, Medicaid order.
func NewManifest(res *Result, sources []SourceInfo) *Manifest {
	m := &Manifest{
		RunID:     res.RunID.String(),
		CreatedAt: res.CreatedAt.UTC().Truncate(time.Second),
		Partitions: PartitionCounts{
			Matched:         res.Matched.Len(),
			Unmatched:       res.Unmatched.Len(),
			Duplicates:      res.Duplicates.Len(),
			DuplicateGroups: len(res.Groups),
		},
		Unmatchable: res.Unmatchable,
	}
	for _, s := range sources {
		m.Sources = append(m.Sources, ManifestSource{
			Kind: string(s.Kind),
			Path: s.Path,
			Rows: res.SourceRows[s.Kind],
		})
	}
	return m
}

// WriteManifest stores m in dir.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from dir, returning ErrNoData if absent.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("manifest: %w", ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
