package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrTooManySources is returned when a third extract is read without Reset.
var ErrTooManySources = errors.New("both source files are already loaded")

// SourceInfo describes a loaded extract.
type SourceInfo struct {
	Kind SourceKind
	Path string
	Rows int
}

type loadedSource struct {
	SourceInfo
	table *Table
}

// Engine reads the two extracts, reconciles them and persists the partitions.
// It is single-threaded by contract: one caller drives it at a time.
type Engine struct {
	repo        PartitionRepository
	vault       Vault
	manifestDir string
	logger      zerolog.Logger
	progress    ProgressFunc
	sources     []loadedSource
}

// NewEngine wires an engine. manifestDir is where the run manifest is kept,
// normally the partition directory.
func NewEngine(repo PartitionRepository, vault Vault, manifestDir string, logger zerolog.Logger) *Engine {
	return &Engine{
		repo:        repo,
		vault:       vault,
		manifestDir: manifestDir,
		logger:      logger.With().Str("component", "reconcile").Logger(),
	}
}

// SetProgress installs a milestone callback for Combine.
func (e *Engine) SetProgress(fn ProgressFunc) {
	e.progress = fn
}

// ReadSource reads the next extract: the first becomes the Database source,
// the second the Medicaid source.
func (e *Engine) ReadSource(ctx context.Context, path string) (*SourceInfo, error) {
	switch len(e.sources) {
	case 0:
		return e.AddSource(ctx, SourceDatabase, path)
	case 1:
		kind := SourceMedicaid
		if e.sources[0].Kind == SourceMedicaid {
			kind = SourceDatabase
		}
		return e.AddSource(ctx, kind, path)
	}
	return nil, ErrTooManySources
}

// AddSource reads path as the given extract, replacing any extract of the
// same kind already loaded.
func (e *Engine) AddSource(_ context.Context, kind SourceKind, path string) (*SourceInfo, error) {
	t, err := ReadTable(path, e.vault)
	if err != nil {
		e.logger.Error().Err(err).Str("file", path).Msg("failed to read source file")
		return nil, fmt.Errorf("read %s source: %w", kind, err)
	}

	src := loadedSource{SourceInfo: SourceInfo{Kind: kind, Path: path, Rows: t.Len()}, table: t}
	replaced := false
	for i := range e.sources {
		if e.sources[i].Kind == kind {
			e.sources[i] = src
			replaced = true
		}
	}
	if !replaced {
		e.sources = append(e.sources, src)
	}

	e.logger.Info().Str("source", string(kind)).Str("file", path).Int("rows", t.Len()).Msg("source file read")
	info := src.SourceInfo
	return &info, nil
}

// Sources lists the loaded extracts in Database, Medicaid order.
func (e *Engine) Sources() []SourceInfo {
	var out []SourceInfo
	for _, kind := range []SourceKind{SourceDatabase, SourceMedicaid} {
		if s := e.source(kind); s != nil {
			out = append(out, s.SourceInfo)
		}
	}
	return out
}

// Reset forgets the loaded extracts.
func (e *Engine) Reset() {
	e.sources = nil
}

func (e *Engine) source(kind SourceKind) *loadedSource {
	for i := range e.sources {
		if e.sources[i].Kind == kind {
			return &e.sources[i]
		}
	}
	return nil
}

// Combine reconciles the loaded extracts and overwrites all three
// partitions and the run manifest. No partition is written unless both
// sources are present. If any partition fails to save, the partition files
// are put back as they were before the call.
func (e *Engine) Combine(ctx context.Context) (*Result, error) {
	db, med := e.source(SourceDatabase), e.source(SourceMedicaid)
	if db == nil || med == nil {
		return nil, ErrNeedTwoSources
	}
	e.progress.report(StageRead, 10)

	res := Reconcile(db.table, med.table, e.progress)

	// The matched partition is saved last.
	parts := []struct {
		name  string
		table *Table
	}{
		{PartitionUnmatched, res.Unmatched},
		{PartitionDuplicates, res.Duplicates},
		{PartitionMatched, res.Matched},
	}
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.name
	}
	before, err := snapshotPartitions(e.repo, names)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to snapshot partitions")
		return nil, err
	}
	for _, p := range parts {
		if err := e.repo.Save(ctx, p.name, p.table); err != nil {
			e.logger.Error().Err(err).Str("partition", p.name).Msg("failed to persist partition")
			if rerr := restorePartitions(before); rerr != nil {
				e.logger.Error().Err(rerr).Msg("failed to restore previous partitions")
				return nil, errors.Join(err, fmt.Errorf("restore previous partitions: %w", rerr))
			}
			return nil, err
		}
	}
	if err := WriteManifest(e.manifestDir, NewManifest(res, e.Sources())); err != nil {
		e.logger.Warn().Err(err).Msg("failed to write run manifest")
	}
	e.progress.report(StagePersist, 100)

	e.logger.Info().
		Str("run_id", res.RunID.String()).
		Int("matched", res.Matched.Len()).
		Int("unmatched", res.Unmatched.Len()).
		Int("duplicates", res.Duplicates.Len()).
		Int("unmatchable_rows", res.Unmatchable).
		Msg("combine complete")
	e.progress.report(StageDone, 100)
	return res, nil
}

// LoadPartition reads one persisted partition.
func (e *Engine) LoadPartition(ctx context.Context, partition string) (*Table, error) {
	return e.repo.Load(ctx, partition)
}

// PartitionPath exposes where a partition lives, for the encryption checkpoint.
func (e *Engine) PartitionPath(partition string) string {
	return e.repo.Path(partition)
}

// LastRun returns the manifest of the most recent combine.
func (e *Engine) LastRun() (*Manifest, error) {
	return ReadManifest(e.manifestDir)
}
