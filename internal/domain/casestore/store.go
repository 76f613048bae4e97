package casestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/pkg/pagination"
)

// Store is the in-memory matched partition. Every mutation is written
// through to the repository before it returns; a failed write leaves both
// memory and disk as they were.
//
// Store has a single writer by contract and does no locking.
type Store struct {
	repo   roster.PartitionRepository
	logger zerolog.Logger
	table  *roster.Table
}

func NewStore(repo roster.PartitionRepository, logger zerolog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger.With().Str("component", "casestore").Logger(),
	}
}

// Open creates a store and loads the matched partition into it.
func Open(ctx context.Context, repo roster.PartitionRepository, logger zerolog.Logger) (*Store, error) {
	s := NewStore(repo, logger)
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload discards in-memory state and re-reads the matched partition.
// A partition that was never written yields ErrNotLoaded.
func (s *Store) Reload(ctx context.Context) error {
	t, err := s.repo.Load(ctx, roster.PartitionMatched)
	if errors.Is(err, roster.ErrNoData) {
		s.table = nil
		return fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}
	if err != nil {
		return fmt.Errorf("reload case records: %w", err)
	}
	t.AddColumn(roster.ColAssignedNurse, roster.UnassignedNurse)
	s.table = t
	s.logger.Info().Int("records", t.Len()).Msg("case records loaded")
	return nil
}

// Replace installs a freshly combined matched partition without a disk read.
func (s *Store) Replace(t *roster.Table) {
	s.table = t.Clone()
}

// Loaded reports whether the store holds a matched partition.
func (s *Store) Loaded() bool {
	return s.table != nil
}

// Len returns the number of case records.
func (s *Store) Len() int {
	return s.table.Len()
}

// Columns returns the matched schema.
func (s *Store) Columns() []string {
	if s.table == nil {
		return nil
	}
	return append([]string(nil), s.table.Columns...)
}

// Records returns copies of all case records in stored order.
func (s *Store) Records() ([]*roster.Record, error) {
	if s.table == nil {
		return nil, ErrNotLoaded
	}
	out := make([]*roster.Record, len(s.table.Rows))
	for i, r := range s.table.Rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// Table returns a copy of the matched partition.
func (s *Store) Table() (*roster.Table, error) {
	if s.table == nil {
		return nil, ErrNotLoaded
	}
	return s.table.Clone(), nil
}

// Find returns a copy of the first record carrying id.
func (s *Store) Find(id roster.Identity) (*roster.Record, bool) {
	if s.table == nil {
		return nil, false
	}
	for _, r := range s.table.Rows {
		if id.Matches(r) {
			return r.Clone(), true
		}
	}
	return nil, false
}

// FindByName looks a child up by a "First Last" display name and an exact
// date of birth string. Names with fewer than two words never match.
func (s *Store) FindByName(fullName, dob string) (*roster.Record, bool) {
	if s.table == nil {
		return nil, false
	}
	parts := strings.Fields(fullName)
	if len(parts) < 2 {
		return nil, false
	}
	first, last := parts[0], parts[1]
	for _, r := range s.table.Rows {
		if strings.EqualFold(r.Value(roster.ColChildFirstName), first) &&
			strings.EqualFold(r.Value(roster.ColChildLastName), last) &&
			r.Value(roster.ColChildDOB) == dob {
			return r.Clone(), true
		}
	}
	return nil, false
}

// Search returns copies of records whose child first or last name contains
// query, ignoring case. An empty query returns every record.
func (s *Store) Search(query string) ([]*roster.Record, error) {
	if s.table == nil {
		return nil, ErrNotLoaded
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*roster.Record
	for _, r := range s.table.Rows {
		if q == "" ||
			strings.Contains(strings.ToLower(r.Value(roster.ColChildFirstName)), q) ||
			strings.Contains(strings.ToLower(r.Value(roster.ColChildLastName)), q) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// List returns one page of records.
func (s *Store) List(p pagination.Params) ([]*roster.Record, *pagination.Response, error) {
	records, err := s.Records()
	if err != nil {
		return nil, nil, err
	}
	page, resp := pagination.Page(records, p)
	return page, resp, nil
}

// AssignNurse sets Assigned_Nurse on the first record carrying id and
// persists the whole partition. Other copies of a duplicated record keep
// their nurse. It returns ErrRecordNotFound when nothing matches.
func (s *Store) AssignNurse(ctx context.Context, id roster.Identity, nurse string) error {
	if s.table == nil {
		return ErrNotLoaded
	}
	n, err := s.assign(ctx, nurse, id.Matches, 1)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	s.logger.Info().Int("records", n).Msg("nurse assigned")
	return nil
}

// BatchAssignNurse assigns nurse to every record passing f and returns how
// many were touched. Zero matches is not an error and writes nothing.
func (s *Store) BatchAssignNurse(ctx context.Context, nurse string, f Filter) (int, error) {
	if s.table == nil {
		return 0, ErrNotLoaded
	}
	n, err := s.assign(ctx, nurse, f.Matches, 0)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("records", n).Bool("all", f.IsEmpty()).Msg("batch nurse assignment")
	return n, nil
}

// assign sets nurse on records passing match, stopping after limit records
// when limit is positive.
func (s *Store) assign(ctx context.Context, nurse string, match func(*roster.Record) bool, limit int) (int, error) {
	nurse = strings.TrimSpace(nurse)
	if nurse == "" {
		nurse = roster.UnassignedNurse
	}

	type change struct {
		row  *roster.Record
		prev string
	}
	var changes []change
	for _, r := range s.table.Rows {
		if match(r) {
			changes = append(changes, change{row: r, prev: r.Value(roster.ColAssignedNurse)})
			r.Set(roster.ColAssignedNurse, nurse)
			if limit > 0 && len(changes) == limit {
				break
			}
		}
	}
	if len(changes) == 0 {
		return 0, nil
	}

	if err := s.repo.Save(ctx, roster.PartitionMatched, s.table); err != nil {
		for _, c := range changes {
			c.row.Set(roster.ColAssignedNurse, c.prev)
		}
		s.logger.Error().Err(err).Msg("failed to persist nurse assignment")
		return 0, fmt.Errorf("persist assignment: %w", err)
	}
	return len(changes), nil
}
