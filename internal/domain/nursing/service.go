package nursing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/rosterlink/internal/domain/roster"
)

type Service struct {
	visits VisitRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(visits VisitRepository, logger zerolog.Logger) *Service {
	return &Service{
		visits: visits,
		logger: logger.With().Str("component", "nursing").Logger(),
		now:    time.Now,
	}
}

// LogVisit appends a visit for the child in rec. A blank nurse falls back to
// the record's assigned nurse, then to UnknownNurse. A zero at means now.
func (s *Service) LogVisit(ctx context.Context, rec *roster.Record, nurse string, at time.Time) (*Visit, error) {
	if rec == nil {
		return nil, fmt.Errorf("case record is required")
	}
	nurse = strings.TrimSpace(nurse)
	if nurse == "" {
		nurse = strings.TrimSpace(rec.Value(roster.ColAssignedNurse))
	}
	if unassigned(nurse) {
		nurse = UnknownNurse
	}
	if at.IsZero() {
		at = s.now()
	}

	v := &Visit{
		MotherID:       orNA(rec.Value(roster.ColMotherID)),
		ChildFirstName: orNA(rec.Value(roster.ColChildFirstName)),
		ChildLastName:  orNA(rec.Value(roster.ColChildLastName)),
		NurseName:      nurse,
		Time:           at.Truncate(time.Second),
	}
	if err := s.visits.Append(ctx, v); err != nil {
		s.logger.Error().Err(err).Msg("failed to log visit")
		return nil, err
	}
	s.logger.Info().Int("visit_id", v.ID).Msg("visit logged")
	return v, nil
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// ListVisits returns the visits of one child. The log does not carry a date
// of birth, so Mother_ID and the child's names identify the child; names
// compare case-insensitively.
func (s *Service) ListVisits(ctx context.Context, id roster.Identity) ([]*Visit, error) {
	all, err := s.visits.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Visit
	for _, v := range all {
		if strings.TrimSpace(v.MotherID) == strings.TrimSpace(id.MotherID) &&
			strings.EqualFold(v.ChildFirstName, id.ChildFirstName) &&
			strings.EqualFold(v.ChildLastName, id.ChildLastName) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListByNurse returns every visit logged by nurse, ignoring case.
func (s *Service) ListByNurse(ctx context.Context, nurse string) ([]*Visit, error) {
	all, err := s.visits.List(ctx)
	if err != nil {
		return nil, err
	}
	nurse = strings.TrimSpace(nurse)
	var out []*Visit
	for _, v := range all {
		if strings.EqualFold(strings.TrimSpace(v.NurseName), nurse) {
			out = append(out, v)
		}
	}
	return out, nil
}

// NurseVisitCount is one line of the nurse statistics view.
type NurseVisitCount struct {
	Nurse  string
	Visits int
	Last   time.Time
}

// VisitCounts tallies visits per nurse, busiest first.
func (s *Service) VisitCounts(ctx context.Context) ([]NurseVisitCount, error) {
	all, err := s.visits.List(ctx)
	if err != nil {
		return nil, err
	}
	index := map[string]*NurseVisitCount{}
	for _, v := range all {
		c, ok := index[v.NurseName]
		if !ok {
			c = &NurseVisitCount{Nurse: v.NurseName}
			index[v.NurseName] = c
		}
		c.Visits++
		if v.Time.After(c.Last) {
			c.Last = v.Time
		}
	}
	out := make([]NurseVisitCount, 0, len(index))
	for _, c := range index {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Nurse < out[j].Nurse
	})
	return out, nil
}
