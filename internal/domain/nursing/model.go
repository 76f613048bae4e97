package nursing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LogFile is the base name of the visit log next to the partitions.
const LogFile = "nurse_log"

// VisitTimeLayout is how Visit_Time is written and parsed.
const VisitTimeLayout = "2006-01-02 15:04:05"

// UnknownNurse is recorded when a visit is logged for a child nobody is assigned to.
const UnknownNurse = "Unknown Nurse"

// Visit log columns, in file order.
const (
	ColVisitID   = "Visit_ID"
	ColNurseName = "Nurse_Name"
	ColVisitTime = "Visit_Time"
)

var ErrInvalidVisitTime = errors.New("visit time must look like YYYY-MM-DD HH:MM:SS")

// Visit is one row of the nurse visit log.
type Visit struct {
	ID             int       `json:"visit_id"`
	MotherID       string    `json:"mother_id"`
	ChildFirstName string    `json:"child_first_name"`
	ChildLastName  string    `json:"child_last_name"`
	NurseName      string    `json:"nurse_name"`
	Time           time.Time `json:"visit_time"`
	// RawTime keeps the stored text when it does not parse.
	RawTime string `json:"-"`
}

// TimeString renders the visit time as stored.
func (v *Visit) TimeString() string {
	if v.Time.IsZero() {
		return v.RawTime
	}
	return v.Time.Format(VisitTimeLayout)
}

// ParseVisitTime validates a manually entered visit time.
func ParseVisitTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(VisitTimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidVisitTime, s)
	}
	return t, nil
}

// unassigned reports whether an Assigned_Nurse value names nobody.
func unassigned(nurse string) bool {
	switch strings.ToLower(strings.TrimSpace(nurse)) {
	case "", "none", "n/a", "nan":
		return true
	}
	return false
}
