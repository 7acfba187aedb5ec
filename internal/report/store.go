package report

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// StoreSink saves reports to the session history.
type StoreSink struct {
	Store database.SessionWriter
}

// Deliver stores the session and its entries.
func (s *StoreSink) Deliver(ctx context.Context, r *Report) error {
	session, entries := ToStored(r)
	if err := s.Store.SaveSession(ctx, session, entries); err != nil {
		return apperror.Wrap(apperror.KindPersistence, err, "store session "+r.SessionID)
	}
	return nil
}

// ToStored converts a report into its stored form.
func ToStored(r *Report) (*database.StoredSession, []database.StoredEntry) {
	counts := r.Counts()
	session := &database.StoredSession{
		ID:           r.SessionID,
		Mode:         r.Mode,
		LateDeadline: r.LateDeadline,
		EndDeadline:  r.EndDeadline,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		Reason:       r.Reason,
		ReportFiles:  append([]string(nil), r.Files...),
		OnTime:       counts[attendance.StatusOnTime],
		Late:         counts[attendance.StatusLate],
		Absent:       counts[attendance.StatusAbsent],
	}

	entries := make([]database.StoredEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		p := e.Person
		entries = append(entries, database.StoredEntry{
			SessionID:    r.SessionID,
			PersonName:   p.Name,
			Surname:      p.Surname,
			FatherName:   p.FatherName,
			Faculty:      p.Faculty,
			Direction:    p.Direction,
			Group:        p.Group,
			Status:       string(e.Status),
			ArrivalTime:  e.ArrivalTime,
			LateTime:     e.LateTime,
			Probability:  e.Probability,
			MeanDistance: e.Mean,
			Variance:     e.Variance,
			StdDev:       e.StdDev,
			Matches:      len(e.Distances),
		})
	}
	return session, entries
}
