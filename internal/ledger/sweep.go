package ledger

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// DefaultAbandonedDuration is credited to sign-ins left open overnight.
const DefaultAbandonedDuration = 2 * time.Hour

// SweepEntry is one record closed by CloseAbandoned.
type SweepEntry struct {
	Date        string    `json:"date"`
	UID         string    `json:"uid"`
	SignInTime  time.Time `json:"sign_in_time"`
	SignOutTime time.Time `json:"sign_out_time"`
	Hours       float64   `json:"hours"`
}

// SweepSkip is an open record the sweep could not close.
type SweepSkip struct {
	Date   string `json:"date"`
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// SweepReport describes the outcome of CloseAbandoned.
type SweepReport struct {
	DaysScanned int          `json:"days_scanned"`
	Closed      []SweepEntry `json:"closed"`
	Skipped     []SweepSkip  `json:"skipped"`
	DryRun      bool         `json:"dry_run"`
}

// OpenRecord is an open sign-in found by OpenBefore.
type OpenRecord struct {
	Date       string     `json:"date"`
	UID        string     `json:"uid"`
	SignInTime *time.Time `json:"sign_in_time"`
}

// CloseAbandoned closes every sign-in left open on a day strictly before
// today. Today and future keys are never touched, and closed records are left
// as they are. A closed record gets SignOutTime = SignInTime + d and
// Hours = d. With dryRun the report is computed but nothing is saved.
func (l *Ledger) CloseAbandoned(ctx context.Context, today time.Time, d time.Duration, dryRun bool) (SweepReport, error) {
	todayKey := DateKey(today)
	report := SweepReport{DryRun: dryRun, Closed: []SweepEntry{}, Skipped: []SweepSkip{}}

	err := l.update(ctx, "ledger.sweep", func(b Book) (bool, error) {
		for _, date := range b.Dates() {
			if date >= todayKey {
				slog.Debug("sweep skipping day", "date", date, "today", todayKey)
				continue
			}
			report.DaysScanned++

			day := b[date]
			for _, uid := range sortedUIDs(day) {
				rec := day[uid]
				if !rec.SignedIn {
					continue
				}
				if rec.SignInTime == nil {
					report.Skipped = append(report.Skipped, SweepSkip{
						Date:   date,
						UID:    uid,
						Reason: "no sign-in time",
					})
					continue
				}

				out := rec.SignInTime.Add(d)
				rec.SignOutTime = &out
				rec.SignedIn = false
				rec.Hours = RoundHours(d.Hours())
				day[uid] = rec

				report.Closed = append(report.Closed, SweepEntry{
					Date:        date,
					UID:         uid,
					SignInTime:  *rec.SignInTime,
					SignOutTime: out,
					Hours:       rec.Hours,
				})
			}
		}
		return len(report.Closed) > 0 && !dryRun, nil
	})
	if err != nil {
		return SweepReport{}, err
	}

	slog.Info("sweep complete",
		"today", todayKey,
		"closed", len(report.Closed),
		"skipped", len(report.Skipped),
		"dry_run", dryRun,
	)
	return report, nil
}

// OpenBefore lists sign-ins still open on days strictly before today.
func (l *Ledger) OpenBefore(ctx context.Context, today time.Time) ([]OpenRecord, error) {
	book, err := l.read(ctx, "ledger.verify")
	if err != nil {
		return nil, err
	}
	todayKey := DateKey(today)

	out := []OpenRecord{}
	for _, date := range book.Dates() {
		if date >= todayKey {
			continue
		}
		for _, uid := range sortedUIDs(book[date]) {
			rec := book[date][uid]
			if rec.SignedIn {
				out = append(out, OpenRecord{Date: date, UID: uid, SignInTime: rec.Clone().SignInTime})
			}
		}
	}
	return out, nil
}

func sortedUIDs(d Day) []string {
	uids := make([]string, 0, len(d))
	for uid := range d {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}
