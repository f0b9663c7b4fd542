package ledger

import (
	"context"
	"sort"
	"time"
)

// StatusForAll reports today's attendance for every UID in names.
// Results are sorted by name, then UID.
func (l *Ledger) StatusForAll(ctx context.Context, names map[string]string, now time.Time) ([]Status, error) {
	book, err := l.read(ctx, "ledger.status")
	if err != nil {
		return nil, err
	}
	today := book[DateKey(now)]

	out := make([]Status, 0, len(names))
	for uid, name := range names {
		st := Status{UID: uid, Name: name}
		if rec, ok := today[uid]; ok {
			rec = rec.Clone()
			st.SignedIn = rec.SignedIn
			st.SignInTime = rec.SignInTime
			st.SignOutTime = rec.SignOutTime
			st.Hours = rec.Hours
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

// Profile summarizes uid over every day on record. An empty name falls back
// to the UID. A profile is always produced; a UID with no records simply has
// zero attended days.
func (l *Ledger) Profile(ctx context.Context, uid, name string) (Profile, error) {
	book, err := l.read(ctx, "ledger.profile")
	if err != nil {
		return Profile{}, err
	}
	if name == "" {
		name = uid
	}
	return buildProfile(book, uid, name), nil
}

func buildProfile(book Book, uid, name string) Profile {
	dates := book.Dates()

	p := Profile{
		UID:       uid,
		Name:      name,
		TotalDays: len(dates),
		History:   make([]HistoryDay, 0, len(dates)),
	}

	var total float64
	for i := len(dates) - 1; i >= 0; i-- {
		date := dates[i]
		h := HistoryDay{Date: date}

		if rec, ok := book[date][uid]; ok {
			rec = rec.Clone()
			h.SignInTime = rec.SignInTime
			h.SignOutTime = rec.SignOutTime
			h.Hours = rec.Hours
			h.SignedIn = rec.SignedIn
			h.Attended = rec.Attended()
		}

		if h.Attended {
			p.DaysAttended++
			total += h.Hours
		}
		p.History = append(p.History, h)
	}

	p.DaysMissed = p.TotalDays - p.DaysAttended
	p.TotalHours = RoundHours(total)
	if p.DaysAttended > 0 {
		p.AverageHours = RoundHours(total / float64(p.DaysAttended))
	}
	if p.TotalDays > 0 {
		p.AttendanceRate = roundTo(float64(p.DaysAttended)/float64(p.TotalDays)*100, 1)
	}
	return p
}
