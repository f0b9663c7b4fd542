package ledger

import (
	"math"
	"sort"
	"time"
)

// DateLayout is the day key format (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// Record is one UID's attendance on one day.
//
// INVARIANT: SignOutTime != nil implies SignedIn == false.
type Record struct {
	SignInTime  *time.Time `json:"sign_in_time"`
	SignOutTime *time.Time `json:"sign_out_time"`
	SignedIn    bool       `json:"signed_in"`
	Hours       float64    `json:"hours"`
}

// Open reports whether the record is an open sign-in.
func (r Record) Open() bool { return r.SignedIn }

// Attended reports whether the record counts as an attended day.
func (r Record) Attended() bool { return r.SignInTime != nil }

// Clone returns a copy that shares no pointers with r.
func (r Record) Clone() Record {
	out := r
	if r.SignInTime != nil {
		t := *r.SignInTime
		out.SignInTime = &t
	}
	if r.SignOutTime != nil {
		t := *r.SignOutTime
		out.SignOutTime = &t
	}
	return out
}

// Day maps UID to that UID's record for one date.
type Day map[string]Record

// Clone deep-copies the day.
func (d Day) Clone() Day {
	if d == nil {
		return nil
	}
	out := make(Day, len(d))
	for uid, rec := range d {
		out[uid] = rec.Clone()
	}
	return out
}

// Book maps a date key to the day's records. It is the unit the store loads
// and saves.
type Book map[string]Day

// Clone deep-copies the book.
func (b Book) Clone() Book {
	if b == nil {
		return nil
	}
	out := make(Book, len(b))
	for date, day := range b {
		out[date] = day.Clone()
		if out[date] == nil {
			out[date] = Day{}
		}
	}
	return out
}

// Dates returns the book's date keys in ascending order.
func (b Book) Dates() []string {
	dates := make([]string, 0, len(b))
	for d := range b {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// DateKey returns the day key for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// RoundHours rounds to two decimals.
func RoundHours(h float64) float64 {
	return roundTo(h, 2)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Status is today's attendance for one registered UID.
type Status struct {
	UID         string     `json:"uid"`
	Name        string     `json:"name"`
	SignedIn    bool       `json:"signedIn"`
	SignInTime  *time.Time `json:"signInTime"`
	SignOutTime *time.Time `json:"signOutTime"`
	Hours       float64    `json:"hoursWorked"`
}

// HistoryDay is one entry of a profile's attendance history.
type HistoryDay struct {
	Date        string     `json:"date"`
	SignInTime  *time.Time `json:"signInTime"`
	SignOutTime *time.Time `json:"signOutTime"`
	Hours       float64    `json:"hours"`
	SignedIn    bool       `json:"signedIn"`
	Attended    bool       `json:"attended"`
}

// Profile summarizes one UID across every day on record.
type Profile struct {
	UID            string       `json:"uid"`
	Name           string       `json:"name"`
	TotalHours     float64      `json:"totalHours"`
	DaysAttended   int          `json:"daysAttended"`
	DaysMissed     int          `json:"daysMissed"`
	TotalDays      int          `json:"totalDays"`
	AverageHours   float64      `json:"averageHours"`
	AttendanceRate float64      `json:"attendanceRate"`
	History        []HistoryDay `json:"attendanceHistory"`
}
