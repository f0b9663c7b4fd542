package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForAll_DefaultsForAbsentRecords(t *testing.T) {
	ctx := context.Background()
	in := at(t, "2026-03-02", "09:00:00")
	s := newFakeStore(Book{"2026-03-02": Day{
		uidAlice: {SignInTime: tp(in), SignedIn: true},
	}})
	l := New(s)

	names := map[string]string{
		uidAlice:      "Alice",
		"04 00 00 01": "Bob",
	}
	got, err := l.StatusForAll(ctx, names, at(t, "2026-03-02", "12:00:00"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Alice", got[0].Name)
	assert.True(t, got[0].SignedIn)
	require.NotNil(t, got[0].SignInTime)
	assert.True(t, got[0].SignInTime.Equal(in))

	assert.Equal(t, "Bob", got[1].Name)
	assert.False(t, got[1].SignedIn)
	assert.Nil(t, got[1].SignInTime)
	assert.Nil(t, got[1].SignOutTime)
	assert.Zero(t, got[1].Hours)
}

func TestStatusForAll_IgnoresUnregistered(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore(Book{"2026-03-02": Day{
		"FF FF": {SignInTime: tp(at(t, "2026-03-02", "09:00:00")), SignedIn: true},
	}})
	l := New(s)

	got, err := l.StatusForAll(ctx, map[string]string{}, at(t, "2026-03-02", "12:00:00"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProfile_Aggregates(t *testing.T) {
	ctx := context.Background()
	// D1 attended 3h, D2 not attended, D3 attended 1h.
	book := Book{
		"2026-03-01": Day{uidAlice: {
			SignInTime:  tp(at(t, "2026-03-01", "09:00:00")),
			SignOutTime: tp(at(t, "2026-03-01", "12:00:00")),
			Hours:       3,
		}},
		"2026-03-02": Day{"04 00 00 01": {
			SignInTime: tp(at(t, "2026-03-02", "09:00:00")),
			SignedIn:   true,
		}},
		"2026-03-03": Day{uidAlice: {
			SignInTime:  tp(at(t, "2026-03-03", "09:00:00")),
			SignOutTime: tp(at(t, "2026-03-03", "10:00:00")),
			Hours:       1,
		}},
	}
	l := New(newFakeStore(book))

	p, err := l.Profile(ctx, uidAlice, "Alice")
	require.NoError(t, err)

	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, 3, p.TotalDays)
	assert.Equal(t, 2, p.DaysAttended)
	assert.Equal(t, 1, p.DaysMissed)
	assert.Equal(t, 4.0, p.TotalHours)
	assert.Equal(t, 2.0, p.AverageHours)
	assert.Equal(t, 66.7, p.AttendanceRate)

	require.Len(t, p.History, 3)
	assert.Equal(t, "2026-03-03", p.History[0].Date, "history is date descending")
	assert.Equal(t, "2026-03-02", p.History[1].Date)
	assert.Equal(t, "2026-03-01", p.History[2].Date)
	assert.False(t, p.History[1].Attended)
	assert.True(t, p.History[2].Attended)
}

func TestProfile_OpenSignInCountsAsAttended(t *testing.T) {
	ctx := context.Background()
	l := New(newFakeStore(Book{"2026-03-02": Day{uidAlice: {
		SignInTime: tp(at(t, "2026-03-02", "09:00:00")),
		SignedIn:   true,
	}}}))

	p, err := l.Profile(ctx, uidAlice, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, p.DaysAttended)
	assert.Equal(t, 100.0, p.AttendanceRate)
	assert.Zero(t, p.TotalHours)
	assert.Zero(t, p.AverageHours)
}

func TestProfile_EmptyLedger(t *testing.T) {
	l := New(newFakeStore(nil))

	p, err := l.Profile(context.Background(), uidAlice, "")
	require.NoError(t, err)

	assert.Equal(t, uidAlice, p.Name, "name falls back to the UID")
	assert.Zero(t, p.TotalDays)
	assert.Zero(t, p.AverageHours)
	assert.Zero(t, p.AttendanceRate)
	assert.NotNil(t, p.History)
	assert.Empty(t, p.History)
}
