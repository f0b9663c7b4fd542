package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
)

// LoadAttendance reads every day and record.
func (s *Store) LoadAttendance(ctx context.Context) (ledger.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.day, a.uid, a.sign_in_time, a.sign_out_time, a.signed_in, a.hours
		FROM days d
		LEFT JOIN attendance a ON a.day = d.day
		ORDER BY d.day ASC, a.uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	defer rows.Close()

	book := ledger.Book{}
	for rows.Next() {
		var (
			day      string
			uid      sql.NullString
			signIn   sql.NullString
			signOut  sql.NullString
			signedIn sql.NullInt64
			hours    sql.NullFloat64
		)
		if err := rows.Scan(&day, &uid, &signIn, &signOut, &signedIn, &hours); err != nil {
			return nil, fmt.Errorf("load attendance: scan: %w", err)
		}

		if book[day] == nil {
			book[day] = ledger.Day{}
		}
		if !uid.Valid {
			continue
		}

		rec := ledger.Record{
			SignedIn: signedIn.Int64 == 1,
			Hours:    hours.Float64,
		}
		if rec.SignInTime, err = parseTime(signIn); err != nil {
			return nil, fmt.Errorf("load attendance: %s/%s sign_in_time: %w", day, uid.String, err)
		}
		if rec.SignOutTime, err = parseTime(signOut); err != nil {
			return nil, fmt.Errorf("load attendance: %s/%s sign_out_time: %w", day, uid.String, err)
		}
		book[day][uid.String] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	return book, nil
}

// SaveAttendance replaces the stored book in a single transaction.
func (s *Store) SaveAttendance(ctx context.Context, b ledger.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save attendance: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance`); err != nil {
		return fmt.Errorf("save attendance: clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM days`); err != nil {
		return fmt.Errorf("save attendance: clear days: %w", err)
	}

	dayStmt, err := tx.PrepareContext(ctx, `INSERT INTO days (day) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("save attendance: prepare days: %w", err)
	}
	defer dayStmt.Close()

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance
		(day, uid, sign_in_time, sign_out_time, signed_in, hours)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save attendance: prepare records: %w", err)
	}
	defer recStmt.Close()

	for _, day := range b.Dates() {
		if _, err := dayStmt.ExecContext(ctx, day); err != nil {
			return fmt.Errorf("save attendance: insert day %s: %w", day, err)
		}
		for uid, rec := range b[day] {
			_, err := recStmt.ExecContext(ctx,
				day,
				uid,
				formatTime(rec.SignInTime),
				formatTime(rec.SignOutTime),
				boolToInt(rec.SignedIn),
				rec.Hours,
			)
			if err != nil {
				return fmt.Errorf("save attendance: insert %s/%s: %w", day, uid, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save attendance: commit: %w", err)
	}
	return nil
}

// LoadNames reads the card registry.
func (s *Store) LoadNames(ctx context.Context) (registry.Names, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid, name FROM card_names ORDER BY uid ASC`)
	if err != nil {
		return nil, fmt.Errorf("load names: %w", err)
	}
	defer rows.Close()

	names := registry.Names{}
	for rows.Next() {
		var uid, name string
		if err := rows.Scan(&uid, &name); err != nil {
			return nil, fmt.Errorf("load names: scan: %w", err)
		}
		names[uid] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load names: %w", err)
	}
	return names, nil
}

// SaveNames replaces the stored registry in a single transaction.
func (s *Store) SaveNames(ctx context.Context, n registry.Names) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save names: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM card_names`); err != nil {
		return fmt.Errorf("save names: clear: %w", err)
	}
	for uid, name := range n {
		if _, err := tx.ExecContext(ctx, `INSERT INTO card_names (uid, name) VALUES (?, ?)`, uid, name); err != nil {
			return fmt.Errorf("save names: insert %s: %w", uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save names: commit: %w", err)
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
