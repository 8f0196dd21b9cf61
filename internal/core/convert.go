package core

// convert.go maps the parser's canonical strings onto pgtype values and back.
//
// All ToPg* functions return pgtype values with Valid=false for empty or
// unparseable input so the column is stored as NULL.

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a YYYY-MM-DD string to pgtype.Date.
func ToPgDate(s string) pgtype.Date {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// PgDateToString renders a date as YYYY-MM-DD, or "" when NULL.
func PgDateToString(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// ToPgTime converts an HH:MM string to pgtype.Time.
func ToPgTime(s string) pgtype.Time {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Time{Valid: false}
	}
	d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}
}

// PgTimeToString renders a time of day as HH:MM, or "" when NULL.
func PgTimeToString(t pgtype.Time) string {
	if !t.Valid {
		return ""
	}
	minutes := t.Microseconds / int64(time.Minute/time.Microsecond)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ToPgInt4 converts an int to pgtype.Int4.
// Returns invalid if the value is zero.
func ToPgInt4(i int) pgtype.Int4 {
	if i == 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// validUUID reports whether s parses as a UUID.
func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
