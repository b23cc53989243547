package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestBirthdayWindowNonWrapping(t *testing.T) {
	from, to, wraps := BirthdayWindow(date(2023, time.June, 1), 7)
	require.False(t, wraps)
	require.Equal(t, date(2023, time.June, 1).YearDay(), from)
	require.Equal(t, date(2023, time.June, 8).YearDay(), to)

	// A June 5 birthday of any year lands inside the window.
	doy := date(1990, time.June, 5).YearDay()
	require.GreaterOrEqual(t, doy, from)
	require.LessOrEqual(t, doy, to)

	// June 9 is just outside.
	outside := date(1990, time.June, 9).YearDay()
	require.Greater(t, outside, to)
}

func TestBirthdayWindowWrapsYearBoundary(t *testing.T) {
	from, to, wraps := BirthdayWindow(date(2023, time.December, 28), 7)
	require.True(t, wraps)
	require.Equal(t, date(2023, time.December, 28).YearDay(), from)
	require.Equal(t, 4, to) // January 4

	// Jan 2 satisfies the wrapped predicate (doy <= to).
	jan2 := date(1985, time.January, 2).YearDay()
	require.LessOrEqual(t, jan2, to)

	// Dec 30 satisfies the other half (doy >= from).
	dec30 := date(1985, time.December, 30).YearDay()
	require.GreaterOrEqual(t, dec30, from)

	// June 15 satisfies neither half.
	jun15 := date(1985, time.June, 15).YearDay()
	require.Less(t, jun15, from)
	require.Greater(t, jun15, to)
}

func TestBirthdayWindowBothEndsInclusive(t *testing.T) {
	from, to, wraps := BirthdayWindow(date(2023, time.March, 10), 7)
	require.False(t, wraps)
	require.Equal(t, date(2023, time.March, 10).YearDay(), from)
	require.Equal(t, date(2023, time.March, 17).YearDay(), to)
}

// A duplicate email can surface from the write itself when a concurrent
// insert wins the race against the precheck; the violation must still be
// recognized through the scan wrapping.
func TestUniqueViolationDetectedThroughWrapping(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "contacts_email_key"}
	wrapped := fmt.Errorf("scan contact: %w", pgErr)

	require.True(t, isUniqueViolation(wrapped))
	require.True(t, isUniqueViolation(pgErr))
	require.False(t, isUniqueViolation(errors.New("connection reset")))
	require.False(t, isUniqueViolation(fmt.Errorf("scan contact: %w", &pgconn.PgError{Code: "23503"})))
}
