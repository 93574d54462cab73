package hours

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curaplan/clinicops/libs/db"
	"github.com/jackc/pgx/v5"
)

// Static serves one weekly schedule for every tenant, configured from
// environment clock strings ("09:00", "17:00"). Used for dev and as a
// fallback when the tenant has no hours rows.
type Static struct {
	openClock  string
	closeClock string
	loc        *time.Location
}

func NewStatic(openClock, closeClock, tz string) (*Static, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}
	if _, err := time.Parse("15:04", openClock); err != nil {
		return nil, fmt.Errorf("invalid open time %q: %w", openClock, err)
	}
	if _, err := time.Parse("15:04", closeClock); err != nil {
		return nil, fmt.Errorf("invalid close time %q: %w", closeClock, err)
	}
	return &Static{openClock: openClock, closeClock: closeClock, loc: loc}, nil
}

func (s *Static) Hours(_ context.Context, _ string, date time.Time) (time.Time, time.Time, error) {
	open := onDate(date, s.openClock, s.loc)
	close := onDate(date, s.closeClock, s.loc)
	if !close.After(open) {
		return time.Time{}, time.Time{}, nil
	}
	return open, close, nil
}

// Postgres reads per-tenant, per-weekday business hours from the tenant
// configuration tables. A missing row means the clinic is closed that
// day (zero instants).
type Postgres struct {
	pool     *db.Pool
	fallback *Static
}

func NewPostgres(pool *db.Pool, fallback *Static) *Postgres {
	return &Postgres{pool: pool, fallback: fallback}
}

func (p *Postgres) Hours(ctx context.Context, tenantID string, date time.Time) (time.Time, time.Time, error) {
	var openClock, closeClock, tz string
	err := p.pool.QueryRow(ctx, `
		SELECT open_time::text, close_time::text, timezone
		FROM tenant_business_hours
		WHERE tenant_id = $1 AND weekday = $2
	`, tenantID, int(date.Weekday())).Scan(&openClock, &closeClock, &tz)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if p.fallback != nil {
				return p.fallback.Hours(ctx, tenantID, date)
			}
			return time.Time{}, time.Time{}, nil
		}
		return time.Time{}, time.Time{}, err
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	// Postgres time columns render as "09:00:00"; keep HH:MM.
	if len(openClock) > 5 {
		openClock = openClock[:5]
	}
	if len(closeClock) > 5 {
		closeClock = closeClock[:5]
	}
	open := onDate(date, openClock, loc)
	close := onDate(date, closeClock, loc)
	if !close.After(open) {
		return time.Time{}, time.Time{}, nil
	}
	return open, close, nil
}

// onDate pins a clock string onto the requested calendar day in loc.
// The day comes from the date value's own Y/M/D components; converting
// the instant into loc first would shift the day for zones west of the
// date's location.
func onDate(date time.Time, clock string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}
