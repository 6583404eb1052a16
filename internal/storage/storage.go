// Package storage persists recorded room readings in the append-only
// energy_readings table.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var (
	// ErrUnknownDriver is returned by Open for drivers outside the supported set
	ErrUnknownDriver = errors.New("unknown storage driver")
	// ErrMissingRoomID is returned when a reading without a room id is inserted
	ErrMissingRoomID = errors.New("reading has no room id")
)

const timestampLayout = time.RFC3339Nano

// Store is the energy_readings repository
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the table when missing
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single connection keeps in-memory databases shared and
		// serializes writers
		db.SetMaxOpenConns(1)
	}

	s, err := New(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and runs the schema migration
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	for _, stmt := range schema(driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate energy_readings: %w", err)
		}
	}
	return s, nil
}

func schema(driver string) []string {
	const columns = `
		tick_id VARCHAR(36) NOT NULL,
		room_id VARCHAR(16) NOT NULL,
		timestamp VARCHAR(64) NOT NULL,
		power DOUBLE PRECISION,
		current DOUBLE PRECISION,
		voltage DOUBLE PRECISION,
		kwh DOUBLE PRECISION,
		is_scheduled INTEGER,
		course TEXT,
		status VARCHAR(16)`

	switch driver {
	case DriverPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS energy_readings (id BIGSERIAL PRIMARY KEY,` + columns + `)`,
			`CREATE INDEX IF NOT EXISTS idx_energy_readings_room ON energy_readings (room_id, id)`,
		}
	case DriverMySQL:
		return []string{
			"CREATE TABLE IF NOT EXISTS energy_readings (id BIGINT AUTO_INCREMENT PRIMARY KEY," + columns +
				", INDEX idx_energy_readings_room (room_id, id))",
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS energy_readings (id INTEGER PRIMARY KEY AUTOINCREMENT,` + columns + `)`,
			`CREATE INDEX IF NOT EXISTS idx_energy_readings_room ON energy_readings (room_id, id)`,
		}
	}
}

// rebind rewrites ? placeholders to $n for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// KWh converts a power reading held for interval into kilowatt-hours
func KWh(power float64, interval time.Duration) float64 {
	return power * interval.Hours() / 1000
}

// InsertReadings appends one row per reading inside a single transaction.
// Either every row of the tick is stored or none is.
func (s *Store) InsertReadings(ctx context.Context, tickID string, at time.Time, interval time.Duration, readings []models.RoomReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO energy_readings
		(tick_id, room_id, timestamp, power, current, voltage, kwh, is_scheduled, course, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := at.Format(timestampLayout)
	for _, r := range readings {
		if r.RoomID == "" {
			return 0, ErrMissingRoomID
		}
		scheduled := 0
		if r.IsActive {
			scheduled = 1
		}
		if _, err := stmt.ExecContext(ctx,
			tickID, r.RoomID, ts, r.Power, r.Current, r.Voltage,
			KWh(r.Power, interval), scheduled, r.CourseName, r.Status,
		); err != nil {
			return 0, fmt.Errorf("insert reading for room %s: %w", r.RoomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit readings: %w", err)
	}
	return len(readings), nil
}

// Latest returns up to limit rows for a room, newest first
func (s *Store) Latest(ctx context.Context, roomID string, limit int) ([]models.StoredReading, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, tick_id, room_id, timestamp, power, current, voltage, kwh, is_scheduled, course, status
		FROM energy_readings WHERE room_id = ? ORDER BY id DESC LIMIT ?`), roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.StoredReading, 0, limit)
	for rows.Next() {
		var (
			r         models.StoredReading
			ts        string
			scheduled int
			course    sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TickID, &r.RoomID, &ts, &r.Power, &r.Current, &r.Voltage, &r.KWh, &scheduled, &course, &r.Status); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		if r.Timestamp, err = time.Parse(timestampLayout, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		r.IsScheduled = scheduled == 1
		if course.Valid {
			c := course.String
			r.Course = &c
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

// Count returns the number of stored rows
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM energy_readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
