// Package db journals trigger events to sqlite and exposes admin routes for
// inspecting and backing up the journal.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/range.trigger/internal/monitoring"
)

// DefaultRecentLimit is the number of events RecentTriggers returns when no
// positive limit is given.
const DefaultRecentLimit = 100

type DB struct {
	*sql.DB
	path string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// NewDB opens (or creates) the journal at path and brings its schema up to
// date.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB, path: path}
	migrations, err := getMigrationsFS()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrations); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// TriggerEvent is one journalled actuation.
type TriggerEvent struct {
	ID           string    `json:"id"`
	TriggeredAt  time.Time `json:"triggered_at"`
	DistanceCM   float64   `json:"distance_cm"`
	BaselineCM   float64   `json:"baseline_cm"`
	DeltaCM      float64   `json:"delta_cm"`
	Strength     uint16    `json:"strength"`
	TemperatureC float64   `json:"temperature_c"`
	PitchUS      *int      `json:"pitch_us,omitempty"`
	YawUS        *int      `json:"yaw_us,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func (e *TriggerEvent) String() string {
	return fmt.Sprintf("ID: %s, TriggeredAt: %s, Distance: %.1f, Baseline: %.1f, Delta: %.1f",
		e.ID, e.TriggeredAt.Format(time.RFC3339Nano), e.DistanceCM, e.BaselineCM, e.DeltaCM)
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnix(f float64) time.Time {
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
}

// RecordTrigger inserts one event.
func (db *DB) RecordTrigger(ev TriggerEvent) error {
	var actErr sql.NullString
	if ev.Error != "" {
		actErr = sql.NullString{String: ev.Error, Valid: true}
	}

	_, err := db.Exec(
		`INSERT INTO trigger_events (
			event_id, triggered_unix, distance_cm, baseline_cm, delta_cm,
			strength, temperature_c, pitch_us, yaw_us, actuation_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, toUnix(ev.TriggeredAt), ev.DistanceCM, ev.BaselineCM, ev.DeltaCM,
		ev.Strength, ev.TemperatureC, ev.PitchUS, ev.YawUS, actErr,
	)
	if err != nil {
		return fmt.Errorf("record trigger %s: %w", ev.ID, err)
	}
	return nil
}

// RecentTriggers returns up to limit events, newest first.
func (db *DB) RecentTriggers(limit int) ([]TriggerEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := db.Query(`SELECT event_id, triggered_unix, distance_cm, baseline_cm, delta_cm,
			strength, temperature_c, pitch_us, yaw_us, actuation_error
		FROM trigger_events ORDER BY triggered_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []TriggerEvent{}
	for rows.Next() {
		var (
			ev        TriggerEvent
			triggered float64
			pitch     sql.NullInt64
			yaw       sql.NullInt64
			actErr    sql.NullString
		)
		if err := rows.Scan(
			&ev.ID, &triggered, &ev.DistanceCM, &ev.BaselineCM, &ev.DeltaCM,
			&ev.Strength, &ev.TemperatureC, &pitch, &yaw, &actErr,
		); err != nil {
			return nil, err
		}
		ev.TriggeredAt = fromUnix(triggered)
		if pitch.Valid {
			v := int(pitch.Int64)
			ev.PitchUS = &v
		}
		if yaw.Valid {
			v := int(yaw.Int64)
			ev.YawUS = &v
		}
		ev.Error = actErr.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// TriggerCount returns the number of journalled events.
func (db *DB) TriggerCount() (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM trigger_events`).Scan(&n)
	return n, err
}

// AttachAdminRoutes mounts tailsql and a backup download under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Trigger journal",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
	return nil
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		monitoring.Logf("Failed to write backup: %v", err)
	}
}
