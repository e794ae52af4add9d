// Package journal keeps access point sightings in SQLite until the reporter
// has delivered them to the directory. Sightings are keyed by BSSID, so a
// network seen many times is reported once.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/types"
)

const (
	defaultDBFile    = "gridlink.db"
	maxBusyTimeoutMs = 5000

	// fixed width so stored times sort lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

var ErrEmptyBSSID = errors.New("sighting has no bssid")

// Journal is the sighting store.
type Journal struct {
	mu      sync.RWMutex
	db      *sql.DB
	file    string
	metrics *metrics.Metrics
	updates chan struct{}
	now     func() time.Time
}

// Open opens or creates the journal database at filePath. m may be nil.
func Open(filePath string, m *metrics.Metrics) (*Journal, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	j := &Journal{
		file:    absPath,
		metrics: m,
		updates: make(chan struct{}, 1),
		now:     time.Now,
	}
	if err := j.openDB(); err != nil {
		return nil, err
	}
	if err := j.ensureSchema(); err != nil {
		_ = j.closeDB()
		return nil, err
	}
	j.refreshPending()
	return j, nil
}

// Updates returns a channel that receives a value whenever a new sighting
// becomes pending.
func (j *Journal) Updates() <-chan struct{} {
	return j.updates
}

func (j *Journal) notify() {
	select {
	case j.updates <- struct{}{}:
	default:
	}
}

// Close releases the underlying database connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeDB()
}

func (j *Journal) openDB() error {
	if err := os.MkdirAll(filepath.Dir(j.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(j.file)))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	j.db = db
	return nil
}

func (j *Journal) closeDB() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func (j *Journal) ensureSchema() error {
	_, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS sightings (
		id TEXT NOT NULL UNIQUE,
		bssid TEXT PRIMARY KEY,
		essid TEXT,
		seen_at TEXT NOT NULL,
		reported_at TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create sightings table: %w", err)
	}
	if _, err := j.db.Exec(`CREATE INDEX IF NOT EXISTS sightings_pending ON sightings (reported_at, seen_at)`); err != nil {
		return fmt.Errorf("create pending index: %w", err)
	}

	var mode string
	if err := j.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	return nil
}

// Record stores a sighting of ap. A BSSID already in the journal keeps its
// ID and only has its ESSID and seen time refreshed; it becomes pending
// again only if the ESSID changed.
func (j *Journal) Record(ap types.AccessPoint) (types.Sighting, error) {
	bssid := strings.ToLower(strings.TrimSpace(ap.BSSID))
	if bssid == "" {
		return types.Sighting{}, ErrEmptyBSSID
	}

	j.mu.Lock()
	_, err := j.db.Exec(`INSERT INTO sightings (id, bssid, essid, seen_at, reported_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(bssid) DO UPDATE SET
			reported_at = CASE WHEN sightings.essid = excluded.essid THEN sightings.reported_at ELSE NULL END,
			essid = excluded.essid,
			seen_at = excluded.seen_at`,
		uuid.NewString(), bssid, ap.ESSID, formatTime(j.now()))
	var sighting types.Sighting
	if err == nil {
		sighting, err = j.getLocked(bssid)
	}
	j.mu.Unlock()
	if err != nil {
		return types.Sighting{}, fmt.Errorf("record sighting: %w", err)
	}

	j.metrics.SightingRecorded()
	if sighting.ReportedAt == nil {
		j.refreshPending()
		j.notify()
	}
	return sighting, nil
}

// Get returns the sighting for bssid.
func (j *Journal) Get(bssid string) (*types.Sighting, error) {
	j.mu.RLock()
	s, err := j.getLocked(strings.ToLower(bssid))
	j.mu.RUnlock()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sighting not found: %s", bssid)
		}
		return nil, err
	}
	return &s, nil
}

func (j *Journal) getLocked(bssid string) (types.Sighting, error) {
	row := j.db.QueryRow(`SELECT id, bssid, essid, seen_at, reported_at FROM sightings WHERE bssid = ?`, bssid)
	return scanSighting(row)
}

// Pending returns up to limit unreported sightings, oldest first. A limit
// of zero or less returns all of them.
func (j *Journal) Pending(limit int) ([]types.Sighting, error) {
	if limit <= 0 {
		limit = -1
	}
	return j.query(`SELECT id, bssid, essid, seen_at, reported_at FROM sightings
		WHERE reported_at IS NULL ORDER BY seen_at, bssid LIMIT ?`, limit)
}

// All returns every sighting ordered by BSSID.
func (j *Journal) All() ([]types.Sighting, error) {
	return j.query(`SELECT id, bssid, essid, seen_at, reported_at FROM sightings ORDER BY bssid`)
}

// PendingCount returns the number of unreported sightings.
func (j *Journal) PendingCount() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var n int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM sightings WHERE reported_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// MarkReported flags the given sightings as delivered. A row whose ESSID
// changed since the sighting was read stays pending.
func (j *Journal) MarkReported(sent []types.Sighting) error {
	if len(sent) == 0 {
		return nil
	}

	j.mu.Lock()
	err := j.markReportedLocked(sent, formatTime(j.now()))
	j.mu.Unlock()
	if err != nil {
		return err
	}
	j.refreshPending()
	return nil
}

func (j *Journal) markReportedLocked(sent []types.Sighting, at any) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin mark reported: %w", err)
	}
	stmt, err := tx.Prepare(`UPDATE sightings SET reported_at = ? WHERE id = ? AND essid = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare mark reported: %w", err)
	}
	defer stmt.Close()

	for _, s := range sent {
		if _, err := stmt.Exec(at, s.ID, s.ESSID); err != nil {
			tx.Rollback()
			return fmt.Errorf("mark %s reported: %w", s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark reported: %w", err)
	}
	return nil
}

func (j *Journal) query(q string, args ...any) ([]types.Sighting, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()

	sightings := []types.Sighting{}
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}
	return sightings, rows.Err()
}

func (j *Journal) refreshPending() {
	if j.metrics == nil {
		return
	}
	if n, err := j.PendingCount(); err == nil {
		j.metrics.SetPending(n)
	}
}

func scanSighting(scanner interface{ Scan(dest ...any) error }) (types.Sighting, error) {
	var (
		id, bssid, essid, seenAt sql.NullString
		reportedAt               sql.NullString
	)
	if err := scanner.Scan(&id, &bssid, &essid, &seenAt, &reportedAt); err != nil {
		return types.Sighting{}, err
	}

	s := types.Sighting{
		ID:     id.String,
		BSSID:  bssid.String,
		ESSID:  essid.String,
		SeenAt: parseTime(seenAt.String),
	}
	if reportedAt.Valid && reportedAt.String != "" {
		ts := parseTime(reportedAt.String)
		s.ReportedAt = &ts
	}
	return s, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(timeLayout, value); err == nil {
		return ts
	}
	return time.Time{}
}
