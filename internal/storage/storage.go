// Package storage provides SQLite-backed persistence for anomalies and
// the investigation registry.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stocksleuth/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db                *sql.DB
	maxInvestigations int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/stocksleuth/data.db.
func New(maxInvestigations int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "stocksleuth", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db, maxInvestigations: maxInvestigations}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS anomalies (
			id             TEXT PRIMARY KEY,
			ticker         TEXT NOT NULL,
			price          REAL NOT NULL,
			percent_change REAL NOT NULL,
			volume         INTEGER NOT NULL,
			volume_ratio   REAL NOT NULL,
			detected_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS investigations (
			id           TEXT PRIMARY KEY,
			anomaly_id   TEXT NOT NULL REFERENCES anomalies(id) ON DELETE CASCADE,
			ticker       TEXT NOT NULL,
			status       TEXT NOT NULL,
			iterations   INTEGER NOT NULL DEFAULT 0,
			confidence   REAL NOT NULL DEFAULT 0,
			quality      TEXT NOT NULL DEFAULT '',
			root_cause   TEXT NOT NULL DEFAULT '',
			report_path  TEXT NOT NULL DEFAULT '',
			started_at   INTEGER NOT NULL,
			completed_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_investigations_ticker ON investigations(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_investigations_started_at ON investigations(started_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnomaly persists a detected anomaly under the given id.
func (s *Storage) SaveAnomaly(id string, anomaly *models.AnomalyEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO anomalies
			(id, ticker, price, percent_change, volume, volume_ratio, detected_at)
		VALUES (?,?,?,?,?,?,?)`,
		id, anomaly.Ticker, anomaly.Price, anomaly.PercentChange,
		anomaly.Volume, anomaly.VolumeRatio, anomaly.DetectedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert anomaly: %w", err)
	}
	return nil
}

// CreateInvestigation registers a new running investigation.
func (s *Storage) CreateInvestigation(id, anomalyID, ticker string, startedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO investigations (id, anomaly_id, ticker, status, started_at)
		VALUES (?,?,?,?,?)`,
		id, anomalyID, ticker, string(models.StatusRunning), startedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert investigation: %w", err)
	}
	return nil
}

// CompleteInvestigation writes the terminal fields of an investigation in
// a single update.
func (s *Storage) CompleteInvestigation(id string, status models.InvestigationStatus, iterations int, confidence float64, quality, rootCause, reportPath string, completedAt time.Time) error {
	res, err := s.db.Exec(`
		UPDATE investigations SET
			status=?, iterations=?, confidence=?, quality=?, root_cause=?,
			report_path=?, completed_at=?
		WHERE id=?`,
		string(status), iterations, confidence, quality, rootCause,
		reportPath, completedAt.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete investigation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("investigation not found: %s", id)
	}
	return nil
}

// GetInvestigation returns one registry record by id.
func (s *Storage) GetInvestigation(id string) (*models.InvestigationRecord, error) {
	row := s.db.QueryRow(`SELECT `+investigationCols+` FROM investigations WHERE id = ?`, id)
	rec, err := scanInvestigation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("investigation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investigation: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit investigations, newest first.
func (s *Storage) ListRecent(limit int) ([]*models.InvestigationRecord, error) {
	rows, err := s.db.Query(`
		SELECT `+investigationCols+` FROM investigations
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query investigations: %w", err)
	}
	defer rows.Close()

	records := []*models.InvestigationRecord{}
	for rows.Next() {
		rec, err := scanInvestigation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investigation: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RotateInvestigations keeps at most maxInvestigations newest records by
// started_at and prunes anomalies no longer referenced by any record.
func (s *Storage) RotateInvestigations() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		DELETE FROM investigations WHERE id NOT IN (
			SELECT id FROM investigations ORDER BY started_at DESC LIMIT ?
		)`, s.maxInvestigations); err != nil {
		return fmt.Errorf("failed to rotate investigations: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM anomalies WHERE id NOT IN (
			SELECT anomaly_id FROM investigations
		)`); err != nil {
		return fmt.Errorf("failed to prune anomalies: %w", err)
	}

	return tx.Commit()
}

const investigationCols = `id, anomaly_id, ticker, status, iterations, confidence,
	quality, root_cause, report_path, started_at, completed_at`

func scanInvestigation(scan func(...any) error) (*models.InvestigationRecord, error) {
	var rec models.InvestigationRecord
	var status string
	var startedAtNano, completedAtNano int64
	err := scan(
		&rec.ID, &rec.AnomalyID, &rec.Ticker, &status, &rec.Iterations, &rec.Confidence,
		&rec.Quality, &rec.RootCause, &rec.ReportPath, &startedAtNano, &completedAtNano,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = models.InvestigationStatus(status)
	rec.StartedAt = time.Unix(0, startedAtNano)
	if completedAtNano != 0 {
		rec.CompletedAt = time.Unix(0, completedAtNano)
	}
	return &rec, nil
}
