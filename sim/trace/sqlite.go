package trace

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

const defaultBatchSize = 10000

// SQLiteRecorder buffers records and writes them into a SQLite database.
// The database has three tables: runs, events and transmissions, all keyed by run_id.
// Buffered records are flushed when the batch fills, on Close, and at process
// exit through atexit.
type SQLiteRecorder struct {
	db        *sql.DB
	filename  string
	runID     string
	batchSize int

	events        []EventRecord
	transmissions []TransmissionRecord

	err    error
	closed bool
}

// NewSQLiteRecorder creates <name>.sqlite3 and prepares its tables.
// An empty name picks "rdtsim_trace_<xid>"; an empty runID gets a fresh xid.
// The file must not already exist.
func NewSQLiteRecorder(name, runID string) (*SQLiteRecorder, error) {
	if name == "" {
		name = "rdtsim_trace_" + xid.New().String()
	}
	if runID == "" {
		runID = xid.New().String()
	}
	filename := name + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	r := &SQLiteRecorder{
		db:        db,
		filename:  filename,
		runID:     runID,
		batchSize: defaultBatchSize,
	}
	if err := r.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.Infof("Database created for recording: %s", filename)
	atexit.Register(func() {
		if err := r.Close(); err != nil {
			logrus.Errorf("closing trace database %s: %v", filename, err)
		}
	})

	return r, nil
}

// Filename returns the path of the database file.
func (r *SQLiteRecorder) Filename() string {
	return r.filename
}

// RunID returns the identifier stored with every row.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

func (r *SQLiteRecorder) createTables() error {
	stmts := []string{
		`CREATE TABLE runs (run_id TEXT PRIMARY KEY)`,
		`CREATE TABLE events (
	run_id TEXT,
	clock REAL,
	kind TEXT,
	entity TEXT,
	seqnum INTEGER,
	acknum INTEGER,
	corrupted INTEGER
)`,
		`CREATE TABLE transmissions (
	run_id TEXT,
	sent_at REAL,
	from_entity TEXT,
	seqnum INTEGER,
	acknum INTEGER,
	fate TEXT,
	arrives_at REAL,
	corruption TEXT
)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("creating tables in %s: %w", r.filename, err)
		}
	}
	if _, err := r.db.Exec(`INSERT INTO runs VALUES (?)`, r.runID); err != nil {
		return fmt.Errorf("registering run %s: %w", r.runID, err)
	}
	return nil
}

// RecordEvent buffers an event record.
func (r *SQLiteRecorder) RecordEvent(record EventRecord) {
	r.events = append(r.events, record)
	r.maybeFlush()
}

// RecordTransmission buffers a transmission record.
func (r *SQLiteRecorder) RecordTransmission(record TransmissionRecord) {
	r.transmissions = append(r.transmissions, record)
	r.maybeFlush()
}

func (r *SQLiteRecorder) maybeFlush() {
	if len(r.events)+len(r.transmissions) < r.batchSize {
		return
	}
	if err := r.Flush(); err != nil && r.err == nil {
		r.err = err
	}
}

// Flush writes all buffered records in one transaction.
func (r *SQLiteRecorder) Flush() error {
	if r.closed {
		return nil
	}
	if len(r.events) == 0 && len(r.transmissions) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	evStmt, err := tx.Prepare(`INSERT INTO events VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return multierror.Append(err, tx.Rollback())
	}
	defer evStmt.Close()
	for _, e := range r.events {
		if _, err := evStmt.Exec(r.runID, e.Clock, e.Kind, e.Entity, e.SeqNum, e.AckNum, e.Corrupted); err != nil {
			return multierror.Append(err, tx.Rollback())
		}
	}

	txStmt, err := tx.Prepare(`INSERT INTO transmissions VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return multierror.Append(err, tx.Rollback())
	}
	defer txStmt.Close()
	for _, t := range r.transmissions {
		if _, err := txStmt.Exec(r.runID, t.SentAt, t.From, t.SeqNum, t.AckNum, string(t.Fate), t.ArrivesAt, t.Corruption); err != nil {
			return multierror.Append(err, tx.Rollback())
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.events = r.events[:0]
	r.transmissions = r.transmissions[:0]
	return nil
}

// Close flushes pending records and closes the database. Calling Close twice is a no-op.
func (r *SQLiteRecorder) Close() error {
	if r.closed {
		return nil
	}
	var result *multierror.Error
	if r.err != nil {
		result = multierror.Append(result, r.err)
	}
	if err := r.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	r.closed = true
	return result.ErrorOrNil()
}
