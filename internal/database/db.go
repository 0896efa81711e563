package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the sqlite file created inside the data directory
const FileName = "sos2a.db"

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool records the pool limits applied to the sql.DB
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool applies pool limits to db
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (creating if needed) the sqlite database in dataDir, runs the
// migrations and prepares the hot statements.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite allows a single writer; a small pool keeps readers concurrent
	pool := NewConnectionPool(db, 8, 4, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		business_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		revision INTEGER NOT NULL DEFAULT 1,
		document TEXT NOT NULL, -- JSON assessment document
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		submitted_at DATETIME
	)`,

	`CREATE TABLE IF NOT EXISTS assessment_revisions (
		id TEXT PRIMARY KEY,
		assessment_id TEXT NOT NULL,
		revision INTEGER NOT NULL,
		reason TEXT NOT NULL, -- 'created', 'updated', 'submitted'
		digest TEXT NOT NULL, -- sha256 of document
		document TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(assessment_id, revision),
		FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS devices (
		assessment_id TEXT NOT NULL,
		id TEXT NOT NULL,
		device_type TEXT NOT NULL,
		owner TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		document TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (assessment_id, id),
		FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS identities (
		assessment_id TEXT NOT NULL,
		id TEXT NOT NULL,
		identity_type TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		uwa TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (assessment_id, id),
		FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_assessments_status ON assessments(status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_revisions_assessment ON assessment_revisions(assessment_id, revision)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_score ON devices(assessment_id, risk_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_identities_email ON identities(assessment_id, email)`,
}

func (db *DB) migrate() error {
	for _, query := range migrations {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// statement names
const (
	stmtGetAssessment  = "get_assessment"
	stmtUpsertDevice   = "upsert_device"
	stmtUpsertIdentity = "upsert_identity"
	stmtInsertRevision = "insert_revision"
)

func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		stmtGetAssessment: `SELECT document FROM assessments WHERE id = ?`,

		stmtUpsertDevice: `INSERT INTO devices (assessment_id, id, device_type, owner, risk_score, document, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(assessment_id, id) DO UPDATE SET
			device_type = excluded.device_type,
			owner = excluded.owner,
			risk_score = excluded.risk_score,
			document = excluded.document,
			updated_at = excluded.updated_at`,

		stmtUpsertIdentity: `INSERT INTO identities (assessment_id, id, identity_type, email, uwa, document, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(assessment_id, id) DO UPDATE SET
			identity_type = excluded.identity_type,
			email = excluded.email,
			uwa = excluded.uwa,
			document = excluded.document,
			updated_at = excluded.updated_at`,

		stmtInsertRevision: `INSERT INTO assessment_revisions (id, assessment_id, revision, reason, digest, document, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt
		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}
	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the prepared statements and the connection
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
