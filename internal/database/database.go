// Package database persists timeline projects and the media source catalog
// in SQLite.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrProjectNotFound is returned when no project matches an id or name.
var ErrProjectNotFound = errors.New("project not found")

// Database wraps a *sql.DB with the project and source queries. It is safe
// for concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	hasFPSColumn bool

	upsertSourceStmt *sql.Stmt
	removeSourceStmt *sql.Stmt
	getProjectStmt   *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at dbPath and ensures
// all tables exist. Caller should Close() it when finished.
func NewDatabase(dbPath string, maxConns int, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if maxConns <= 0 {
		maxConns = 5
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Debug("Database initialized")
	return db, nil
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations.
func (db *Database) createTables() error {
	tables := []string{`
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		duration INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`, `
	CREATE TABLE IF NOT EXISTS project_tracks (
		project_id TEXT NOT NULL,
		track_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, track_id)
	);`, `
	CREATE TABLE IF NOT EXISTS project_clips (
		project_id TEXT NOT NULL,
		clip_id INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		track_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		in_point INTEGER NOT NULL,
		playtime INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, clip_id)
	);`, `
	CREATE TABLE IF NOT EXISTS project_compositions (
		project_id TEXT NOT NULL,
		composition_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		track_id INTEGER NOT NULL,
		a_track INTEGER NOT NULL,
		position INTEGER NOT NULL,
		playtime INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, composition_id)
	);`, `
	CREATE TABLE IF NOT EXISTS project_groups (
		project_id TEXT NOT NULL,
		group_id INTEGER NOT NULL,
		child_id INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, group_id, child_id)
	);`, `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		format TEXT NOT NULL,
		length INTEGER NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_project_clips_track ON project_clips(project_id, track_id);",
		"CREATE INDEX IF NOT EXISTS idx_project_groups_group ON project_groups(project_id, group_id);",
		"CREATE INDEX IF NOT EXISTS idx_sources_file_path ON sources(file_path);",
	}

	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}
	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return db.runMigrations()
}

// runMigrations performs incremental schema updates in place. Each
// migration is idempotent.
func (db *Database) runMigrations() error {
	// Migration 1: projects record the frame rate their positions refer to.
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('projects')
		WHERE name = 'fps'`).Scan(&db.hasFPSColumn)
	if err != nil {
		return err
	}

	if !db.hasFPSColumn {
		if _, err := db.conn.Exec("ALTER TABLE projects ADD COLUMN fps REAL DEFAULT 25"); err != nil {
			return err
		}
		db.hasFPSColumn = true
		db.logger.Info("Added fps column to projects table")
	}
	return nil
}

func (db *Database) prepareStatements() error {
	var err error

	db.upsertSourceStmt, err = db.conn.Prepare(`
		INSERT INTO sources (id, title, artist, album, format, length, file_path, file_size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, artist = excluded.artist, album = excluded.album,
			format = excluded.format, length = excluded.length, file_path = excluded.file_path,
			file_size = excluded.file_size, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert source statement: %w", err)
	}

	db.removeSourceStmt, err = db.conn.Prepare(`DELETE FROM sources WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove source statement: %w", err)
	}

	db.getProjectStmt, err = db.conn.Prepare(`
		SELECT p.id, p.name, p.fps, p.duration, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM project_tracks t WHERE t.project_id = p.id),
			(SELECT COUNT(*) FROM project_clips c WHERE c.project_id = p.id)
		FROM projects p WHERE p.id = ? OR p.name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get project statement: %w", err)
	}

	return nil
}

// Close closes the prepared statements and the database connection
func (db *Database) Close() error {
	for _, stmt := range []*sql.Stmt{db.upsertSourceStmt, db.removeSourceStmt, db.getProjectStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return db.conn.Close()
}
