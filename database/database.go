package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"imagededup/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// InitDatabase opens dbPath and migrates the schema to the latest version.
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	if err := RunMigrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// RunMigrate applies the embedded migrations that db has not seen yet.
func RunMigrate(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	// Closing m would close db as well, so only the source is released.
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func SchemaVersion(db *sql.DB) (uint, error) {
	var version uint
	var dirty bool
	err := db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// OpenDatabase opens an existing database connection. SQLite allows a single
// writer, so the pool is capped at one connection.
func OpenDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// GetImageInfo returns the cached row for path, or sql.ErrNoRows.
func GetImageInfo(db *sql.DB, path, algorithm string, hashBits int) (types.ImageInfo, error) {
	var info types.ImageInfo
	var format, digest sql.NullString
	err := db.QueryRow(`
		SELECT id, path, algorithm, hash_bits, format, created_at, modified_at, size, digest, fingerprint
		FROM fingerprints WHERE path = ? AND algorithm = ? AND hash_bits = ?`,
		path, algorithm, hashBits,
	).Scan(&info.ID, &info.Path, &info.Algorithm, &info.HashBits, &format,
		&info.CreatedAt, &info.ModifiedAt, &info.Size, &digest, &info.Fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return info, err
		}
		return info, fmt.Errorf("database error for %s: %w", path, err)
	}
	info.Format = format.String
	info.Digest = digest.String
	return info, nil
}

// StoreImageInfo inserts or replaces the row for info's key.
func StoreImageInfo(db *sql.DB, info types.ImageInfo) error {
	now := time.Now().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT OR REPLACE INTO fingerprints (
			path, algorithm, hash_bits, format, created_at, modified_at, size, digest, fingerprint
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.Path, info.Algorithm, info.HashBits, info.Format, now,
		info.ModifiedAt, info.Size, info.Digest, info.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", info.Path, err)
	}
	return nil
}

// UpdateModifiedAt records a new modification time for every row of path.
func UpdateModifiedAt(db *sql.DB, path, modifiedAt string) error {
	if _, err := db.Exec("UPDATE fingerprints SET modified_at = ? WHERE path = ?", modifiedAt, path); err != nil {
		return fmt.Errorf("cannot update modified time for %s: %w", path, err)
	}
	return nil
}

// DeleteImages drops the rows of the given paths, typically after the files
// were moved away.
func DeleteImages(db *sql.DB, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("DELETE FROM fingerprints WHERE path = ?")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, p := range paths {
		if _, err := stmt.Exec(p); err != nil {
			tx.Rollback()
			return fmt.Errorf("cannot delete %s: %w", p, err)
		}
	}
	return tx.Commit()
}

// QueryFingerprints returns the rows for one algorithm and width whose path
// starts with prefix. An empty prefix matches everything.
func QueryFingerprints(db *sql.DB, algorithm string, hashBits int, prefix string) ([]types.ImageInfo, error) {
	query := `SELECT path, fingerprint FROM fingerprints WHERE algorithm = ? AND hash_bits = ?`
	args := []interface{}{algorithm, hashBits}
	if prefix != "" {
		query += ` AND substr(path, 1, ?) = ?`
		args = append(args, len(prefix), prefix)
	}
	query += ` ORDER BY path`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ImageInfo
	for rows.Next() {
		info := types.ImageInfo{Algorithm: algorithm, HashBits: hashBits}
		if err := rows.Scan(&info.Path, &info.Fingerprint); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// ScanStats contains statistics about the cache.
type ScanStats struct {
	TotalImages  int
	UniqueHashes int
	Algorithms   []string
}

// GetScanStats retrieves statistics about cached images under prefix.
func GetScanStats(db *sql.DB, prefix string) (*ScanStats, error) {
	var stats ScanStats
	where := ""
	var args []interface{}
	if prefix != "" {
		where = " WHERE substr(path, 1, ?) = ?"
		args = append(args, len(prefix), prefix)
	}

	if err := db.QueryRow("SELECT COUNT(DISTINCT path) FROM fingerprints"+where, args...).Scan(&stats.TotalImages); err != nil {
		return nil, fmt.Errorf("failed to get total images: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(DISTINCT fingerprint) FROM fingerprints"+where, args...).Scan(&stats.UniqueHashes); err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %w", err)
	}

	rows, err := db.Query("SELECT DISTINCT algorithm || '/' || hash_bits FROM fingerprints"+where+" ORDER BY 1", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list algorithms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		stats.Algorithms = append(stats.Algorithms, a)
	}
	return &stats, rows.Err()
}

// String formats the stats on one line.
func (s *ScanStats) String() string {
	return fmt.Sprintf("%d images, %d distinct fingerprints (%s)", s.TotalImages, s.UniqueHashes, strings.Join(s.Algorithms, ", "))
}
