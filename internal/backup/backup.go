// Package backup snapshots the sqlite database. Snapshots are taken on
// demand and before schema migrations, and are pruned to the newest
// MaxBackups.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/logger"
)

const (
	// MaxBackups is the number of snapshots kept after pruning
	MaxBackups = 14
	// DirName is the snapshot directory, next to the database
	DirName = "backups"

	filePrefix      = constants.AppName + "-"
	fileSuffix      = ".db"
	timestampFormat = "20060102-150405"
)

// Info describes one snapshot on disk
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager creates, lists and restores snapshots of one database file
type Manager struct {
	dbPath string
	dir    string
	now    func() time.Time
}

func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		now:    time.Now,
	}
}

// Dir returns the snapshot directory
func (m *Manager) Dir() string {
	return m.dir
}

// Create writes a snapshot of the database and prunes old ones
func (m *Manager) Create(ctx context.Context) (Info, error) {
	info, err := m.create(ctx)
	if err != nil {
		return Info{}, err
	}
	if err := m.prune(); err != nil {
		logger.Warn("Failed to prune old backups", "dir", m.dir, "error", err)
	}
	return info, nil
}

func (m *Manager) create(ctx context.Context) (Info, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return Info{}, fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	ts := m.now()
	path, err := m.nextPath(ts)
	if err != nil {
		return Info{}, err
	}

	if err := vacuumInto(ctx, m.dbPath, path); err != nil {
		return Info{}, fmt.Errorf("failed to back up database: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	logger.Info("Created backup", "path", path, "size", st.Size())
	return Info{Path: path, Timestamp: ts.Truncate(time.Second), Size: st.Size()}, nil
}

// nextPath picks a free file name for ts, adding a counter on collision
func (m *Manager) nextPath(ts time.Time) (string, error) {
	base := filePrefix + ts.Format(timestampFormat)
	path := filepath.Join(m.dir, base+fileSuffix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s-%d%s", base, n, fileSuffix))
	}
}

// vacuumInto copies src to dst through sqlite so the copy is consistent
// even while other connections hold the database open.
func vacuumInto(ctx context.Context, src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := verify(ctx, db); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}
	_, err = db.ExecContext(ctx, "VACUUM INTO ?", dst)
	return err
}

func verify(ctx context.Context, db *sql.DB) error {
	var count int
	return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

// List returns the snapshots, newest first
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.dir, entry.Name()),
			Timestamp: ts,
			Size:      st.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseName reads the timestamp out of habitpact-YYYYMMDD-HHMMSS[-N].db
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if len(stamp) > len(timestampFormat) {
		counter := stamp[len(timestampFormat):]
		if counter[0] != '-' {
			return time.Time{}, false
		}
		if _, err := strconv.Atoi(counter[1:]); err != nil {
			return time.Time{}, false
		}
		stamp = stamp[:len(timestampFormat)]
	}
	ts, err := time.ParseInLocation(timestampFormat, stamp, time.Local)
	return ts, err == nil
}

func (m *Manager) prune() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with the snapshot at path. The current
// database is snapshotted first and the returned Info describes that
// safety copy; it is zero when there was no database to save.
// Close every connection to the database before calling Restore.
func (m *Manager) Restore(ctx context.Context, path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("backup file does not exist: %s", path)
	}
	if err := verifyFile(ctx, path); err != nil {
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var saved Info
	if _, err := os.Stat(m.dbPath); err == nil {
		// Not pruned, so the safety copy cannot evict the snapshot being restored
		if saved, err = m.create(ctx); err != nil {
			return Info{}, fmt.Errorf("failed to back up current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return saved, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logger.Warn("Failed to remove temporary restore file", "path", tmp, "error", rmErr)
		}
		return saved, fmt.Errorf("failed to restore database: %w", err)
	}
	logger.Info("Restored database", "from", path)
	return saved, nil
}

func verifyFile(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	return verify(ctx, db)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
