// Package backup snapshots, restores and prunes the SQLite order database.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	// SQLite driver for VACUUM INTO.
	_ "modernc.org/sqlite"
)

const (
	prefix           = "backup_"
	preRestorePrefix = "pre_restore_"
	stampLayout      = "20060102_150405"
	extDB            = ".db"
	extGzip          = ".db.gz"
)

// Backup describes one snapshot file.
type Backup struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	Compressed bool      `json:"compressed"`
}

var now = func() time.Time { return time.Now().UTC() }

// Create writes a consistent snapshot of the database at dbPath into dir
// using VACUUM INTO, gzipped when compress is set.
func Create(ctx context.Context, dbPath, dir string, compress bool) (*Backup, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, eris.Wrapf(err, "backup: database %s", dbPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "backup: create dir")
	}

	stamp := now().Format(stampLayout)
	name := prefix + stamp + extDB
	if compress {
		name = prefix + stamp + extGzip
	}
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		return nil, eris.Errorf("backup: %s already exists", name)
	}

	snapshot := dest
	if compress {
		snapshot = filepath.Join(dir, "tmp_"+stamp+extDB)
		defer os.Remove(snapshot) //nolint:errcheck
	}
	if err := vacuumInto(ctx, dbPath, snapshot); err != nil {
		return nil, err
	}
	if compress {
		if err := gzipFile(snapshot, dest); err != nil {
			return nil, err
		}
	}

	st, err := os.Stat(dest)
	if err != nil {
		return nil, eris.Wrap(err, "backup: stat snapshot")
	}
	b := &Backup{Name: name, Path: dest, Size: st.Size(), Compressed: compress}
	b.CreatedAt, _ = parseStamp(name)

	zap.L().Info("backup: created",
		zap.String("file", dest),
		zap.String("size", FormatSize(b.Size)),
	)
	return b, nil
}

func vacuumInto(ctx context.Context, dbPath, dest string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return eris.Wrap(err, "backup: open database")
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return eris.Wrap(err, "backup: vacuum into")
	}
	return nil
}

func gzipFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "backup: open snapshot")
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "backup: create archive")
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "backup: close archive")
		}
		if err != nil {
			os.Remove(dest) //nolint:errcheck
		}
	}()

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	if _, err := io.Copy(zw, in); err != nil {
		return eris.Wrap(err, "backup: compress")
	}
	return eris.Wrap(zw.Close(), "backup: finish archive")
}

// List returns the backups in dir, newest first. A missing dir has none.
func List(dir string) ([]Backup, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "backup: read dir")
	}

	var out []Backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isBackupName(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "backup: stat %s", name)
		}
		b := Backup{
			Name:       name,
			Path:       filepath.Join(dir, name),
			Size:       info.Size(),
			Compressed: strings.HasSuffix(name, extGzip),
		}
		if t, ok := parseStamp(name); ok {
			b.CreatedAt = t
		} else {
			b.CreatedAt = info.ModTime().UTC()
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, prefix) && (strings.HasSuffix(name, extDB) || strings.HasSuffix(name, extGzip))
}

func parseStamp(name string) (time.Time, bool) {
	s := strings.TrimPrefix(name, prefix)
	s = strings.TrimSuffix(strings.TrimSuffix(s, ".gz"), extDB)
	t, err := time.Parse(stampLayout, s)
	return t, err == nil
}

// Restore replaces the database at dbPath with the backup named name in
// dir. The current database, including transactions still in its WAL, is
// first snapshotted to dir as pre_restore_<ts>.db; that path is returned
// ("" when there was no database). The service must not be running.
func Restore(ctx context.Context, dbPath, dir, name string) (string, error) {
	if filepath.Base(name) != name || !isBackupName(name) {
		return "", eris.Errorf("backup: invalid backup name %q", name)
	}
	src := filepath.Join(dir, name)
	if _, err := os.Stat(src); err != nil {
		return "", eris.Wrapf(err, "backup: %s", name)
	}

	var pre string
	if _, err := os.Stat(dbPath); err == nil {
		pre = filepath.Join(dir, preRestorePrefix+now().Format(stampLayout)+extDB)
		if err := vacuumInto(ctx, dbPath, pre); err != nil {
			return "", eris.Wrap(err, "backup: pre-restore copy")
		}
	}

	tmp := dbPath + ".restore"
	if err := writeRestored(src, tmp); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return pre, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return pre, eris.Wrapf(err, "backup: remove %s", suffix)
		}
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		return pre, eris.Wrap(err, "backup: replace database")
	}

	zap.L().Info("backup: restored",
		zap.String("from", name),
		zap.String("database", dbPath),
		zap.String("pre_restore", pre),
	)
	return pre, nil
}

func writeRestored(src, dest string) error {
	if !strings.HasSuffix(src, ".gz") {
		return copyFile(src, dest)
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "backup: open archive")
	}
	defer in.Close() //nolint:errcheck

	zr, err := gzip.NewReader(in)
	if err != nil {
		return eris.Wrap(err, "backup: read archive")
	}
	defer zr.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "backup: create database")
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrap(err, "backup: decompress")
	}
	return eris.Wrap(out.Close(), "backup: close database")
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "backup: open")
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "backup: create")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrap(err, "backup: copy")
	}
	return eris.Wrap(out.Close(), "backup: close")
}

// Prune deletes all but the keep newest backups and returns the removed
// names. Pre-restore copies are never pruned.
func Prune(dir string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	backups, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	for _, b := range backups[keep:] {
		if err := os.Remove(b.Path); err != nil {
			return removed, eris.Wrapf(err, "backup: remove %s", b.Name)
		}
		removed = append(removed, b.Name)
	}
	zap.L().Info("backup: pruned", zap.Int("removed", len(removed)), zap.Int("kept", keep))
	return removed, nil
}

// FormatSize renders a byte count for humans.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
