// Package backup writes and restores xz-compressed copies of the sqlite
// database.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

var ErrExists = errors.New("destination already exists")

var sqliteHeader = []byte("SQLite format 3\x00")

// DefaultName is the archive name for a database backed up at now, e.g.
// branchdesk-20261016-150405.db.xz.
func DefaultName(dbPath string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	if base == "" || base == "." {
		base = "branchdesk"
	}
	return fmt.Sprintf("%s-%s.db.xz", base, now.UTC().Format("20060102-150405"))
}

// Create compresses src into dest and returns the number of database bytes
// archived. A live sqlite database is snapshotted with the sqlite3 tool's
// .backup command when the tool is installed.
func Create(ctx context.Context, src, dest string) (int64, error) {
	snapshot, cleanup, err := snapshotOf(ctx, src)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	in, err := os.Open(snapshot)
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer in.Close()

	var n int64
	err = writeAtomic(dest, false, func(w io.Writer) error {
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if n, err = io.Copy(xw, in); err != nil {
			return err
		}
		return xw.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("write archive: %w", err)
	}
	return n, nil
}

// Restore decompresses the archive at src over dest. An existing dest is
// only replaced when overwrite is set, and a damaged archive never touches
// it.
func Restore(src, dest string, overwrite bool) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	xr, err := xz.NewReader(in)
	if err != nil {
		return 0, fmt.Errorf("read archive %s: %w", src, err)
	}
	var n int64
	err = writeAtomic(dest, overwrite, func(w io.Writer) error {
		n, err = io.Copy(w, xr)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("restore %s: %w", dest, err)
	}
	return n, nil
}

func snapshotOf(ctx context.Context, src string) (string, func(), error) {
	noop := func() {}
	head := make([]byte, len(sqliteHeader))
	f, err := os.Open(src)
	if err != nil {
		return "", noop, fmt.Errorf("open database: %w", err)
	}
	_, readErr := io.ReadFull(f, head)
	f.Close()
	if readErr != nil || !bytes.Equal(head, sqliteHeader) {
		return src, noop, nil
	}
	tool, err := exec.LookPath("sqlite3")
	if err != nil {
		return src, noop, nil
	}

	dir, err := os.MkdirTemp("", "branchdesk-backup-")
	if err != nil {
		return "", noop, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	target := filepath.Join(dir, "snapshot.db")
	cmd := exec.CommandContext(ctx, tool, src, ".backup '"+strings.ReplaceAll(target, "'", "''")+"'")
	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("sqlite3 .backup: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return target, cleanup, nil
}

// writeAtomic fills a temp file next to dest and renames it into place.
func writeAtomic(dest string, overwrite bool, fill func(io.Writer) error) error {
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s: %w", dest, ErrExists)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
