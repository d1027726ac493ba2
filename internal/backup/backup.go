// Package backup locates and reads local backups of the complete dataset.
//
// Backups are plain JSON or gzip-compressed JSON files in a single directory.
// Locating a backup is read-only; importing one into the live dataset is left
// to whoever receives the bytes.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/datainit/internal/foundation"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// DefaultMaxSize caps how many (decompressed) bytes LoadBackup returns.
const DefaultMaxSize int64 = 256 << 20

// Meta describes a located backup.
type Meta struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	Compressed bool      `json:"compressed"`
}

// Candidate is a located backup with its content.
type Candidate struct {
	Meta
	Content []byte
}

// FSLocator finds backups in Dir. A disabled locator reports backups as
// unsupported, which is how platforms without local backups are modeled.
type FSLocator struct {
	Dir     string
	Enabled bool
	MaxSize int64
}

// NewFSLocator returns an enabled locator over dir.
func NewFSLocator(dir string) *FSLocator {
	return &FSLocator{Dir: dir, Enabled: dir != "", MaxSize: DefaultMaxSize}
}

// Supported reports whether local backups exist on this installation.
func (l *FSLocator) Supported() bool {
	return l != nil && l.Enabled && l.Dir != ""
}

// IsBackupAvailable returns the newest backup in Dir, or None when there is
// none. A missing directory is not an error.
func (l *FSLocator) IsBackupAvailable(ctx context.Context) (foundation.Option[Meta], error) {
	if !l.Supported() {
		return foundation.None[Meta](), nil
	}
	if err := ctx.Err(); err != nil {
		return foundation.None[Meta](), err
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return foundation.None[Meta](), nil
		}
		return foundation.None[Meta](), errors.WrapError(err, errors.CategoryBackup, "cannot list backup directory").
			Warning().
			WithContext("dir", l.Dir).
			Build()
	}

	var newest *Meta
	for _, entry := range entries {
		if entry.IsDir() || !isBackupName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		m := Meta{
			Path:       filepath.Join(l.Dir, entry.Name()),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			Compressed: strings.HasSuffix(entry.Name(), ".gz"),
		}
		if newest == nil || m.ModTime.After(newest.ModTime) ||
			(m.ModTime.Equal(newest.ModTime) && m.Path > newest.Path) {
			newest = &m
		}
	}
	if newest == nil {
		return foundation.None[Meta](), nil
	}
	return foundation.Some(*newest), nil
}

// LoadBackup reads the backup at path, decompressing gzip files.
func (l *FSLocator) LoadBackup(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryBackup, "cannot open backup").
			Warning().
			WithContext("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryBackup, "backup is not valid gzip").
				Warning().
				WithContext("path", path).
				Build()
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	limit := l.MaxSize
	if limit <= 0 {
		limit = DefaultMaxSize
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryBackup, "cannot read backup").
			Warning().
			WithContext("path", path).
			Build()
	}
	if n > limit {
		return nil, errors.BackupError(fmt.Sprintf("backup exceeds %d bytes", limit)).
			WithContext("path", path).
			Build()
	}
	return buf.Bytes(), nil
}

func isBackupName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}
