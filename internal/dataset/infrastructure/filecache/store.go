package filecache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/table"
)

// Store keeps one CSV file per dataset under a directory.
type Store struct {
	dir string
}

// NewStore constructs a store, creating dir when missing.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filecache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filecache: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the cache file of a dataset.
func (s *Store) Path(d dataset.Descriptor) string {
	return filepath.Join(s.dir, d.CacheFile)
}

// ModTime returns the last write time of the cache file. ok is false when
// no cache file exists.
func (s *Store) ModTime(d dataset.Descriptor) (time.Time, bool, error) {
	info, err := os.Stat(s.Path(d))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("filecache: stat %s: %w", d.CacheFile, err)
	}
	return info.ModTime(), true, nil
}

// Read loads the cached table. ok is false when no cache file exists.
// Cells are typed by the descriptor schema; columns outside it are inferred.
func (s *Store) Read(d dataset.Descriptor) (*table.Table, bool, error) {
	f, err := os.Open(s.Path(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("filecache: open %s: %w", d.CacheFile, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return table.Empty(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("filecache: read %s header: %w", d.CacheFile, err)
	}
	kinds := make([]table.Kind, len(header))
	for i, h := range header {
		kinds[i] = d.KindOf(h)
	}

	b := table.NewBuilder(header...)
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, false, fmt.Errorf("filecache: read %s line %d: %w", d.CacheFile, line, err)
		}
		if len(record) != len(header) {
			return nil, false, fmt.Errorf("filecache: %s line %d: %w", d.CacheFile, line, table.ErrRowWidth)
		}
		row := make([]table.Value, len(record))
		for i, cell := range record {
			if kinds[i] == table.KindNull {
				row[i] = table.Infer(cell)
				continue
			}
			v, err := table.Parse(cell, kinds[i])
			if err != nil {
				return nil, false, fmt.Errorf("filecache: %s line %d column %q: %w", d.CacheFile, line, header[i], err)
			}
			row[i] = v
		}
		b.Add(row...)
	}
	return b.Table(), true, nil
}

// Write replaces the cache file with t. The file is written beside the
// target and renamed into place.
func (s *Store) Write(d dataset.Descriptor, t *table.Table) error {
	tmp, err := os.CreateTemp(s.dir, ".fmr-*.csv")
	if err != nil {
		return fmt.Errorf("filecache: create temp for %s: %w", d.CacheFile, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns()); err != nil {
		tmp.Close()
		return fmt.Errorf("filecache: write %s: %w", d.CacheFile, err)
	}
	record := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Values(i) {
			record[j] = v.Text()
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("filecache: write %s: %w", d.CacheFile, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("filecache: flush %s: %w", d.CacheFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filecache: close %s: %w", d.CacheFile, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(d)); err != nil {
		return fmt.Errorf("filecache: replace %s: %w", d.CacheFile, err)
	}
	return nil
}
