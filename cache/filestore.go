package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactExt is the file extension of published artifacts.
const ArtifactExt = ".zip"

const tempSuffix = ".tmp"

// FileStore keeps one archive per key in a single directory:
//
//	{dir}/
//	  {key}.zip            published artifact
//	  .{key}.*.tmp         artifact being written (never visible)
type FileStore struct {
	dir string
}

// NewFileStore creates the store directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("cache: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the canonical location of the artifact for key, whether or
// not it exists yet.
func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.dir, string(key)+ArtifactExt)
}

// Exists reports whether a published artifact exists for key.
func (s *FileStore) Exists(key Key) bool {
	_, ok := s.Locate(key)
	return ok
}

// Locate returns the artifact path for key, or ("", false) if absent.
func (s *FileStore) Locate(key Key) (string, bool) {
	if ValidateKey(key) != nil {
		return "", false
	}
	path := s.Path(key)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Create opens a temporary file next to the final location. Because both
// live in the same directory the publish in Commit is a same-filesystem
// link or rename.
func (s *FileStore) Create(key Key) (Pending, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(s.dir, "."+string(key)+".*"+tempSuffix)
	if err != nil {
		return nil, fmt.Errorf("cache: creating temporary artifact: %w", err)
	}
	return &pendingFile{file: f, final: s.Path(key)}, nil
}

// Delete removes the artifact for key. Idempotent - no error on miss.
func (s *FileStore) Delete(key Key) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: deleting artifact: %w", err)
	}
	return nil
}

// Entries lists the published artifacts.
func (s *FileStore) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cache: reading store directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || !strings.HasSuffix(name, ArtifactExt) {
			continue
		}
		key := Key(strings.TrimSuffix(name, ArtifactExt))
		if ValidateKey(key) != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Key:     key,
			Path:    filepath.Join(s.dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Prune deletes the artifacts selected by evictor and any temporary files
// older than staleAfter left behind by crashed writers. It returns the
// evicted keys.
func (s *FileStore) Prune(evictor Evictor, now time.Time, staleAfter time.Duration) ([]Key, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}

	var errs []error
	evicted := make([]Key, 0)
	for _, key := range evictor.Evict(entries, now) {
		if err := s.Delete(key); err != nil {
			errs = append(errs, err)
			continue
		}
		evicted = append(evicted, key)
	}

	if staleAfter > 0 {
		if err := s.removeStaleTemps(now.Add(-staleAfter)); err != nil {
			errs = append(errs, err)
		}
	}

	return evicted, errors.Join(errs...)
}

func (s *FileStore) removeStaleTemps(cutoff time.Time) error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("cache: reading store directory: %w", err)
	}
	var errs []error
	for _, de := range dirEntries {
		name := de.Name()
		if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, tempSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pendingFile is an artifact being written to a temporary file.
type pendingFile struct {
	file  *os.File
	final string
	done  bool
}

func (p *pendingFile) Write(b []byte) (int, error) {
	if p.done {
		return 0, ErrCommitted
	}
	return p.file.Write(b)
}

// Commit publishes with a hard link so an existing artifact is never
// replaced; filesystems without hard links fall back to rename.
func (p *pendingFile) Commit() (string, error) {
	if p.done {
		return "", ErrCommitted
	}
	p.done = true
	tmp := p.file.Name()
	defer os.Remove(tmp)

	if err := p.file.Sync(); err != nil {
		p.file.Close()
		return "", fmt.Errorf("cache: syncing artifact: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return "", fmt.Errorf("cache: closing artifact: %w", err)
	}

	err := os.Link(tmp, p.final)
	switch {
	case err == nil, errors.Is(err, fs.ErrExist):
		return p.final, nil
	default:
		if err := os.Rename(tmp, p.final); err != nil {
			return "", fmt.Errorf("cache: publishing artifact: %w", err)
		}
		return p.final, nil
	}
}

func (p *pendingFile) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	closeErr := p.file.Close()
	if err := os.Remove(p.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: removing temporary artifact: %w", err)
	}
	return closeErr
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
