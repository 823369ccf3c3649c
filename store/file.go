package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxRotatingBackups = 10

var (
	// ErrCorrupt is returned when a stored file is malformed and no backup could replace it.
	ErrCorrupt = errors.New("stored value is corrupt")

	errNoValidBackup = errors.New("no valid backup found")
)

// FileKV stores each key as a JSON file in a directory.
// Writes use a temporary file and an atomic rename, and keep a latest backup
// (.bak) plus a rotating set of timestamped backups. A malformed file is moved
// aside on read and replaced with the newest valid backup.
type FileKV struct {
	dir    string
	now    func() time.Time
	logger *log.Logger
}

func NewFileKV(dir string, logger *log.Logger) *FileKV {
	return &FileKV{dir: dir, now: time.Now, logger: logger}
}

// Dir returns the directory holding the files.
func (f *FileKV) Dir() string {
	return f.dir
}

// Path returns the file used for key.
func (f *FileKV) Path(key string) string {
	return filepath.Join(f.dir, fileName(key))
}

func (f *FileKV) Get(key string) ([]byte, error) {
	path := f.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if json.Valid(data) {
		return data, nil
	}
	return f.recover(path)
}

func (f *FileKV) Set(key string, value []byte) error {
	path := f.Path(key)
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.backup(path); err != nil {
		return err
	}
	return writeAtomic(path, value)
}

func (f *FileKV) Close() error {
	return nil
}

func (f *FileKV) recover(path string) ([]byte, error) {
	corruptPath, err := moveCorruptFile(path, f.now())
	if err != nil {
		return nil, fmt.Errorf("move corrupt file: %w", err)
	}

	data, backupPath, err := loadLatestValidBackup(path)
	if err != nil {
		if errors.Is(err, errNoValidBackup) {
			logf(f.logger, "%s is corrupt and has no valid backup (moved to %s)", filepath.Base(path), filepath.Base(corruptPath))
			return nil, fmt.Errorf("%w: %s", ErrCorrupt, filepath.Base(path))
		}
		return nil, fmt.Errorf("inspect backups: %w", err)
	}

	if err := writeAtomic(path, data); err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}
	logf(f.logger, "recovered %s from %s (corrupt file moved to %s)", filepath.Base(path), filepath.Base(backupPath), filepath.Base(corruptPath))
	return data, nil
}

func (f *FileKV) backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !json.Valid(data) {
		return nil
	}

	if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
		return err
	}

	timestamp := f.now().UTC().Format("20060102-150405.000000000")
	rotatingPath := fmt.Sprintf("%s.bak.%s", path, timestamp)
	if err := os.WriteFile(rotatingPath, data, 0o644); err != nil {
		return err
	}

	return pruneRotatingBackups(path)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func pruneRotatingBackups(path string) error {
	files, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return err
	}
	if len(files) <= maxRotatingBackups {
		return nil
	}

	sort.Strings(files)
	for _, old := range files[:len(files)-maxRotatingBackups] {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func loadLatestValidBackup(path string) ([]byte, string, error) {
	candidates := make([]string, 0, maxRotatingBackups+1)
	latest := path + ".bak"
	if _, err := os.Stat(latest); err == nil {
		candidates = append(candidates, latest)
	}
	rotating, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return nil, "", err
	}
	candidates = append(candidates, rotating...)
	if len(candidates) == 0 {
		return nil, "", errNoValidBackup
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iInfo, iErr := os.Stat(candidates[i])
		jInfo, jErr := os.Stat(candidates[j])
		if iErr != nil || jErr != nil {
			return candidates[i] > candidates[j]
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil || !json.Valid(data) {
			continue
		}
		return data, candidate, nil
	}

	return nil, "", errNoValidBackup
}

func moveCorruptFile(path string, now time.Time) (string, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	corruptName := fmt.Sprintf("%s.corrupt-%s%s", name, now.UTC().Format("20060102-150405"), ext)
	corruptPath := filepath.Join(filepath.Dir(path), corruptName)
	if err := os.Rename(path, corruptPath); err != nil {
		return "", err
	}
	return corruptPath, nil
}

// fileName maps a key such as "todo:list:v1" to "todo_list_v1.json".
func fileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".json"
}
