package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
	"golang.org/x/sys/unix"
)

const changeBuffer = 64

// FileStore persists all keys as one JSON object on disk. Writes replace the
// file atomically under an advisory lock on path+".lock", so processes
// sharing the file never drop each other's writes. Lists are stored as a JSON
// array of strings under their key. Watch reports keys changed by other
// processes sharing the same file.
type FileStore struct {
	path   string
	logger *logging.Logger

	mu       sync.Mutex
	snapshot map[string]string
}

// NewFileStore opens (or lazily creates) the store file at path.
func NewFileStore(path string, logger *logging.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("localstore: file path required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("localstore: create dir: %w", err)
	}
	fs := &FileStore{path: path, logger: logger}
	snap, err := fs.read()
	if err != nil {
		return nil, err
	}
	fs.snapshot = snap
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	return f.update(key, func(string) (string, error) {
		return value, nil
	})
}

func (f *FileStore) Append(_ context.Context, key, value string) error {
	return f.update(key, func(current string) (string, error) {
		list, err := decodeList(key, current)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(append(list, value))
		if err != nil {
			return "", fmt.Errorf("localstore: encode list %s: %w", key, err)
		}
		return string(data), nil
	})
}

func (f *FileStore) List(_ context.Context, key string) ([]string, error) {
	values, err := f.read()
	if err != nil {
		return nil, err
	}
	return decodeList(key, values[key])
}

// update rewrites one key against the file on disk while holding both the
// in-process mutex and the cross-process lock. Only that key is recorded in
// the snapshot; other keys merged from disk are still reported by Watch.
func (f *FileStore) update(key string, apply func(current string) (string, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	unlock, err := f.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	current, err := f.read()
	if err != nil {
		return err
	}
	next, err := apply(current[key])
	if err != nil {
		return err
	}
	current[key] = next
	if err := f.write(current); err != nil {
		return err
	}
	f.snapshot[key] = next
	return nil
}

func (f *FileStore) lockFile() (func(), error) {
	lf, err := os.OpenFile(f.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("localstore: open lock: %w", err)
	}
	for {
		err = unix.Flock(int(lf.Fd()), unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		lf.Close()
		return nil, fmt.Errorf("localstore: lock %s: %w", f.path, err)
	}
	return func() {
		_ = unix.Flock(int(lf.Fd()), unix.LOCK_UN)
		lf.Close()
	}, nil
}

func decodeList(key, raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("localstore: decode list %s: %w", key, err)
	}
	return list, nil
}

// Watch emits a Change for every key whose value differs after the file is
// rewritten by someone else. The channel closes when ctx is done.
func (f *FileStore) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("localstore: new watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the inode.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("localstore: watch dir: %w", err)
	}

	out := make(chan Change, changeBuffer)
	go func() {
		defer close(out)
		defer watcher.Close()
		name := filepath.Base(f.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				for _, key := range f.reload() {
					select {
					case out <- Change{Key: key}:
					case <-ctx.Done():
						return
					default:
						f.logger.Warn("localstore change dropped", "key", key)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("localstore watcher error", "error", err)
			}
		}
	}()
	return out, nil
}

// reload re-reads the file and returns the keys whose values changed.
func (f *FileStore) reload() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := f.read()
	if err != nil {
		f.logger.Warn("localstore reload failed", "error", err, "path", f.path)
		return nil
	}
	var changed []string
	for k, v := range next {
		if old, ok := f.snapshot[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range f.snapshot {
		if _, ok := next[k]; !ok {
			changed = append(changed, k)
		}
	}
	f.snapshot = next
	return changed
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", f.path, err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("localstore: decode %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileStore) write(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("localstore: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".localstore-*")
	if err != nil {
		return fmt.Errorf("localstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("localstore: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("localstore: replace %s: %w", f.path, err)
	}
	return nil
}
