package refresh

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitk-sync/internal/debounce"
)

// Watcher calls onChange, debounced, when the git directory of a root changes.
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Watch starts watching root. A burst of changes calls onChange once delay
// after the last change, and at least every maxWait while it lasts.
func Watch(root string, delay, maxWait time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	paths, err := watchPaths(root)
	if err != nil {
		return nil, errors.Join(err, fsw.Close())
	}
	for _, path := range paths {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			return nil, fmt.Errorf("watch %s: %w", path, errors.Join(err, fsw.Close()))
		}
	}
	w := &Watcher{
		root:     root,
		fs:       fsw,
		debounce: debounce.NewWithMaxWait(delay, maxWait, onChange),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
		<-w.done
		w.debounce.Stop()
	})
	return w.closeErr
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				w.addIfDir(ev.Name)
			}
			slog.Debug("fsnotify event",
				slog.String("root", w.root),
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.debounce.Trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.String("root", w.root), slog.Any("error", err))
		}
	}
}

// addIfDir follows directories created under refs/, e.g. for a new remote.
func (w *Watcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fs.Add(path); err != nil {
		slog.Debug("watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

// watchPaths returns the git directory and every directory under its refs/.
// Without a .git directory (worktrees, bare layouts) the root itself is
// watched.
func watchPaths(root string) ([]string, error) {
	if root == "" {
		return nil, errors.New("watch: empty root")
	}
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return []string{root}, nil
	}
	paths := []string{gitDir}
	refsDir := filepath.Join(gitDir, "refs")
	err = filepath.WalkDir(refsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", refsDir, err)
	}
	return paths, nil
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
