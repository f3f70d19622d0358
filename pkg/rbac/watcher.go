package rbac

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/elearnhq/elearn/pkg/observability"
)

// PolicyWatcher reloads the policy file into a Checker whenever it changes.
// A file that fails to parse is logged and the previous policy stays active.
type PolicyWatcher struct {
	path    string
	checker *Checker
	logger  *observability.Logger
	watcher *fsnotify.Watcher
	reloads chan struct{}
}

// NewPolicyWatcher watches the directory containing path so that editors
// which replace the file atomically are still observed.
func NewPolicyWatcher(path string, checker *Checker, logger *observability.Logger) (*PolicyWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve policy path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &PolicyWatcher{
		path:    abs,
		checker: checker,
		logger:  logger,
		watcher: w,
		reloads: make(chan struct{}, 1),
	}, nil
}

// Reloaded receives a value after every successful reload.
func (pw *PolicyWatcher) Reloaded() <-chan struct{} {
	return pw.reloads
}

// Run processes file events until ctx is done.
func (pw *PolicyWatcher) Run(ctx context.Context) {
	defer observability.RecoverPanic(pw.logger, "policy watcher")
	defer pw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pw.reload()
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.WithError(err).Warn("policy watcher error")
		}
	}
}

func (pw *PolicyWatcher) reload() {
	policy, err := LoadPolicy(pw.path)
	if err != nil {
		pw.logger.WithError(err).WithField("path", pw.path).Warn("keeping previous policy")
		return
	}
	pw.checker.SetPolicy(policy)
	pw.logger.WithField("path", pw.path).Info("policy reloaded")

	select {
	case pw.reloads <- struct{}{}:
	default:
	}
}
