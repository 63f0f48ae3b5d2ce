package target

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"igengage/pkg/account"
	"igengage/pkg/logger"
)

// List is an ordered, deduplicated set of target usernames persisted as a
// plain text file, one username per line.
type List struct {
	path string

	mu      sync.Mutex
	targets []string
	seen    map[string]bool
	logger  logger.Logger
}

// NewList creates a list backed by the given file and loads existing targets
func NewList(path string, log logger.Logger) *List {
	if log == nil {
		log = logger.GetLogger()
	}
	l := &List{
		path:   path,
		seen:   make(map[string]bool),
		logger: log,
	}
	l.load()
	return l
}

func (l *List) load() {
	f, err := os.Open(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.WithError(err).WithField("path", l.path).Warn("failed to read target list")
		}
		return
	}
	defer f.Close()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.merge(f, false)
}

// merge reads usernames from r into the list. Callers must hold the mutex.
// Returns the number of newly added targets.
func (l *List) merge(r io.Reader, validate bool) int {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		if validate && !account.ValidUsername(name) {
			l.logger.WarnWithFields("skipping invalid target username", map[string]interface{}{
				"target": name,
			})
			continue
		}
		if l.seen[name] {
			continue
		}
		l.seen[name] = true
		l.targets = append(l.targets, name)
		added++
	}
	return added
}

// Add appends a single target, preserving order and uniqueness
func (l *List) Add(username string) error {
	if !account.ValidUsername(username) {
		return fmt.Errorf("invalid target username: %s", username)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[username] {
		return nil
	}
	l.seen[username] = true
	l.targets = append(l.targets, username)
	return l.save()
}

// Import reads targets from r (one per line, # comments ignored) and persists
func (l *List) Import(r io.Reader) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := l.merge(r, true)
	if added == 0 {
		return 0, nil
	}
	return added, l.save()
}

// ImportFile imports targets from a file path
func (l *List) ImportFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()
	return l.Import(f)
}

// Remove drops a target if present
func (l *List) Remove(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.seen[username] {
		return nil
	}
	delete(l.seen, username)
	for i, name := range l.targets {
		if name == username {
			l.targets = append(l.targets[:i], l.targets[i+1:]...)
			break
		}
	}
	return l.save()
}

// Targets returns the targets in list order
func (l *List) Targets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.targets))
	copy(out, l.targets)
	return out
}

// Len returns the number of targets
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.targets)
}

// save persists the list. Callers must hold the mutex.
func (l *List) save() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			l.logger.WithError(err).Error("failed to create target list directory")
			return err
		}
	}

	var b strings.Builder
	for _, name := range l.targets {
		b.WriteString(name)
		b.WriteByte('\n')
	}

	tempPath := l.path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(b.String()), 0644); err != nil {
		l.logger.WithError(err).Error("failed to write target list")
		return err
	}
	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		l.logger.WithError(err).Error("failed to replace target list")
		return err
	}
	return nil
}
