package account

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"igengage/pkg/logger"
	"igengage/pkg/proxy"
)

// Store persists the username → Record mapping to a flat JSON file with a
// single backup generation. All mutating calls save synchronously; the
// access pattern is one action at a time, seconds apart, so there is no
// batching. A single mutex serializes writers (the dispatch loop and any
// operator command running concurrently with it).
type Store struct {
	path       string
	backupPath string
	resetPath  string

	mu                sync.Mutex
	records           map[string]*Record
	defaultDailyLimit int
	maxErrors         int
	autoPause         bool
	proxies           *proxy.Pool
	passwordSource    func(username string) (string, bool)
	logger            logger.Logger
}

// NewStore creates a store backed by the given file and loads existing state.
// Load failures degrade to the backup and then to an empty store; they are
// logged, never returned.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Store{
		path:       path,
		backupPath: path + ".backup",
		resetPath:  path + ".reset",
		records:    make(map[string]*Record),
		maxErrors:  MaxConsecutiveErrors,
		autoPause:  true,
		logger:     log,
	}
	s.load()
	return s
}

// load reads the primary file, falling back to the backup, then to empty
func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadFile(s.path) {
		return
	}
	if s.loadFile(s.backupPath) {
		s.logger.WarnWithFields("account store restored from backup", map[string]interface{}{
			"path":   s.path,
			"backup": s.backupPath,
		})
		return
	}
	s.records = make(map[string]*Record)
}

// loadFile attempts to read one store file; returns true on success
func (s *Store) loadFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", path).Warn("failed to read account store")
		}
		return false
	}

	records := make(map[string]*Record)
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("failed to parse account store")
		return false
	}

	for username, record := range records {
		record.Username = username
		if record.DailyLimit <= 0 {
			record.DailyLimit = DefaultDailyLimit
		}
		if record.Status == "" {
			record.Status = StatusActive
		}
	}
	s.records = records
	return true
}

// save persists the store. The existing primary file is first copied to the
// fixed backup path (one generation), then the primary is replaced
// atomically. Callers must hold the mutex.
func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.logger.WithError(err).Error("failed to create account store directory")
			return err
		}
	}

	if err := copyFile(s.path, s.backupPath); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).Warn("failed to write account store backup")
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		s.logger.WithError(err).Error("failed to encode account store")
		return err
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		s.logger.WithError(err).Error("failed to write account store")
		return err
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		s.logger.WithError(err).Error("failed to replace account store")
		return err
	}
	return nil
}

// copyFile copies src to dst, creating or truncating dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// SetDefaultDailyLimit overrides the daily limit applied to newly added
// accounts. Existing records keep the limit they were created with.
func (s *Store) SetDefaultDailyLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultDailyLimit = limit
}

// SetErrorPolicy overrides the consecutive-error threshold that trips the
// breaker. Thresholds below one keep the current value; pause false
// disables the breaker so failures accumulate without parking the account.
func (s *Store) SetErrorPolicy(maxErrors int, pause bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxErrors > 0 {
		s.maxErrors = maxErrors
	}
	s.autoPause = pause
}

// SetProxyPool registers a rotation pool; accounts added without a proxy
// draw the next one from it.
func (s *Store) SetProxyPool(pool *proxy.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proxies = pool
}

// SetPasswordSource registers a fallback consulted when a record is read
// with a blank password, so credentials can live outside the store file.
// Looked-up passwords fill the returned copy only; they are never written
// back to disk.
func (s *Store) SetPasswordSource(fn func(username string) (string, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwordSource = fn
}

// fillPassword resolves a blank password on a record copy. Callers must
// hold the mutex.
func (s *Store) fillPassword(record *Record) *Record {
	if record.Password == "" && s.passwordSource != nil {
		if password, ok := s.passwordSource(record.Username); ok {
			record.Password = password
		}
	}
	return record
}

// Add inserts or overwrites a record with default quotas and persists
func (s *Store) Add(username, password, proxyAddr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if proxyAddr == "" && s.proxies != nil {
		proxyAddr = s.proxies.Next()
	}

	record := NewRecord(username, password, proxyAddr)
	if s.defaultDailyLimit > 0 {
		record.DailyLimit = s.defaultDailyLimit
	}
	s.records[username] = record
	return s.save()
}

// Remove deletes the record if present and persists. It reports whether a
// record was removed.
func (s *Store) Remove(username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[username]; !ok {
		return false, nil
	}
	delete(s.records, username)
	return true, s.save()
}

// Get returns a copy of the record for the username
func (s *Store) Get(username string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[username]
	if !ok {
		return nil, false
	}
	return s.fillPassword(record.Clone()), true
}

// Usernames returns all managed usernames in lexical order
func (s *Store) Usernames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.records))
	for username := range s.records {
		names = append(names, username)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every record keyed by username
func (s *Store) All() map[string]*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*Record, len(s.records))
	for username, record := range s.records {
		out[username] = s.fillPassword(record.Clone())
	}
	return out
}

// Len returns the number of managed accounts
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// update applies fn to the record under the lock and persists. Missing
// usernames are ignored, matching the reference behavior.
func (s *Store) update(username string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[username]
	if !ok {
		return nil
	}
	fn(record)
	return s.save()
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Added   int
	Skipped int
}

// Import reads account lines in the form username:password[:proxy].
// Blank lines and #-prefixed lines are ignored; lines with an invalid
// username are skipped and an invalid proxy is dropped from an otherwise
// valid line.
func (s *Store) Import(r io.Reader) (ImportResult, error) {
	var result ImportResult
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) < 2 {
			s.logger.WarnWithFields("skipping malformed account line", map[string]interface{}{
				"line": lineNum,
			})
			result.Skipped++
			continue
		}

		username := strings.TrimSpace(parts[0])
		password := strings.TrimSpace(parts[1])
		proxyAddr := ""
		if len(parts) > 2 {
			proxyAddr = strings.TrimSpace(strings.Join(parts[2:], ":"))
		}

		if !ValidUsername(username) {
			s.logger.WarnWithFields("skipping account with invalid username", map[string]interface{}{
				"line":     lineNum,
				"username": username,
			})
			result.Skipped++
			continue
		}
		if proxyAddr != "" && !proxy.Valid(proxyAddr) {
			s.logger.WarnWithFields("dropping invalid proxy for account", map[string]interface{}{
				"line":     lineNum,
				"username": username,
				"proxy":    proxyAddr,
			})
			proxyAddr = ""
		}

		if err := s.Add(username, password, proxyAddr); err != nil {
			return result, err
		}
		result.Added++
	}

	return result, scanner.Err()
}

// ImportFile imports accounts from a file path
func (s *Store) ImportFile(path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()
	return s.Import(f)
}

// ResetDailyQuotas zeroes every account's daily counter and clears tripped
// breakers. Invoked by an external scheduler at a day boundary; the store
// does not self-schedule it.
func (s *Store) ResetDailyQuotas() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		record.ActionsCount = 0
		if record.Status == StatusErrorLimit {
			record.Status = StatusActive
			record.ErrorsCount = 0
		}
	}

	if err := os.WriteFile(s.resetPath, []byte(time.Now().Format("2006-01-02")), 0644); err != nil {
		s.logger.WithError(err).Warn("failed to record daily reset date")
	}

	return s.save()
}

// NeedsDailyReset reports whether the last recorded reset happened before
// today (local time)
func (s *Store) NeedsDailyReset(now time.Time) bool {
	data, err := os.ReadFile(s.resetPath)
	if err != nil {
		return true
	}
	last, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(string(data)), now.Location())
	if err != nil {
		return true
	}
	return last.Format("2006-01-02") != now.Format("2006-01-02")
}
