package stats

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"igengage/pkg/automation"
	"igengage/pkg/logger"
)

// Store records every attempted engagement action in SQLite and answers
// reporting queries over the history. It implements automation.ActionSink.
type Store struct {
	db     *sqlx.DB
	logger logger.Logger
}

var _ automation.ActionSink = (*Store)(nil)

// Open opens (or creates) the stats database under dataDir
func Open(dataDir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	db, err := openDB(dataDir)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// actionRow maps the actions table
type actionRow struct {
	ID          int64  `db:"id"`
	AccountName string `db:"account_name"`
	TargetName  string `db:"target_name"`
	ActionType  string `db:"action_type"`
	Success     int    `db:"success"`
	Details     string `db:"details"`
	CreatedAt   int64  `db:"created_at"`
}

// LogAction records one attempted action
func (s *Store) LogAction(accountName, targetName, actionType string, success bool, details string) error {
	query := `
		INSERT INTO actions (account_name, target_name, action_type, success, details, created_at)
		VALUES (:account_name, :target_name, :action_type, :success, :details, :created_at)
	`

	successFlag := 0
	if success {
		successFlag = 1
	}

	_, err := s.db.NamedExecContext(context.Background(), query, map[string]interface{}{
		"account_name": accountName,
		"target_name":  targetName,
		"action_type":  actionType,
		"success":      successFlag,
		"details":      details,
		"created_at":   time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// SyncAccount upserts the latest known state of one acting account
func (s *Store) SyncAccount(username, status string, totalActions int) error {
	query := `
		INSERT INTO accounts (username, status, total_actions, updated_at)
		VALUES (:username, :status, :total_actions, :updated_at)
		ON CONFLICT(username) DO UPDATE SET
			status = excluded.status,
			total_actions = excluded.total_actions,
			updated_at = excluded.updated_at
	`

	_, err := s.db.NamedExecContext(context.Background(), query, map[string]interface{}{
		"username":      username,
		"status":        status,
		"total_actions": totalActions,
		"updated_at":    time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// RecordSession persists a completed run summary
func (s *Store) RecordSession(summary *automation.Summary) error {
	query := `
		INSERT INTO sessions (started_at, finished_at, total_actions, successful_actions, skipped_accounts)
		VALUES (:started_at, :finished_at, :total, :successful, :skipped)
	`

	_, err := s.db.NamedExecContext(context.Background(), query, map[string]interface{}{
		"started_at": summary.StartedAt.Unix(),
		"finished_at": summary.FinishedAt.Unix(),
		"total":      summary.Total,
		"successful": summary.Successful,
		"skipped":    summary.SkippedAccounts,
	})
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Summary aggregates the full action history
type Summary struct {
	TotalActions      int64   `json:"total_actions"`
	SuccessfulActions int64   `json:"successful_actions"`
	FailedActions     int64   `json:"failed_actions"`
	SuccessRate       float64 `json:"success_rate"`
	AccountsSeen      int64   `json:"accounts_seen"`
	TargetsSeen       int64   `json:"targets_seen"`
	ActiveAccounts    int64   `json:"active_accounts"`
	TodayActions      int64   `json:"today_actions"`
}

// AccountStats aggregates history per acting account
type AccountStats struct {
	Account    string  `json:"account" db:"account_name"`
	Total      int64   `json:"total" db:"total"`
	Successful int64   `json:"successful" db:"successful"`
	Rate       float64 `json:"success_rate" db:"-"`
}

// KindStats aggregates history per action type
type KindStats struct {
	ActionType string  `json:"action_type" db:"action_type"`
	Total      int64   `json:"total" db:"total"`
	Successful int64   `json:"successful" db:"successful"`
	Rate       float64 `json:"success_rate" db:"-"`
}

// DayStats aggregates one calendar day
type DayStats struct {
	Day        string `json:"day" db:"day"`
	Total      int64  `json:"total" db:"total"`
	Successful int64  `json:"successful" db:"successful"`
}

// Overall returns the full-history summary
func (s *Store) Overall(ctx context.Context) (*Summary, error) {
	var row struct {
		Total      int64 `db:"total"`
		Successful int64 `db:"successful"`
		Accounts   int64 `db:"accounts"`
		Targets    int64 `db:"targets"`
	}
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(success), 0) AS successful,
		       COUNT(DISTINCT account_name) AS accounts,
		       COUNT(DISTINCT target_name) AS targets
		FROM actions
	`
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	summary := &Summary{
		TotalActions:      row.Total,
		SuccessfulActions: row.Successful,
		FailedActions:     row.Total - row.Successful,
		AccountsSeen:      row.Accounts,
		TargetsSeen:       row.Targets,
	}
	if row.Total > 0 {
		summary.SuccessRate = float64(row.Successful) / float64(row.Total)
	}

	if err := s.db.GetContext(ctx, &summary.ActiveAccounts,
		`SELECT COUNT(*) FROM accounts WHERE status = 'active'`); err != nil {
		return nil, fmt.Errorf("query active accounts: %w", err)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.GetContext(ctx, &summary.TodayActions,
		`SELECT COUNT(*) FROM actions WHERE created_at >= ?`, midnight.Unix()); err != nil {
		return nil, fmt.Errorf("query today's actions: %w", err)
	}

	return summary, nil
}

// ByAccount returns per-account aggregates, busiest first. When account is
// non-empty only that account is reported.
func (s *Store) ByAccount(ctx context.Context, account string) ([]AccountStats, error) {
	query := `
		SELECT account_name,
		       COUNT(*) AS total,
		       COALESCE(SUM(success), 0) AS successful
		FROM actions
	`
	args := []interface{}{}
	if account != "" {
		query += ` WHERE account_name = ?`
		args = append(args, account)
	}
	query += ` GROUP BY account_name ORDER BY total DESC`

	var rows []AccountStats
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query account stats: %w", err)
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].Rate = float64(rows[i].Successful) / float64(rows[i].Total)
		}
	}
	return rows, nil
}

// ByKind returns per-action-type aggregates
func (s *Store) ByKind(ctx context.Context) ([]KindStats, error) {
	query := `
		SELECT action_type,
		       COUNT(*) AS total,
		       COALESCE(SUM(success), 0) AS successful
		FROM actions
		GROUP BY action_type
		ORDER BY total DESC
	`

	var rows []KindStats
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query kind stats: %w", err)
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].Rate = float64(rows[i].Successful) / float64(rows[i].Total)
		}
	}
	return rows, nil
}

// ByDay returns daily aggregates for the most recent days
func (s *Store) ByDay(ctx context.Context, days int) ([]DayStats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days).Unix()

	query := `
		SELECT date(created_at, 'unixepoch', 'localtime') AS day,
		       COUNT(*) AS total,
		       COALESCE(SUM(success), 0) AS successful
		FROM actions
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day DESC
	`

	var rows []DayStats
	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	return rows, nil
}

// Report bundles every aggregate for exporting
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Overall     *Summary       `json:"overall"`
	ByAccount   []AccountStats `json:"by_account"`
	ByKind      []KindStats    `json:"by_kind"`
	ByDay       []DayStats     `json:"by_day"`
}

// BuildReport assembles a full report
func (s *Store) BuildReport(ctx context.Context, days int) (*Report, error) {
	overall, err := s.Overall(ctx)
	if err != nil {
		return nil, err
	}
	byAccount, err := s.ByAccount(ctx, "")
	if err != nil {
		return nil, err
	}
	byKind, err := s.ByKind(ctx)
	if err != nil {
		return nil, err
	}
	byDay, err := s.ByDay(ctx, days)
	if err != nil {
		return nil, err
	}
	return &Report{
		GeneratedAt: time.Now(),
		Overall:     overall,
		ByAccount:   byAccount,
		ByKind:      byKind,
		ByDay:       byDay,
	}, nil
}

// ExportJSON writes the report as indented JSON
func (r *Report) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ExportCSV writes the per-account breakdown as CSV
func (r *Report) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"account", "total", "successful", "success_rate"}); err != nil {
		return err
	}
	for _, row := range r.ByAccount {
		record := []string{
			row.Account,
			strconv.FormatInt(row.Total, 10),
			strconv.FormatInt(row.Successful, 10),
			strconv.FormatFloat(row.Rate, 'f', 3, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
