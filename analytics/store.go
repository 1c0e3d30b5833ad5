package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists post views in SQLite. Timestamps are unix seconds.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create analytics dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS post_views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id TEXT NOT NULL,
			slug TEXT NOT NULL,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			ts INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id TEXT NOT NULL,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			ts INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_post_views_post ON post_views(post_id, ts);
		CREATE INDEX IF NOT EXISTS idx_post_views_ts ON post_views(ts);
		CREATE INDEX IF NOT EXISTS idx_bot_views_ts ON bot_views(ts);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	ctx := context.Background()
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(currentSchemaVersion))
}

// GetSetting returns the value for key, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveView stores a counted read.
func (s *Store) SaveView(ctx context.Context, v *View) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO post_views (post_id, slug, visitor_id, ip_hash, browser, os, device, referrer, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.PostID, v.Slug, v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Referrer, v.Timestamp.UTC().Unix())
	if err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	return nil
}

// SaveBotView stores a crawler hit.
func (s *Store) SaveBotView(ctx context.Context, bv *BotView) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_views (post_id, bot_name, ip_hash, user_agent, ts) VALUES (?, ?, ?, ?, ?)`,
		bv.PostID, bv.BotName, bv.IPHash, bv.UserAgent, bv.Timestamp.UTC().Unix())
	if err != nil {
		return fmt.Errorf("save bot view: %w", err)
	}
	return nil
}

// ViewCounts returns total views per post id. Posts without views are absent.
func (s *Store) ViewCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(postIDs)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id, COUNT(*) FROM post_views WHERE post_id IN (`+placeholders+`) GROUP BY post_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("view counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// PostStats summarises a post's views over the last days days.
func (s *Store) PostStats(ctx context.Context, postID string, days int, now time.Time) (*PostStats, error) {
	if days < 1 {
		days = 1
	}
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	stats := &PostStats{PostID: postID, TopReferrers: []DimensionStat{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT visitor_id) FROM post_views WHERE post_id = ? AND ts >= ?`,
		postID, from.Unix()).Scan(&stats.Views, &stats.UniqueVisitors)
	if err != nil {
		return nil, fmt.Errorf("post totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT referrer, COUNT(*) AS n FROM post_views WHERE post_id = ? AND ts >= ?
		 GROUP BY referrer ORDER BY n DESC, referrer LIMIT 5`, postID, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("post referrers: %w", err)
	}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TopReferrers = append(stats.TopReferrers, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m-%d', ts, 'unixepoch') AS day, COUNT(*) FROM post_views
		 WHERE post_id = ? AND ts >= ? GROUP BY day`, postID, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("post daily views: %w", err)
	}
	defer rows.Close()
	byDay := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		byDay[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.Daily = fillDays(byDay, from, days)
	return stats, nil
}

// fillDays expands a sparse day->count map into a contiguous series.
func fillDays(byDay map[string]int, from time.Time, days int) []DailyView {
	out := make([]DailyView, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, DailyView{Date: d, Views: byDay[d]})
	}
	return out
}

// DeletePostViews drops all recorded views of a deleted post.
func (s *Store) DeletePostViews(ctx context.Context, postID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM post_views WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("delete post views: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_views WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("delete bot views: %w", err)
	}
	return nil
}

// CleanupOldViews removes views and bot views older than the retention period.
func (s *Store) CleanupOldViews(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM post_views WHERE ts < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup post_views: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_views WHERE ts < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_views: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, log *slog.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldViews(context.Background(), retentionDays); err != nil {
					log.Error("analytics cleanup failed", "error", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
