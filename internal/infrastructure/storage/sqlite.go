// Package storage persists title history and push-window state in a single
// SQLite database. The process is the only writer; callers serialize cycles.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS crawls (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_crawls_date ON crawls(date);

CREATE TABLE IF NOT EXISTS titles (
	date           TEXT NOT NULL,
	source_id      TEXT NOT NULL,
	source_name    TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL,
	first_seen     TEXT NOT NULL,
	last_seen      TEXT NOT NULL,
	count          INTEGER NOT NULL DEFAULT 1,
	ranks          TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	mobile_url     TEXT NOT NULL DEFAULT '',
	first_crawl_id INTEGER NOT NULL,
	last_crawl_id  INTEGER NOT NULL,
	PRIMARY KEY (date, source_id, title)
);

CREATE TABLE IF NOT EXISTS push_state (
	date         TEXT PRIMARY KEY,
	report_types TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore implements both the title history and the push-window state
// store over one database file.
type SQLiteStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	log zerolog.Logger
}

var (
	_ ports.TitleHistory   = (*SQLiteStore)(nil)
	_ ports.PushStateStore = (*SQLiteStore)(nil)
)

// Open creates (or opens) the database at path and applies the schema.
func Open(path string, log zerolog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log: log,
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot records one crawl cycle: a crawls row plus an upsert per
// (source, title). Reappearing titles accumulate count, ranks and last-seen
// in place. The whole snapshot commits as one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap domain.CrawlSnapshot) error {
	date := snap.FetchedAt.Format(dateLayout)
	at := snap.FetchedAt.Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO crawls(date, at) VALUES(?, ?)`, date, at)
	if err != nil {
		return fmt.Errorf("insert crawl: %w", err)
	}
	crawlID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("crawl id: %w", err)
	}

	const upsert = `
INSERT INTO titles(date, source_id, source_name, title, first_seen, last_seen,
                   count, ranks, url, mobile_url, first_crawl_id, last_crawl_id)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(date, source_id, title) DO UPDATE SET
	last_seen     = excluded.last_seen,
	count         = count + 1,
	ranks         = CASE WHEN ranks = '' THEN excluded.ranks
	                     ELSE ranks || ',' || excluded.ranks END,
	url           = CASE WHEN excluded.url != '' THEN excluded.url ELSE url END,
	mobile_url    = CASE WHEN excluded.mobile_url != '' THEN excluded.mobile_url ELSE mobile_url END,
	last_crawl_id = excluded.last_crawl_id`

	for sourceID, records := range snap.Results {
		name := snap.IDToName[sourceID]
		for title, rec := range records {
			_, err := tx.ExecContext(ctx, upsert,
				date, sourceID, name, title,
				at, at, 1, joinRanks(rec.Ranks), rec.URL, rec.MobileURL,
				crawlID, crawlID,
			)
			if err != nil {
				return fmt.Errorf("upsert title %s/%s: %w", sourceID, title, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// ReadDay returns the day's accumulated titles filtered to the given source
// ids, plus the id→display-name map for the returned sources.
func (s *SQLiteStore) ReadDay(ctx context.Context, day time.Time, sourceIDs []string) (domain.TitlesBySource, map[string]string, error) {
	if len(sourceIDs) == 0 {
		return domain.TitlesBySource{}, map[string]string{}, nil
	}

	query, args, err := s.sb.
		Select("source_id", "source_name", "title", "first_seen", "last_seen",
			"count", "ranks", "url", "mobile_url").
		From("titles").
		Where(sq.Eq{"date": day.Format(dateLayout), "source_id": sourceIDs}).
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build read query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	result := domain.TitlesBySource{}
	idToName := map[string]string{}
	for rows.Next() {
		var rec domain.TitleRecord
		var name, ranks, fs, ls string
		if err := rows.Scan(&rec.SourceID, &name, &rec.Title, &fs, &ls,
			&rec.Count, &ranks, &rec.URL, &rec.MobileURL); err != nil {
			return nil, nil, fmt.Errorf("scan title: %w", err)
		}
		rec.FirstSeen, _ = time.Parse(time.RFC3339, fs)
		rec.LastSeen, _ = time.Parse(time.RFC3339, ls)
		rec.Ranks = splitRanks(ranks)

		if result[rec.SourceID] == nil {
			result[rec.SourceID] = map[string]domain.TitleRecord{}
		}
		result[rec.SourceID][rec.Title] = rec
		if name != "" {
			idToName[rec.SourceID] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate titles: %w", err)
	}

	return result, idToName, nil
}

// NewTitles returns the titles first observed by the day's latest crawl,
// filtered to the given source ids. Titles from sources that are no longer
// monitored never appear, even if they exist in history.
func (s *SQLiteStore) NewTitles(ctx context.Context, day time.Time, sourceIDs []string) (domain.NewTitleSet, error) {
	if len(sourceIDs) == 0 {
		return domain.NewTitleSet{}, nil
	}
	date := day.Format(dateLayout)

	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(id) FROM crawls WHERE date = ?`, date).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest crawl: %w", err)
	}
	if !latest.Valid {
		return domain.NewTitleSet{}, nil
	}

	query, args, err := s.sb.
		Select("source_id", "title").
		From("titles").
		Where(sq.Eq{"date": date, "source_id": sourceIDs, "first_crawl_id": latest.Int64}).
		OrderBy("source_id", "title").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build new-titles query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query new titles: %w", err)
	}
	defer rows.Close()

	set := domain.NewTitleSet{}
	for rows.Next() {
		var sourceID, title string
		if err := rows.Scan(&sourceID, &title); err != nil {
			return nil, fmt.Errorf("scan new title: %w", err)
		}
		set[sourceID] = append(set[sourceID], title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate new titles: %w", err)
	}

	return set, nil
}

// Cleanup deletes titles, crawls and push records for days before the
// cutoff date.
func (s *SQLiteStore) Cleanup(ctx context.Context, before time.Time) error {
	cutoff := before.Format(dateLayout)
	for _, table := range []string{"titles", "crawls", "push_state"} {
		query, args, err := s.sb.Delete(table).Where(sq.Lt{"date": cutoff}).ToSql()
		if err != nil {
			return fmt.Errorf("build cleanup query: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}
	s.log.Debug().Str("before", cutoff).Msg("expired history removed")
	return nil
}

// Load returns the push record for a calendar date. An absent row yields a
// state with the requested date and no recorded report types.
func (s *SQLiteStore) Load(ctx context.Context, date string) (domain.PushWindowState, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_types FROM push_state WHERE date = ?`, date).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PushWindowState{Date: date}, nil
	}
	if err != nil {
		return domain.PushWindowState{}, fmt.Errorf("load push state: %w", err)
	}

	state := domain.PushWindowState{Date: date}
	if encoded != "" {
		state.ReportTypes = strings.Split(encoded, "\n")
	}
	return state, nil
}

// Save upserts the push record for the state's date.
func (s *SQLiteStore) Save(ctx context.Context, state domain.PushWindowState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_state(date, report_types) VALUES(?, ?)
		 ON CONFLICT(date) DO UPDATE SET report_types = excluded.report_types`,
		state.Date, strings.Join(state.ReportTypes, "\n"))
	if err != nil {
		return fmt.Errorf("save push state: %w", err)
	}
	return nil
}

func joinRanks(ranks []int) string {
	if len(ranks) == 0 {
		return ""
	}
	parts := make([]string, len(ranks))
	for i, r := range ranks {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ",")
}

func splitRanks(encoded string) []int {
	if encoded == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	ranks := make([]int, 0, len(parts))
	for _, p := range parts {
		if r, err := strconv.Atoi(p); err == nil {
			ranks = append(ranks, r)
		}
	}
	return ranks
}
