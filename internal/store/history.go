package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"tohoinfo/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS identifications (
	track_id    TEXT PRIMARY KEY,
	cycle_id    TEXT NOT NULL,
	status      TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	artist      TEXT NOT NULL DEFAULT '',
	album       TEXT NOT NULL DEFAULT '',
	query       TEXT NOT NULL DEFAULT '',
	match_id    INTEGER,
	resolution  TEXT NOT NULL DEFAULT '',
	main_text   TEXT NOT NULL DEFAULT '',
	sub_text    TEXT NOT NULL DEFAULT '',
	link        TEXT NOT NULL DEFAULT '',
	facets      TEXT NOT NULL DEFAULT '[]',
	plays       INTEGER NOT NULL DEFAULT 1,
	first_seen  TIMESTAMP NOT NULL,
	last_seen   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_identifications_last_seen ON identifications(last_seen);
`

// Entry is one identified player track.
type Entry struct {
	TrackID    string      `json:"trackId"`
	CycleID    string      `json:"cycleId"`
	Status     core.Status `json:"status"`
	Title      string      `json:"title"`
	Artist     string      `json:"artist"`
	Album      string      `json:"album"`
	Query      string      `json:"query,omitempty"`
	MatchID    int64       `json:"matchId,omitempty"`
	Resolution string      `json:"resolution,omitempty"`
	MainText   string      `json:"mainText,omitempty"`
	SubText    string      `json:"subText,omitempty"`
	Link       string      `json:"link,omitempty"`
	Facets     []string    `json:"facets,omitempty"`
	Plays      int         `json:"plays"`
	FirstSeen  time.Time   `json:"firstSeen"`
	LastSeen   time.Time   `json:"lastSeen"`
}

// History records published identifications in sqlite, one row per player
// track, keeping at most the configured number of most recently played tracks.
type History struct {
	db     *sql.DB
	seen   *SeenSet
	logger *zap.Logger
	now    func() time.Time
}

var _ core.Sink = (*History)(nil)

// OpenHistory opens or creates the history database at path.
func OpenHistory(ctx context.Context, path string, size int, logger *zap.Logger) (*History, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("history size must be positive, got %d", size)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under concurrent publishes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	h := &History{
		db:     db,
		seen:   NewSeenSet(size, DefaultFalsePositiveRate),
		logger: logger,
		now:    time.Now,
	}
	if err := h.loadSeen(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Publish records a cycle result. Idle results and results without a track are ignored.
func (h *History) Publish(ctx context.Context, result *core.Result) {
	if result == nil || result.TrackID == "" || result.Status == core.StatusIdle {
		return
	}
	if err := h.Record(ctx, result); err != nil {
		h.logger.Error("Failed to record identification",
			zap.String("track_id", result.TrackID),
			zap.String("cycle_id", result.CycleID),
			zap.Error(err))
	}
}

// Record upserts the row for result's track, counting repeat plays.
func (h *History) Record(ctx context.Context, result *core.Result) error {
	row, err := newRow(result)
	if err != nil {
		return err
	}
	now := h.now().UTC()

	repeat, evicted := h.seen.Mark(result.TrackID)
	if repeat {
		res, err := h.db.ExecContext(ctx, `
			UPDATE identifications SET
				cycle_id = ?, status = ?, title = ?, artist = ?, album = ?, query = ?,
				match_id = ?, resolution = ?, main_text = ?, sub_text = ?, link = ?, facets = ?,
				plays = plays + 1, last_seen = ?
			WHERE track_id = ?`,
			row.cycleID, row.status, row.title, row.artist, row.album, row.query,
			row.matchID, row.resolution, row.mainText, row.subText, row.link, row.facets,
			now, result.TrackID)
		if err != nil {
			return fmt.Errorf("update identification: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			return nil
		}
		// The row was removed behind our back; fall through to insert it again.
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO identifications (
			track_id, cycle_id, status, title, artist, album, query,
			match_id, resolution, main_text, sub_text, link, facets,
			plays, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			cycle_id = excluded.cycle_id, status = excluded.status,
			title = excluded.title, artist = excluded.artist,
			album = excluded.album, query = excluded.query,
			match_id = excluded.match_id, resolution = excluded.resolution,
			main_text = excluded.main_text, sub_text = excluded.sub_text,
			link = excluded.link, facets = excluded.facets,
			plays = identifications.plays + 1, last_seen = excluded.last_seen`,
		result.TrackID, row.cycleID, row.status, row.title, row.artist, row.album, row.query,
		row.matchID, row.resolution, row.mainText, row.subText, row.link, row.facets,
		now, now)
	if err != nil {
		if !repeat {
			// No row was written, so the next play must insert again.
			h.seen.Forget(result.TrackID)
		}
		return fmt.Errorf("insert identification: %w", err)
	}

	return h.prune(ctx, evicted)
}

// Recent returns up to limit entries, most recently played first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT track_id, cycle_id, status, title, artist, album, query,
			match_id, resolution, main_text, sub_text, link, facets,
			plays, first_seen, last_seen
		FROM identifications
		ORDER BY last_seen DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			matchID sql.NullInt64
			facets  string
			status  string
		)
		if err := rows.Scan(
			&entry.TrackID, &entry.CycleID, &status, &entry.Title, &entry.Artist, &entry.Album, &entry.Query,
			&matchID, &entry.Resolution, &entry.MainText, &entry.SubText, &entry.Link, &facets,
			&entry.Plays, &entry.FirstSeen, &entry.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Status = core.Status(status)
		entry.MatchID = matchID.Int64
		if err := json.Unmarshal([]byte(facets), &entry.Facets); err != nil {
			h.logger.Warn("Ignoring malformed facets", zap.String("track_id", entry.TrackID), zap.Error(err))
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (h *History) loadSeen(ctx context.Context) error {
	rows, err := h.db.QueryContext(ctx, `SELECT track_id FROM identifications ORDER BY last_seen ASC`)
	if err != nil {
		return fmt.Errorf("load history ids: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan history id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate history ids: %w", err)
	}
	_ = rows.Close()

	evicted := h.seen.Reset(ids)
	if err := h.prune(ctx, evicted); err != nil {
		return err
	}
	h.logger.Info("Loaded identification history", zap.Int("tracks", h.seen.Len()), zap.Int("pruned", len(evicted)))
	return nil
}

func (h *History) prune(ctx context.Context, trackIDs []string) error {
	for _, id := range trackIDs {
		if _, err := h.db.ExecContext(ctx, `DELETE FROM identifications WHERE track_id = ?`, id); err != nil {
			return fmt.Errorf("prune identification %s: %w", id, err)
		}
	}
	return nil
}

type row struct {
	cycleID    string
	status     string
	title      string
	artist     string
	album      string
	query      string
	matchID    sql.NullInt64
	resolution string
	mainText   string
	subText    string
	link       string
	facets     string
}

func newRow(result *core.Result) (row, error) {
	facets := result.FacetLabels
	if facets == nil {
		facets = []string{}
	}
	encoded, err := json.Marshal(facets)
	if err != nil {
		return row{}, fmt.Errorf("encode facets: %w", err)
	}

	r := row{
		cycleID:  result.CycleID,
		status:   string(result.Status),
		title:    result.Metadata.Title,
		artist:   result.Metadata.ArtistName,
		album:    result.Metadata.AlbumTitle,
		query:    result.Query,
		mainText: result.MainText,
		subText:  result.SubText,
		facets:   string(encoded),
	}
	if result.Match != nil {
		r.matchID = sql.NullInt64{Int64: result.Match.ID, Valid: true}
	}
	if result.Identity != nil {
		r.resolution = result.Identity.Kind.String()
		r.link = result.Identity.Link
	}
	return r, nil
}
