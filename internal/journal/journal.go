package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

const (
	DefaultMaxEntries = 10000
	DefaultTailLimit  = 50
	MemoryPath        = ":memory:"
)

// Entry is one recorded save-state write.
type Entry struct {
	ID       string          `json:"id"`
	At       time.Time       `json:"at"`
	Kind     string          `json:"kind"`
	Search   string          `json:"search,omitempty"`
	ItemID   uint64          `json:"itemId,omitempty"`
	Revision uint64          `json:"revision"`
	Changed  bool            `json:"changed"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type Options struct {
	// Path is the sqlite database file. Empty or ":memory:" keeps the journal in process memory.
	Path string
	// MaxEntries bounds the table; the oldest rows are trimmed after each append.
	MaxEntries int
	Now        func() time.Time
	Logger     logrus.FieldLogger
}

// Journal is an append-only audit trail of writes backed by sqlite.
type Journal struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time
	log        logrus.FieldLogger
}

func Open(ctx context.Context, opts Options) (*Journal, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = MemoryPath
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	if path != MemoryPath {
		pragmas = append([]string{"PRAGMA journal_mode=WAL;"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal %s: %w", p, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	opts.Logger.WithFields(logrus.Fields{
		"action":      "journal_open",
		"path":        path,
		"max_entries": opts.MaxEntries,
	}).Debug("write journal ready")

	return &Journal{db: db, maxEntries: opts.MaxEntries, now: opts.Now, log: opts.Logger}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id TEXT NOT NULL UNIQUE,
			at_unixms INTEGER NOT NULL,
			kind TEXT NOT NULL,
			search TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			revision INTEGER NOT NULL,
			changed INTEGER NOT NULL,
			payload_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Append stores e, filling ID and At when unset, and returns the stored entry.
func (j *Journal) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = j.now()
	}
	e.At = e.At.UTC()

	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	changed := 0
	if e.Changed {
		changed = 1
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries(entry_id, at_unixms, kind, search, item_id, revision, changed, payload_json)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?);`,
		e.ID, e.At.UnixMilli(), e.Kind, e.Search, int64(e.ItemID), int64(e.Revision), changed, payload,
	); err != nil {
		return Entry{}, fmt.Errorf("append journal entry: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE seq <= (SELECT MAX(seq) FROM entries) - ?;`, j.maxEntries)
	if err != nil {
		return Entry{}, fmt.Errorf("trim journal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		j.log.WithField("action", "journal_trim").WithField("rows", n).Debug("trimmed journal")
	}
	return e, nil
}

// Tail returns up to limit entries, newest first. limit <= 0 selects DefaultTailLimit.
func (j *Journal) Tail(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultTailLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT entry_id, at_unixms, kind, search, item_id, revision, changed, payload_json
		 FROM entries ORDER BY seq DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			atMS    int64
			itemID  int64
			rev     int64
			changed int
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &atMS, &e.Kind, &e.Search, &itemID, &rev, &changed, &payload); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(atMS).UTC()
		e.ItemID = uint64(itemID)
		e.Revision = uint64(rev)
		e.Changed = changed != 0
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return errors.New("journal: not open")
	}
	return j.db.Close()
}
