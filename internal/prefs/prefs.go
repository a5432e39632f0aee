package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Prefs holds one chat's settings. A chat that never changed anything reads
// back as Default().
type Prefs struct {
	ChatID int64 `json:"chat_id"`

	// ShowButtons toggles per-engine search buttons on responses.
	ShowButtons bool `json:"show_buttons"`
	// ShowBestMatch toggles the automatic best-match summary.
	ShowBestMatch bool `json:"show_best_match"`
	// ShowLink toggles source links in responses.
	ShowLink bool `json:"show_link"`

	// AutoSearch runs a search on every posted image without being asked.
	AutoSearch bool `json:"auto_search"`
	// AutoSearchEngines restricts automatic searches to the named engines.
	// Empty means all configured engines.
	AutoSearchEngines []string `json:"auto_search_engines"`
	// ButtonEngines lists the engines offered as buttons.
	ButtonEngines []string `json:"button_engines"`

	// EngineEmptyCounts tracks consecutive empty results per engine, used
	// to suggest disabling engines that never match this chat's content.
	EngineEmptyCounts map[string]int `json:"engine_empty_counts,omitempty"`

	// Onboarded records that the introduction message has been shown.
	Onboarded bool `json:"onboarded"`
	// FailuresInARow counts consecutive failed searches.
	FailuresInARow int `json:"failures_in_a_row"`
}

// Default returns the settings a chat starts with.
func Default(chatID int64) *Prefs {
	return &Prefs{
		ChatID:        chatID,
		ShowButtons:   true,
		ShowBestMatch: true,
		ShowLink:      true,
	}
}

// Store persists chat preferences in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates a preference store at the given path, creating the file and
// its parent directory and applying pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create prefs directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open prefs database: %w", err)
	}

	// WAL mode and a single writer connection; SQLite performs best that way.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is the subset of *sql.DB and *sql.Tx the load and store queries
// need, so they run the same inside and outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get returns the chat's preferences, or the defaults when the chat has
// never stored any.
func (s *Store) Get(ctx context.Context, chatID int64) (*Prefs, error) {
	return getPrefs(ctx, s.db, chatID)
}

func getPrefs(ctx context.Context, q querier, chatID int64) (*Prefs, error) {
	row := q.QueryRowContext(ctx, `
		SELECT show_buttons, show_best_match, show_link,
		       auto_search_enabled, auto_search_engines, button_engines,
		       engine_empty_counts, onboarded, failures_in_a_row
		FROM chat_prefs WHERE chat_id = ?`, chatID)

	p := Default(chatID)
	var autoEngines, buttonEngines, emptyCounts string
	err := row.Scan(&p.ShowButtons, &p.ShowBestMatch, &p.ShowLink,
		&p.AutoSearch, &autoEngines, &buttonEngines,
		&emptyCounts, &p.Onboarded, &p.FailuresInARow)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load prefs for chat %d: %w", chatID, err)
	}

	if err := json.Unmarshal([]byte(autoEngines), &p.AutoSearchEngines); err != nil {
		return nil, fmt.Errorf("decode auto search engines: %w", err)
	}
	if err := json.Unmarshal([]byte(buttonEngines), &p.ButtonEngines); err != nil {
		return nil, fmt.Errorf("decode button engines: %w", err)
	}
	if err := json.Unmarshal([]byte(emptyCounts), &p.EngineEmptyCounts); err != nil {
		return nil, fmt.Errorf("decode engine empty counts: %w", err)
	}
	return p, nil
}

// Put stores the chat's preferences, replacing whatever was there.
func (s *Store) Put(ctx context.Context, p *Prefs) error {
	return putPrefs(ctx, s.db, p)
}

func putPrefs(ctx context.Context, q querier, p *Prefs) error {
	autoEngines, err := encodeStrings(p.AutoSearchEngines)
	if err != nil {
		return err
	}
	buttonEngines, err := encodeStrings(p.ButtonEngines)
	if err != nil {
		return err
	}
	emptyCounts, err := encodeCounts(p.EngineEmptyCounts)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO chat_prefs (chat_id, show_buttons, show_best_match, show_link,
		                        auto_search_enabled, auto_search_engines, button_engines,
		                        engine_empty_counts, onboarded, failures_in_a_row, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
		    show_buttons = excluded.show_buttons,
		    show_best_match = excluded.show_best_match,
		    show_link = excluded.show_link,
		    auto_search_enabled = excluded.auto_search_enabled,
		    auto_search_engines = excluded.auto_search_engines,
		    button_engines = excluded.button_engines,
		    engine_empty_counts = excluded.engine_empty_counts,
		    onboarded = excluded.onboarded,
		    failures_in_a_row = excluded.failures_in_a_row,
		    updated_at = excluded.updated_at`,
		p.ChatID, p.ShowButtons, p.ShowBestMatch, p.ShowLink,
		p.AutoSearch, autoEngines, buttonEngines,
		emptyCounts, p.Onboarded, p.FailuresInARow, time.Now())
	if err != nil {
		return fmt.Errorf("store prefs for chat %d: %w", p.ChatID, err)
	}
	return nil
}

// Delete removes the chat's preferences, returning it to the defaults.
func (s *Store) Delete(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_prefs WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("delete prefs for chat %d: %w", chatID, err)
	}
	return nil
}

// update applies fn to the chat's current preferences and stores the result
// when fn reports a change. The read and the write share one transaction,
// so concurrent updates to the same chat serialize instead of losing
// increments.
func (s *Store) update(ctx context.Context, chatID int64, fn func(*Prefs) bool) (*Prefs, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin prefs update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getPrefs(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}
	if !fn(p) {
		return p, nil
	}
	if err := putPrefs(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit prefs update: %w", err)
	}
	return p, nil
}

// RecordEngineEmpty increments the consecutive-empty counter for an engine
// and returns the new count.
func (s *Store) RecordEngineEmpty(ctx context.Context, chatID int64, engine string) (int, error) {
	p, err := s.update(ctx, chatID, func(p *Prefs) bool {
		if p.EngineEmptyCounts == nil {
			p.EngineEmptyCounts = make(map[string]int)
		}
		p.EngineEmptyCounts[engine]++
		return true
	})
	if err != nil {
		return 0, err
	}
	return p.EngineEmptyCounts[engine], nil
}

// ResetEngineEmpty clears the consecutive-empty counter for an engine.
func (s *Store) ResetEngineEmpty(ctx context.Context, chatID int64, engine string) error {
	_, err := s.update(ctx, chatID, func(p *Prefs) bool {
		if _, ok := p.EngineEmptyCounts[engine]; !ok {
			return false
		}
		delete(p.EngineEmptyCounts, engine)
		return true
	})
	return err
}

// RecordFailure increments the chat's consecutive-failure counter and
// returns the new count.
func (s *Store) RecordFailure(ctx context.Context, chatID int64) (int, error) {
	p, err := s.update(ctx, chatID, func(p *Prefs) bool {
		p.FailuresInARow++
		return true
	})
	if err != nil {
		return 0, err
	}
	return p.FailuresInARow, nil
}

// ResetFailures clears the chat's consecutive-failure counter.
func (s *Store) ResetFailures(ctx context.Context, chatID int64) error {
	_, err := s.update(ctx, chatID, func(p *Prefs) bool {
		if p.FailuresInARow == 0 {
			return false
		}
		p.FailuresInARow = 0
		return true
	})
	return err
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode prefs list: %w", err)
	}
	return string(b), nil
}

func encodeCounts(v map[string]int) (string, error) {
	if v == nil {
		v = map[string]int{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode prefs counts: %w", err)
	}
	return string(b), nil
}
