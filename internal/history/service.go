// Package history persists every pipeline run so users can review what was
// asked, how it was understood and what the backends did.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/intent"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// Conner supplies the active connection. *database.Manager implements it so
// the store follows demo mode switches.
type Conner interface {
	Conn() *sql.DB
}

// Service stores and queries command history.
type Service struct {
	db        Conner
	retention RetentionSettings
	logger    zerolog.Logger
}

// NewService creates a history service.
func NewService(db Conner, retention RetentionSettings, logger zerolog.Logger) *Service {
	return &Service{
		db:        db,
		retention: retention,
		logger:    logger.With().Str("component", "history").Logger(),
	}
}

const columns = `id, source, text, stage, status, message, action, media_type, title,
	resolved_id, intent_json, result_json, detail_json, dry_run, duration_ms, created_at`

// Create stores a run and returns the stored entry. A missing ID gets a new
// uuid and a zero At means now.
func (s *Service) Create(ctx context.Context, rec Record) (*Entry, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	intentJSON, err := marshalNullable(rec.Intent)
	if err != nil {
		return nil, fmt.Errorf("encode intent: %w", err)
	}
	resultJSON, err := marshalNullable(rec.Result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	detailJSON, err := marshalNullable(rec.Detail)
	if err != nil {
		return nil, fmt.Errorf("encode detail: %w", err)
	}

	var action, mediaType, title, resolvedID string
	if rec.Intent != nil {
		action = string(rec.Intent.Action)
		mediaType = string(rec.Intent.MediaType)
		title = rec.Intent.Title
		resolvedID = rec.Intent.ResolvedID
	}

	_, err = s.db.Conn().ExecContext(ctx, `INSERT INTO commands (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Source), rec.Text, rec.Stage, rec.Status, rec.Message,
		action, mediaType, title, resolvedID,
		intentJSON, resultJSON, detailJSON,
		rec.DryRun, rec.Duration.Milliseconds(), rec.At.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert history entry: %w", err)
	}
	return s.Get(ctx, rec.ID)
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+columns+` FROM commands WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return entry, err
}

// List lists entries newest first with pagination and filtering.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}

	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.MediaType != "" {
		where = append(where, "media_type = ?")
		args = append(args, opts.MediaType)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.Conn().QueryRowContext(ctx, `SELECT count(*) FROM commands`+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	offset := (opts.Page - 1) * opts.PageSize
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+columns+` FROM commands`+clause+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, opts.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, opts.PageSize)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int(total) / opts.PageSize
	if int(total)%opts.PageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Items:      entries,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// DeleteAll deletes every entry.
func (s *Service) DeleteAll(ctx context.Context) error {
	_, err := s.db.Conn().ExecContext(ctx, `DELETE FROM commands`)
	return err
}

// Retention returns the configured retention settings.
func (s *Service) Retention() RetentionSettings {
	return s.retention
}

// CleanupOldEntries deletes entries older than the retention period and
// returns how many were removed.
func (s *Service) CleanupOldEntries(ctx context.Context) (int64, error) {
	if !s.retention.Enabled || s.retention.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.retention.RetentionDays).UTC()
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM commands WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Int("retentionDays", s.retention.RetentionDays).Msg("Removed old history entries")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                                  Entry
		source, action, mediaType          string
		intentJSON, resultJSON, detailJSON sql.NullString
	)
	err := row.Scan(&e.ID, &source, &e.Text, &e.Stage, &e.Status, &e.Message,
		&action, &mediaType, &e.Title, &e.ResolvedID,
		&intentJSON, &resultJSON, &detailJSON,
		&e.DryRun, &e.DurationMs, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Source = Source(source)
	e.Action = intent.Action(action)
	e.MediaType = intent.MediaType(mediaType)

	if intentJSON.Valid {
		var in intent.Intent
		if err := json.Unmarshal([]byte(intentJSON.String), &in); err == nil {
			e.Intent = &in
		}
	}
	if resultJSON.Valid {
		var res intent.ExecutionResult
		if err := json.Unmarshal([]byte(resultJSON.String), &res); err == nil {
			e.Result = &res
		}
	}
	if detailJSON.Valid {
		e.Detail = json.RawMessage(detailJSON.String)
	}
	return &e, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	switch t := v.(type) {
	case *intent.Intent:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *intent.ExecutionResult:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
