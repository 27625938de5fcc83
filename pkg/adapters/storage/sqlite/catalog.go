package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id              TEXT PRIMARY KEY,
	prompt          TEXT NOT NULL,
	enhanced_prompt TEXT NOT NULL DEFAULT '',
	model           TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	video_path      TEXT NOT NULL DEFAULT '',
	script_path     TEXT NOT NULL DEFAULT '',
	narration_path  TEXT NOT NULL DEFAULT '',
	submitted_at    TIMESTAMP NOT NULL,
	completed_at    TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_generations_submitted ON generations(submitted_at DESC);
`

// Catalog is the durable history of finished generations, backed by SQLite.
type Catalog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCatalog opens (and if needed initializes) the catalog database.
func NewCatalog(path string, logger *zap.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	// modernc's driver does not support concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	return &Catalog{db: db, logger: logger}, nil
}

// Record inserts or replaces a generation's catalog entry (ports.Catalog interface)
func (c *Catalog) Record(ctx context.Context, gen *domain.Generation) error {
	var completedAt interface{}
	if gen.CompletedAt != nil {
		completedAt = gen.CompletedAt.UTC()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO generations
			(id, prompt, enhanced_prompt, model, status, error,
			 video_path, script_path, narration_path, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.Prompt, gen.EnhancedPrompt, string(gen.Model), string(gen.Status),
		gen.Error, gen.VideoPath, gen.ScriptPath, gen.NarrationPath,
		gen.SubmittedAt.UTC(), completedAt)
	if err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}

// Get retrieves a catalog entry by ID (ports.Catalog interface)
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Generation, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, prompt, enhanced_prompt, model, status, error,
		       video_path, script_path, narration_path, submitted_at, completed_at
		FROM generations WHERE id = ?`, id)

	gen, err := scanGeneration(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return gen, nil
}

// List returns catalog entries newest first (ports.Catalog interface)
func (c *Catalog) List(ctx context.Context, limit, offset int) ([]*domain.Generation, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, prompt, enhanced_prompt, model, status, error,
		       video_path, script_path, narration_path, submitted_at, completed_at
		FROM generations ORDER BY submitted_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var gens []*domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		gens = append(gens, gen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generations: %w", err)
	}
	return gens, nil
}

// Close closes the database (ports.Catalog interface)
func (c *Catalog) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGeneration(row scanner) (*domain.Generation, error) {
	var gen domain.Generation
	var model, status string
	var submittedAt time.Time
	var completedAt sql.NullTime

	err := row.Scan(&gen.ID, &gen.Prompt, &gen.EnhancedPrompt, &model, &status,
		&gen.Error, &gen.VideoPath, &gen.ScriptPath, &gen.NarrationPath,
		&submittedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	gen.Model = domain.Model(model)
	gen.Status = domain.Status(status)
	gen.SubmittedAt = submittedAt
	if completedAt.Valid {
		t := completedAt.Time
		gen.CompletedAt = &t
	}
	return &gen, nil
}
