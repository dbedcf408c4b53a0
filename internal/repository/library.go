package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yono-dev/craftmind/internal/domain"
)

// LibraryRepo persists per-user image libraries. A save replaces the user's
// whole library in one transaction, so the stored rows always mirror the
// in-memory snapshot that was current when the save was scheduled.
type LibraryRepo struct {
	db *pgxpool.Pool
}

func NewLibraryRepo(db *pgxpool.Pool) *LibraryRepo {
	return &LibraryRepo{db: db}
}

func (r *LibraryRepo) Load(ctx context.Context, userID int64) ([]domain.ImageRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, prompt, model, aspect_ratio, resolution, image_url, created_at
		 FROM library_images
		 WHERE user_id = $1
		 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query library: %w", err)
	}
	defer rows.Close()

	var records []domain.ImageRecord
	for rows.Next() {
		var rec domain.ImageRecord
		var id uuid.UUID
		if err := rows.Scan(&id, &rec.Prompt, &rec.Model, &rec.AspectRatio,
			&rec.Resolution, &rec.ImageURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan library row: %w", err)
		}
		rec.ID = id.String()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library rows: %w", err)
	}
	return records, nil
}

func (r *LibraryRepo) SaveSnapshot(ctx context.Context, userID int64, records []domain.ImageRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM library_images WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			id = uuid.New()
		}
		batch.Queue(
			`INSERT INTO library_images (id, user_id, prompt, model, aspect_ratio, resolution, image_url, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, userID, rec.Prompt, rec.Model, rec.AspectRatio, rec.Resolution, rec.ImageURL, rec.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert library rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit library snapshot: %w", err)
	}
	return nil
}
