package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"shotbrain/internal/model"
	"shotbrain/internal/repository"
)

// UploadPostgres is a PostgreSQL implementation of repository.UploadRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Insertion order is the serial id, not created_at, so equal timestamps still sort.
type UploadPostgres struct {
	db *sql.DB
}

// NewUploadPostgres creates a new UploadPostgres repository.
func NewUploadPostgres(db *sql.DB) *UploadPostgres {
	return &UploadPostgres{db: db}
}

var _ repository.UploadRepository = (*UploadPostgres)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Append inserts a new upload row. A filename already in the table, for example
// after the upload directory was wiped while the database was kept, yields
// repository.ErrDuplicateFilename.
func (r *UploadPostgres) Append(ctx context.Context, rec *model.UploadRecord) error {
	const q = `
		INSERT INTO uploads (filename, text, size, content_type, width, height, format, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		rec.Filename,
		rec.Text,
		rec.Size,
		rec.ContentType,
		rec.Width,
		rec.Height,
		rec.Format,
		rec.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateFilename, rec.Filename)
	}
	return err
}

// ListRecent returns the newest n uploads and the total row count.
func (r *UploadPostgres) ListRecent(ctx context.Context, n int) (*repository.PageResult[model.UploadRecord], error) {
	const qCount = `SELECT COUNT(*) FROM uploads`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	items := make([]model.UploadRecord, 0)
	if n <= 0 {
		return &repository.PageResult[model.UploadRecord]{Items: items, Total: total}, nil
	}

	const qList = `
		SELECT filename, text, size, content_type, width, height, format, created_at
		FROM uploads
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, qList, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u model.UploadRecord
		if err := rows.Scan(
			&u.Filename,
			&u.Text,
			&u.Size,
			&u.ContentType,
			&u.Width,
			&u.Height,
			&u.Format,
			&u.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.UploadRecord]{
		Items: items,
		Total: total,
	}, nil
}
