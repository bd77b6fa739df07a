package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amishk599/autocareer/internal/model"
)

const jobColumns = `id, url, company, title, score, status, source_id, error_message, requirements, document_path, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var (
		j            model.Job
		score        sql.NullInt64
		sourceID     sql.NullInt64
		errMsg       sql.NullString
		requirements sql.NullString
		docPath      sql.NullString
		status       string
		createdAt    string
	)
	if err := row.Scan(&j.ID, &j.URL, &j.Company, &j.Title, &score, &status, &sourceID,
		&errMsg, &requirements, &docPath, &createdAt); err != nil {
		return model.Job{}, err
	}
	j.Status = model.JobStatus(status)
	if score.Valid {
		v := int(score.Int64)
		j.Score = &v
	}
	if sourceID.Valid {
		v := sourceID.Int64
		j.SourceID = &v
	}
	j.ErrorMessage = errMsg.String
	j.DocumentPath = docPath.String
	if requirements.Valid && requirements.String != "" {
		if err := json.Unmarshal([]byte(requirements.String), &j.Requirements); err != nil {
			return model.Job{}, fmt.Errorf("decoding requirements for job %d: %w", j.ID, err)
		}
	}
	j.CreatedAt = parseTime(createdAt)
	return j, nil
}

// Exists reports whether a job with this URL is already stored.
func (s *SQLiteStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM jobs WHERE url = ?", url).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &model.PersistenceError{Op: "checking job " + url, Err: err}
	}
	return true, nil
}

// Insert stores a new job. A URL that already exists is never overwritten;
// the call returns model.ErrDuplicate instead.
func (s *SQLiteStore) Insert(ctx context.Context, job model.Job) (model.Job, error) {
	if job.Status == "" {
		job.Status = model.StatusSuggested
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now()
	}
	var requirements sql.NullString
	if len(job.Requirements) > 0 {
		b, err := json.Marshal(job.Requirements)
		if err != nil {
			return model.Job{}, fmt.Errorf("encoding requirements: %w", err)
		}
		requirements = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO jobs
		(url, company, title, score, status, source_id, error_message, requirements, document_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		job.URL, job.Company, job.Title, job.Score, string(job.Status), job.SourceID,
		nullString(job.ErrorMessage), requirements, nullString(job.DocumentPath), formatTime(job.CreatedAt))
	if err != nil {
		return model.Job{}, &model.PersistenceError{Op: "inserting job " + job.URL, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Job{}, &model.PersistenceError{Op: "inserting job " + job.URL, Err: err}
	}
	if n == 0 {
		return model.Job{}, model.ErrDuplicate
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Job{}, &model.PersistenceError{Op: "inserting job " + job.URL, Err: err}
	}
	job.ID = id
	return job, nil
}

// GetJob returns a single job or model.ErrNotFound.
func (s *SQLiteStore) GetJob(ctx context.Context, id int64) (model.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, fmt.Errorf("job %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("loading job %d: %w", id, err)
	}
	return j, nil
}

// ListJobs returns jobs newest first, optionally limited to one status.
func (s *SQLiteStore) ListJobs(ctx context.Context, status model.JobStatus) ([]model.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus moves a job to a new status if the lifecycle allows it.
// errMsg is stored alongside the status and cleared when empty.
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, id int64, to model.JobStatus, errMsg string) (model.Job, error) {
	var updated model.Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var from string
		err := tx.QueryRowContext(ctx, "SELECT status FROM jobs WHERE id = ?", id).Scan(&from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("job %d: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("loading job %d status: %w", id, err)
		}
		if !model.CanTransition(model.JobStatus(from), to) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE jobs SET status = ?, error_message = ? WHERE id = ?",
			string(to), nullString(errMsg), id); err != nil {
			return fmt.Errorf("updating job %d status: %w", id, err)
		}
		updated, err = scanJob(tx.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
		return err
	})
	if err != nil {
		return model.Job{}, err
	}
	return updated, nil
}

// UpdateJobDetails overwrites the descriptive fields of a job: company,
// title, requirements and document path.
func (s *SQLiteStore) UpdateJobDetails(ctx context.Context, job model.Job) error {
	var requirements sql.NullString
	if len(job.Requirements) > 0 {
		b, err := json.Marshal(job.Requirements)
		if err != nil {
			return fmt.Errorf("encoding requirements: %w", err)
		}
		requirements = sql.NullString{String: string(b), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET company = ?, title = ?, requirements = ?, document_path = ? WHERE id = ?",
		job.Company, job.Title, requirements, nullString(job.DocumentPath), job.ID)
	if err != nil {
		return fmt.Errorf("updating job %d: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %d: %w", job.ID, model.ErrNotFound)
	}
	return nil
}
