package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

const taskColumns = `id, created_by, assigned_to, item_name, status, related_message_id, created_at, completed_at`

func scanTask(scan func(dest ...any) error) (*models.Task, error) {
	task := &models.Task{}
	var related sql.NullString
	var completed sql.NullInt64
	if err := scan(&task.ID, &task.CreatedBy, &task.AssignedTo, &task.ItemName,
		&task.Status, &related, &task.CreatedAt, &completed); err != nil {
		return nil, err
	}
	task.RelatedMessageID = related.String
	task.CompletedAt = completed.Int64
	return task, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func createTask(ctx context.Context, q dbtx, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt == 0 {
		task.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO tasks (id, created_by, assigned_to, item_name, status, related_message_id, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.CreatedBy, task.AssignedTo, task.ItemName, task.Status,
		nullStr(task.RelatedMessageID), task.CreatedAt, nullInt(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func updateTask(ctx context.Context, q dbtx, task *models.Task) error {
	res, err := q.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?`,
		task.Status, nullInt(task.CompletedAt), task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// findOpenTask returns the oldest pending or in-progress task whose item name
// contains item (case-insensitive) and where participantID is creator or
// assignee. The ordering is created_at ascending with rowid as the tie-break,
// so repeated calls always pick the same row.
func findOpenTask(ctx context.Context, q dbtx, participantID, item string) (*models.Task, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE instr(lower(item_name), lower(?)) > 0
		   AND status IN (?, ?)
		   AND (created_by = ? OR assigned_to = ?)
		 ORDER BY created_at ASC, rowid ASC
		 LIMIT 1`,
		item, models.TaskPending, models.TaskInProgress, participantID, participantID,
	)
	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open task: %w", err)
	}
	return task, nil
}

// CreateTask persists a new task outside any engine transaction.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	return createTask(ctx, s.db, task)
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	)
	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, f storage.TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.ParticipantID != "" {
		query += ` AND (created_by = ? OR assigned_to = ?)`
		args = append(args, f.ParticipantID, f.ParticipantID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		query += ` AND assigned_to = ?`
		args = append(args, f.AssignedTo)
	}
	if f.CreatedBy != "" {
		query += ` AND created_by = ?`
		args = append(args, f.CreatedBy)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask updates a task's status and completion time.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *models.Task) error {
	return updateTask(ctx, s.db, task)
}

// DeleteTask removes a task by ID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
