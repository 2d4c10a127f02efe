package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
	"github.com/leisureprog/dead-ddos/internal/domain/model"
)

var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrQuestionProcessed = errors.New("question already processed")
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

type CreateQuestionParams struct {
	UserID    int64
	Question  string
	IsPrivate bool
}

type QuestionFilter struct {
	Status *enums.QuestionStatus
	UserID *int64
	Page   int
	Limit  int
}

// QuestionTransition is the outcome of one atomic status transition,
// carrying everything the post-commit notification step needs.
type QuestionTransition struct {
	Question       model.Question
	PreviousStatus enums.QuestionStatus
	AdminID        int64
	Submitter      model.UserRef
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func (r *QuestionRepo) Create(ctx context.Context, params CreateQuestionParams) (model.Question, error) {
	if r.pool == nil {
		return model.Question{}, fmt.Errorf("postgres pool is nil")
	}
	if params.UserID <= 0 {
		return model.Question{}, fmt.Errorf("invalid user id")
	}
	if strings.TrimSpace(params.Question) == "" {
		return model.Question{}, fmt.Errorf("question text is required")
	}

	var q model.Question
	err := r.pool.QueryRow(ctx, `
INSERT INTO personal_questions (user_id, question, is_private, status, created_at, updated_at)
VALUES ($1, $2, $3, 'PENDING', NOW(), NOW())
RETURNING id, user_id, question, answer, is_private, status, answered_by_id, created_at, updated_at
`, params.UserID, params.Question, params.IsPrivate).Scan(
		&q.ID, &q.UserID, &q.Question, &q.Answer, &q.IsPrivate, &q.Status, &q.AnsweredByID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return model.Question{}, fmt.Errorf("create question: %w", err)
	}

	return q, nil
}

// ApplyTransition performs one moderation transition atomically: re-read
// the current status under the row lock, refuse terminal rows, resolve the
// moderator's internal id, write the new status and exactly one audit row.
func (r *QuestionRepo) ApplyTransition(
	ctx context.Context,
	questionID, adminTelegramID int64,
	newStatus enums.QuestionStatus,
	answer *string,
	comment string,
) (QuestionTransition, error) {
	if r.pool == nil {
		return QuestionTransition{}, fmt.Errorf("postgres pool is nil")
	}
	if questionID <= 0 {
		return QuestionTransition{}, fmt.Errorf("invalid question id")
	}

	var result QuestionTransition
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var current enums.QuestionStatus
		var submitterID int64
		err := tx.QueryRow(ctx, `
SELECT status, user_id
FROM personal_questions
WHERE id = $1
FOR UPDATE
`, questionID).Scan(&current, &submitterID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("read question status: %w", err)
		}
		if current.Terminal() {
			return ErrQuestionProcessed
		}
		result.PreviousStatus = current

		adminID, err := findAdminIDTx(ctx, tx, adminTelegramID)
		if err != nil {
			return err
		}
		result.AdminID = adminID

		err = tx.QueryRow(ctx, `
UPDATE personal_questions
SET status = $2, answer = COALESCE($3, answer), answered_by_id = $4, updated_at = NOW()
WHERE id = $1
RETURNING id, user_id, question, answer, is_private, status, answered_by_id, created_at, updated_at
`, questionID, newStatus, answer, adminID).Scan(
			&result.Question.ID, &result.Question.UserID, &result.Question.Question, &result.Question.Answer,
			&result.Question.IsPrivate, &result.Question.Status, &result.Question.AnsweredByID,
			&result.Question.CreatedAt, &result.Question.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update question status: %w", err)
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO question_logs (question_id, action, admin_id, previous_status, new_status, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, questionID, string(newStatus), adminID, string(current), string(newStatus), comment); err != nil {
			return fmt.Errorf("append question log: %w", err)
		}

		submitter, err := findUserRefByIDTx(ctx, tx, submitterID)
		if err != nil {
			return err
		}
		result.Submitter = submitter

		return nil
	})
	if err != nil {
		return QuestionTransition{}, err
	}

	return result, nil
}

func (r *QuestionRepo) GetByID(ctx context.Context, questionID int64) (model.Question, error) {
	if r.pool == nil {
		return model.Question{}, fmt.Errorf("postgres pool is nil")
	}

	var q model.Question
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, question, answer, is_private, status, answered_by_id, created_at, updated_at
FROM personal_questions
WHERE id = $1
`, questionID).Scan(
		&q.ID, &q.UserID, &q.Question, &q.Answer, &q.IsPrivate, &q.Status, &q.AnsweredByID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Question{}, ErrQuestionNotFound
		}
		return model.Question{}, fmt.Errorf("get question by id: %w", err)
	}

	return q, nil
}

func (r *QuestionRepo) List(ctx context.Context, filter QuestionFilter) ([]model.Question, int, error) {
	if r.pool == nil {
		return nil, 0, fmt.Errorf("postgres pool is nil")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, question, answer, is_private, status, answered_by_id, created_at, updated_at
FROM personal_questions
WHERE ($1::TEXT IS NULL OR status = $1)
	AND ($2::BIGINT IS NULL OR user_id = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`, filter.Status, filter.UserID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0, limit)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.UserID, &q.Question, &q.Answer, &q.IsPrivate, &q.Status, &q.AnsweredByID, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate question rows: %w", err)
	}

	var total int
	err = r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM personal_questions
WHERE ($1::TEXT IS NULL OR status = $1)
	AND ($2::BIGINT IS NULL OR user_id = $2)
`, filter.Status, filter.UserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	return questions, total, nil
}

func (r *QuestionRepo) ListLogs(ctx context.Context, questionID int64) ([]model.AuditEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, question_id, action, admin_id, previous_status, new_status, comment, created_at
FROM question_logs
WHERE question_id = $1
ORDER BY created_at DESC
`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list question logs: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0, 4)
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.EntityID, &e.Action, &e.AdminID, &e.PreviousStatus, &e.NewStatus, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question log rows: %w", err)
	}

	return entries, nil
}
