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
	ErrReportNotFound  = errors.New("report not found")
	ErrReportProcessed = errors.New("report already processed")
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

type CreateReportParams struct {
	Message   string
	UserID    *int64
	IPAddress string
	UserAgent string
}

// ReportTransition mirrors QuestionTransition for the report workflow.
// Submitter is zero-valued for anonymous reports.
type ReportTransition struct {
	Report         model.Report
	PreviousStatus enums.ReportStatus
	AdminID        int64
	Submitter      model.UserRef
	Anonymous      bool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, params CreateReportParams) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(params.Message) == "" {
		return model.Report{}, fmt.Errorf("report message is required")
	}

	var report model.Report
	err := r.pool.QueryRow(ctx, `
INSERT INTO reports (user_id, message, status, ip_address, user_agent, created_at)
VALUES ($1, $2, 'PENDING', $3, $4, NOW())
RETURNING id, user_id, message, status, ip_address, user_agent, processed_at, processed_by, created_at
`, params.UserID, params.Message, params.IPAddress, params.UserAgent).Scan(
		&report.ID, &report.UserID, &report.Message, &report.Status, &report.IPAddress,
		&report.UserAgent, &report.ProcessedAt, &report.ProcessedBy, &report.CreatedAt,
	)
	if err != nil {
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}

	return report, nil
}

// ApplyTransition moves a pending report into a terminal status, appending
// its audit row in the same transaction. Already-terminal rows are refused.
func (r *ReportRepo) ApplyTransition(
	ctx context.Context,
	reportID, adminTelegramID int64,
	newStatus enums.ReportStatus,
	comment string,
) (ReportTransition, error) {
	if r.pool == nil {
		return ReportTransition{}, fmt.Errorf("postgres pool is nil")
	}
	if reportID <= 0 {
		return ReportTransition{}, fmt.Errorf("invalid report id")
	}

	var result ReportTransition
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var current enums.ReportStatus
		var submitterID *int64
		err := tx.QueryRow(ctx, `
SELECT status, user_id
FROM reports
WHERE id = $1
FOR UPDATE
`, reportID).Scan(&current, &submitterID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrReportNotFound
			}
			return fmt.Errorf("read report status: %w", err)
		}
		if current.Terminal() {
			return ErrReportProcessed
		}
		result.PreviousStatus = current

		adminID, err := findAdminIDTx(ctx, tx, adminTelegramID)
		if err != nil {
			return err
		}
		result.AdminID = adminID

		err = tx.QueryRow(ctx, `
UPDATE reports
SET status = $2, processed_at = NOW(), processed_by = $3
WHERE id = $1
RETURNING id, user_id, message, status, ip_address, user_agent, processed_at, processed_by, created_at
`, reportID, newStatus, adminID).Scan(
			&result.Report.ID, &result.Report.UserID, &result.Report.Message, &result.Report.Status,
			&result.Report.IPAddress, &result.Report.UserAgent, &result.Report.ProcessedAt,
			&result.Report.ProcessedBy, &result.Report.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("update report status: %w", err)
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO report_logs (report_id, action, admin_id, previous_status, new_status, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, reportID, string(newStatus), adminID, string(current), string(newStatus), comment); err != nil {
			return fmt.Errorf("append report log: %w", err)
		}

		if submitterID == nil {
			result.Anonymous = true
			return nil
		}

		submitter, err := findUserRefByIDTx(ctx, tx, *submitterID)
		if err != nil {
			return err
		}
		result.Submitter = submitter

		return nil
	})
	if err != nil {
		return ReportTransition{}, err
	}

	return result, nil
}
