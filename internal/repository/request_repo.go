package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops/internal/model"

	"github.com/jackc/pgx/v5"
)

// ServiceRequestRepository defines operations for service request rows.
//
// The mutating methods are conditional writes: they only touch the row when
// its status and assignee still equal expected, and return (nil, nil) when
// the precondition no longer holds or the row is gone.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *model.ServiceRequest) error
	FindByID(ctx context.Context, id int64) (*model.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id int64, expected model.RequestState, target model.Status, now time.Time) (*model.ServiceRequest, error)
	Assign(ctx context.Context, id, workerID int64, expected model.RequestState, now time.Time) (*model.ServiceRequest, error)
	Rate(ctx context.Context, id, ownerID int64, rating int, now time.Time) (*model.ServiceRequest, error)
	List(ctx context.Context, filters model.RequestFilters, limit, offset int) ([]model.ServiceRequest, int64, error)
	CountByStatus(ctx context.Context, filters model.RequestFilters) (map[model.Status]int64, error)
}

type serviceRequestRepository struct {
	db DB
}

// NewServiceRequestRepository creates a new ServiceRequestRepository
func NewServiceRequestRepository(db DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

const requestColumns = `id, user_id, field_worker_id, title, description, location, urgency, status,
                        created_at, updated_at, completed_at, rating`

func scanRequest(row pgx.Row) (*model.ServiceRequest, error) {
	r := &model.ServiceRequest{}
	err := row.Scan(&r.ID, &r.UserID, &r.FieldWorkerID, &r.Title, &r.Description, &r.Location,
		&r.Urgency, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt, &r.Rating)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *serviceRequestRepository) findOne(ctx context.Context, op, sql string, args ...any) (*model.ServiceRequest, error) {
	req, err := scanRequest(conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return req, nil
}

// Create inserts a new PENDING request with no assignee
func (r *serviceRequestRepository) Create(ctx context.Context, req *model.ServiceRequest) error {
	sql := `INSERT INTO service_requests (user_id, title, description, location, urgency, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := conn(ctx, r.db).QueryRow(ctx, sql, req.UserID, req.Title, req.Description, req.Location,
		req.Urgency, req.Status, req.CreatedAt, req.UpdatedAt).Scan(&req.ID)
	if err != nil {
		return classify("failed to create service request", err)
	}
	return nil
}

// FindByID retrieves a request by its ID
func (r *serviceRequestRepository) FindByID(ctx context.Context, id int64) (*model.ServiceRequest, error) {
	return r.findOne(ctx, "failed to find service request by ID",
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id)
}

// UpdateStatus moves the request from expected to target. completed_at is
// stamped on first entry to COMPLETED and cleared on any other status.
func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, id int64, expected model.RequestState, target model.Status, now time.Time) (*model.ServiceRequest, error) {
	sql := `UPDATE service_requests
            SET status = $1::text,
                updated_at = $2,
                completed_at = CASE WHEN $1::text = 'COMPLETED' THEN COALESCE(completed_at, $2) ELSE NULL END
            WHERE id = $3 AND status = $4 AND field_worker_id IS NOT DISTINCT FROM $5::bigint
            RETURNING ` + requestColumns
	return r.findOne(ctx, "failed to update service request status", sql,
		target, now, id, expected.Status, expected.FieldWorkerID)
}

// Assign sets the field worker and forces ASSIGNED. The worker's
// eligibility is re-checked in the same statement. completed_at and rating
// are cleared since the request is no longer COMPLETED.
func (r *serviceRequestRepository) Assign(ctx context.Context, id, workerID int64, expected model.RequestState, now time.Time) (*model.ServiceRequest, error) {
	sql := `UPDATE service_requests
            SET field_worker_id = $1, status = 'ASSIGNED', updated_at = $2, completed_at = NULL, rating = NULL
            WHERE id = $3 AND status = $4 AND field_worker_id IS NOT DISTINCT FROM $5::bigint
              AND EXISTS (SELECT 1 FROM users u
                          WHERE u.id = $1 AND u.role = 'FIELD_WORKER' AND u.is_active AND u.is_approved)
            RETURNING ` + requestColumns
	return r.findOne(ctx, "failed to assign service request", sql,
		workerID, now, id, expected.Status, expected.FieldWorkerID)
}

// Rate stores the owner's rating once the request is COMPLETED. The write
// only happens while no rating is stored.
func (r *serviceRequestRepository) Rate(ctx context.Context, id, ownerID int64, rating int, now time.Time) (*model.ServiceRequest, error) {
	sql := `UPDATE service_requests
            SET rating = $1, updated_at = $2
            WHERE id = $3 AND user_id = $4 AND status = 'COMPLETED' AND rating IS NULL
            RETURNING ` + requestColumns
	return r.findOne(ctx, "failed to rate service request", sql, rating, now, id, ownerID)
}

func requestWhere(filters model.RequestFilters) (string, []any) {
	var conditions []string
	args := []any{}
	argCount := 1

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argCount))
		args = append(args, *filters.UserID)
		argCount++
	}
	if filters.FieldWorkerID != nil {
		conditions = append(conditions, fmt.Sprintf("field_worker_id = $%d", argCount))
		args = append(args, *filters.FieldWorkerID)
		argCount++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filters.Status)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of requests, newest first, and the total match count
func (r *serviceRequestRepository) List(ctx context.Context, filters model.RequestFilters, limit, offset int) ([]model.ServiceRequest, int64, error) {
	whereClause, args := requestWhere(filters)
	db := conn(ctx, r.db)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, classify("failed to count service requests", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		requestColumns, whereClause, len(args)+1, len(args)+2)
	rows, err := db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, classify("failed to query service requests", err)
	}
	defer rows.Close()

	requests := []model.ServiceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan service request row: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("error iterating service request rows", err)
	}
	return requests, total, nil
}

// CountByStatus returns the status histogram of matching requests
func (r *serviceRequestRepository) CountByStatus(ctx context.Context, filters model.RequestFilters) (map[model.Status]int64, error) {
	whereClause, args := requestWhere(filters)
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT status, COUNT(*) FROM service_requests`+whereClause+` GROUP BY status`, args...)
	if err != nil {
		return nil, classify("failed to count service requests by status", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int64)
	for rows.Next() {
		var status model.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating status counts", err)
	}
	return counts, nil
}
