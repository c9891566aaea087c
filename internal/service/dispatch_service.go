package service

import (
	"context"
	"log/slog"
	"time"

	"fieldops/internal/lifecycle"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// DispatchService assigns service requests to field workers
type DispatchService interface {
	Assign(ctx context.Context, actor model.Identity, requestID, workerID int64) (*model.ServiceRequest, error)
}

type dispatchService struct {
	requests repository.ServiceRequestRepository
	users    repository.UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(requests repository.ServiceRequestRepository, users repository.UserRepository, logger *slog.Logger) DispatchService {
	return &dispatchService{
		requests: requests,
		users:    users,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Assign sets the field worker of a request and forces it to ASSIGNED from
// any status. A completed request that is reassigned loses its completion
// time and rating.
func (s *dispatchService) Assign(ctx context.Context, actor model.Identity, requestID, workerID int64) (*model.ServiceRequest, error) {
	if res := lifecycle.CanAssign(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storageError("failed to load service request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	worker, err := s.users.FindByID(ctx, workerID)
	if err != nil {
		return nil, storageError("failed to load field worker", err)
	}
	if worker == nil || worker.Role != model.RoleFieldWorker {
		return nil, ErrWorkerNotFound
	}
	if res := lifecycle.CanReceiveAssignment(worker); !res.Allowed {
		return nil, newKindError(ErrIneligible, "%s", res.Reason)
	}

	// The statement re-checks eligibility, so a worker deactivated since the
	// read above makes the write miss just like a status or assignee change
	// does.
	updated, err := s.requests.Assign(ctx, req.ID, worker.ID, req.State(), s.now())
	if err != nil {
		return nil, storageError("failed to assign service request", err)
	}
	if updated == nil {
		return nil, ErrStaleRequest
	}

	if req.Status == model.StatusCompleted {
		s.logger.WarnContext(ctx, "completed service request reassigned",
			"request_id", req.ID, "actor_id", actor.UserID, "worker_id", worker.ID)
	} else {
		s.logger.InfoContext(ctx, "service request assigned",
			"request_id", req.ID, "actor_id", actor.UserID, "worker_id", worker.ID, "from", req.Status)
	}
	return updated, nil
}
