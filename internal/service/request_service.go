package service

import (
	"context"
	"time"

	"fieldops/internal/lifecycle"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// RequestService handles customer-facing service request operations
type RequestService interface {
	Create(ctx context.Context, actor model.Identity, in model.CreateRequestInput) (*model.ServiceRequest, error)
	Rate(ctx context.Context, actor model.Identity, requestID int64, in model.RateInput) (*model.ServiceRequest, error)
	Get(ctx context.Context, actor model.Identity, requestID int64) (*model.ServiceRequestWithProofs, error)
	List(ctx context.Context, actor model.Identity, status *model.Status, limit, offset int) ([]model.ServiceRequest, int64, error)
}

type requestService struct {
	requests repository.ServiceRequestRepository
	proofs   repository.ProofRepository
	now      func() time.Time
}

// NewRequestService creates a new RequestService
func NewRequestService(requests repository.ServiceRequestRepository, proofs repository.ProofRepository) RequestService {
	return &requestService{
		requests: requests,
		proofs:   proofs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *requestService) Create(ctx context.Context, actor model.Identity, in model.CreateRequestInput) (*model.ServiceRequest, error) {
	if res := lifecycle.CanSubmitRequest(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}
	in.Normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}
	now := s.now()
	req := &model.ServiceRequest{
		UserID:      actor.UserID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Urgency:     urgency,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, storageError("failed to create service request", err)
	}
	return req, nil
}

// Rate stores the owner's rating of a completed request. Ratings are
// write-once.
func (s *requestService) Rate(ctx context.Context, actor model.Identity, requestID int64, in model.RateInput) (*model.ServiceRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storageError("failed to load service request", err)
	}
	if req == nil || actor.Role != model.RoleUser || req.UserID != actor.UserID {
		return nil, ErrRequestNotFound
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if res := lifecycle.CanRate(actor, req); !res.Allowed {
		return nil, rateDenied(req, res)
	}

	updated, err := s.requests.Rate(ctx, req.ID, actor.UserID, in.Rating, s.now())
	if err != nil {
		return nil, storageError("failed to rate service request", err)
	}
	if updated != nil {
		return updated, nil
	}

	// The conditional write missed: find out whether someone rated first or
	// the request left COMPLETED.
	current, err := s.requests.FindByID(ctx, req.ID)
	if err != nil {
		return nil, storageError("failed to reload service request", err)
	}
	switch {
	case current == nil:
		return nil, ErrRequestNotFound
	case current.Rating != nil:
		return nil, ErrAlreadyRated
	case current.Status != model.StatusCompleted:
		return nil, newKindError(ErrInvalidState, "cannot rate request %d while it is %s", current.ID, current.Status)
	}
	return nil, ErrStaleRequest
}

// rateDenied maps a CanRate denial to its error kind. The guard's reason is
// kept wherever the kind has no fixed message.
func rateDenied(req *model.ServiceRequest, res lifecycle.GuardResult) error {
	switch {
	case req.Status != model.StatusCompleted:
		return newKindError(ErrInvalidState, "%s", res.Reason)
	case req.Rating != nil:
		return ErrAlreadyRated
	}
	return newKindError(ErrForbidden, "%s", res.Reason)
}

func (s *requestService) Get(ctx context.Context, actor model.Identity, requestID int64) (*model.ServiceRequestWithProofs, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storageError("failed to load service request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	// Requests the caller may not see are reported as missing.
	if res := lifecycle.CanView(actor, req); !res.Allowed {
		return nil, ErrRequestNotFound
	}

	proofs, err := s.proofs.ListByTask(ctx, req.ID)
	if err != nil {
		return nil, storageError("failed to load proofs", err)
	}
	return &model.ServiceRequestWithProofs{ServiceRequest: *req, Proofs: proofs}, nil
}

// List scopes the listing by role: customers see their own requests, field
// workers the ones assigned to them, admins everything.
func (s *requestService) List(ctx context.Context, actor model.Identity, status *model.Status, limit, offset int) ([]model.ServiceRequest, int64, error) {
	if status != nil && !status.Valid() {
		return nil, 0, newKindError(ErrValidation, "status must be one of %v", model.Statuses)
	}

	filters := model.RequestFilters{Status: status}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleFieldWorker:
		filters.FieldWorkerID = &actor.UserID
	case model.RoleUser:
		filters.UserID = &actor.UserID
	default:
		return nil, 0, newKindError(ErrForbidden, "role %s may not list service requests", actor.Role)
	}

	requests, total, err := s.requests.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, storageError("failed to list service requests", err)
	}
	return requests, total, nil
}
