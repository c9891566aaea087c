package service

import (
	"context"

	"fieldops/internal/lifecycle"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

// ReportService derives dashboard summaries from the current rows. Nothing
// is cached.
type ReportService interface {
	OwnerSummary(ctx context.Context, actor model.Identity) (*model.Summary, error)
	WorkerSummary(ctx context.Context, actor model.Identity) (*model.Summary, error)
	AdminSummary(ctx context.Context, actor model.Identity) (*model.AdminSummary, error)
}

type reportService struct {
	requests repository.ServiceRequestRepository
	users    repository.UserRepository
}

// NewReportService creates a new ReportService
func NewReportService(requests repository.ServiceRequestRepository, users repository.UserRepository) ReportService {
	return &reportService{requests: requests, users: users}
}

func (s *reportService) OwnerSummary(ctx context.Context, actor model.Identity) (*model.Summary, error) {
	if actor.Role != model.RoleUser {
		return nil, newKindError(ErrForbidden, "only customers have an owner summary")
	}
	return s.summary(ctx, model.RequestFilters{UserID: &actor.UserID})
}

func (s *reportService) WorkerSummary(ctx context.Context, actor model.Identity) (*model.Summary, error) {
	if actor.Role != model.RoleFieldWorker {
		return nil, newKindError(ErrForbidden, "only field workers have a worker summary")
	}
	return s.summary(ctx, model.RequestFilters{FieldWorkerID: &actor.UserID})
}

func (s *reportService) summary(ctx context.Context, filters model.RequestFilters) (*model.Summary, error) {
	counts, err := s.requests.CountByStatus(ctx, filters)
	if err != nil {
		return nil, storageError("failed to count service requests", err)
	}
	summary := model.NewSummary(counts)
	return &summary, nil
}

func (s *reportService) AdminSummary(ctx context.Context, actor model.Identity) (*model.AdminSummary, error) {
	if res := lifecycle.CanAdminister(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}

	userCounts, err := s.users.Counts(ctx)
	if err != nil {
		return nil, storageError("failed to count users", err)
	}
	counts, err := s.requests.CountByStatus(ctx, model.RequestFilters{})
	if err != nil {
		return nil, storageError("failed to count service requests", err)
	}

	tasks := model.NewSummary(counts)
	return &model.AdminSummary{
		UserCounts:    *userCounts,
		TasksByStatus: tasks.ByStatus,
		TotalTasks:    tasks.Total,
	}, nil
}
