package service

import (
	"context"
	"fmt"
	"log/slog"

	"fieldops/internal/lifecycle"
	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/utils"
)

// UserService manages profiles and the admin side of accounts
type UserService interface {
	UpdateProfile(ctx context.Context, actor model.Identity, in model.UpdateProfileInput) (*model.User, error)
	ApproveWorker(ctx context.Context, actor model.Identity, workerID int64, approved bool) (*model.User, error)
	SetActive(ctx context.Context, actor model.Identity, userID int64, active bool) (*model.User, error)
	List(ctx context.Context, actor model.Identity, filters model.UserFilters, limit, offset int) ([]model.User, int64, error)
}

type userService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository, logger *slog.Logger) UserService {
	return &userService{users: users, logger: logger}
}

// UpdateProfile edits the caller's own account. A field worker who edits
// their profile must be approved again before receiving work.
func (s *userService) UpdateProfile(ctx context.Context, actor model.Identity, in model.UpdateProfileInput) (*model.User, error) {
	if actor.Role != model.RoleUser && actor.Role != model.RoleFieldWorker {
		return nil, newKindError(ErrForbidden, "role %s may not update a profile here", actor.Role)
	}
	in.Normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	upd := model.ProfileUpdate{
		Username:      in.Username,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		ResetApproval: actor.Role == model.RoleFieldWorker,
	}
	if in.Password != nil {
		hashed, err := utils.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		upd.PasswordHash = &hashed
	}

	user, err := s.users.UpdateProfile(ctx, actor.UserID, upd)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, storageError("failed to update profile", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if upd.ResetApproval {
		s.logger.InfoContext(ctx, "field worker profile updated, approval reset", "user_id", user.ID)
	}
	return user, nil
}

func (s *userService) ApproveWorker(ctx context.Context, actor model.Identity, workerID int64, approved bool) (*model.User, error) {
	if res := lifecycle.CanAdminister(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}
	user, err := s.users.SetApproval(ctx, workerID, approved)
	if err != nil {
		return nil, storageError("failed to update approval", err)
	}
	if user == nil {
		return nil, ErrWorkerNotFound
	}
	s.logger.InfoContext(ctx, "field worker approval changed", "worker_id", workerID, "approved", approved, "actor_id", actor.UserID)
	return user, nil
}

func (s *userService) SetActive(ctx context.Context, actor model.Identity, userID int64, active bool) (*model.User, error) {
	if res := lifecycle.CanAdminister(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}
	if userID == actor.UserID && !active {
		return nil, newKindError(ErrInvalidState, "admins cannot deactivate their own account")
	}
	user, err := s.users.SetActive(ctx, userID, active)
	if err != nil {
		return nil, storageError("failed to update active flag", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "account activation changed", "user_id", userID, "active", active, "actor_id", actor.UserID)
	return user, nil
}

func (s *userService) List(ctx context.Context, actor model.Identity, filters model.UserFilters, limit, offset int) ([]model.User, int64, error) {
	if res := lifecycle.CanAdminister(actor); !res.Allowed {
		return nil, 0, newKindError(ErrForbidden, "%s", res.Reason)
	}
	if filters.Role != nil && !filters.Role.Valid() {
		return nil, 0, newKindError(ErrValidation, "unknown role %s", *filters.Role)
	}
	users, total, err := s.users.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, storageError("failed to list users", err)
	}
	return users, total, nil
}
