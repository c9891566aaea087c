package service

import (
	"context"
	"fmt"
	"log/slog"

	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/utils"
)

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, in model.RegisterInput) (*model.User, error)
	Login(ctx context.Context, in model.LoginInput) (*model.User, string, error)
	// EnsureAdmin creates the admin account if the username is free. It
	// reports whether an account was created.
	EnsureAdmin(ctx context.Context, username, email, password string) (bool, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtUtil  *utils.JWTUtil
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtUtil *utils.JWTUtil, logger *slog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtUtil:  jwtUtil,
		logger:   logger,
	}
}

// Register creates a customer or field worker account. Field workers start
// unapproved.
func (s *authService) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Role == model.RoleAdmin {
		return nil, ErrAdminSignupDisabled
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Role:         in.Role,
		IsActive:     true,
		IsApproved:   in.Role != model.RoleFieldWorker,
		Phone:        in.Phone,
		Address:      in.Address,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, storageError("failed to create user in repository", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, in model.LoginInput) (*model.User, string, error) {
	if err := validateInput(in); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, "", storageError("error finding user by username", err)
	}
	if user == nil || !utils.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrAccountInactive
	}
	if user.Role == model.RoleFieldWorker && !user.IsApproved {
		return nil, "", ErrWorkerNotApproved
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	in := model.RegisterInput{Username: username, Email: email, Password: password, Role: model.RoleAdmin}
	if err := validateInput(in); err != nil {
		return false, err
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, storageError("error finding user by username", err)
	}
	if existing != nil {
		if existing.Role != model.RoleAdmin {
			return false, newKindError(ErrConflict, "username %s belongs to a %s account", username, existing.Role)
		}
		return false, nil
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         model.RoleAdmin,
		IsActive:     true,
		IsApproved:   true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		if dup := duplicateError(err); dup != nil {
			return false, dup
		}
		return false, storageError("failed to create admin", err)
	}

	s.logger.InfoContext(ctx, "admin account created", "user_id", admin.ID, "username", admin.Username)
	return true, nil
}
