package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"fieldops/internal/lifecycle"
	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/storage"
)

// Attachment is one uploaded proof file
type Attachment struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// ProofFileStore persists proof binaries outside the database.
// *storage.FileStore implements it.
type ProofFileStore interface {
	Validate(name string, size int64) error
	Save(taskID int64, name string, size int64, content io.Reader) (string, error)
	Remove(path string) error
}

// LifecycleService moves service requests through their status lifecycle
type LifecycleService interface {
	// UpdateStatus is the guarded transition used by field workers and
	// admins. Attachments and notes become proofs linked atomically with the
	// status write.
	UpdateStatus(ctx context.Context, actor model.Identity, requestID int64, target model.Status, notes *string, files []Attachment) (*model.ServiceRequestWithProofs, error)
	// AdminSetStatus overrides the status without consulting the
	// transition table.
	AdminSetStatus(ctx context.Context, actor model.Identity, requestID int64, target model.Status) (*model.ServiceRequest, error)
}

type lifecycleService struct {
	requests repository.ServiceRequestRepository
	proofs   repository.ProofRepository
	tx       repository.TransactionManager
	files    ProofFileStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(requests repository.ServiceRequestRepository, proofs repository.ProofRepository,
	tx repository.TransactionManager, files ProofFileStore, logger *slog.Logger) LifecycleService {
	return &lifecycleService{
		requests: requests,
		proofs:   proofs,
		tx:       tx,
		files:    files,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *lifecycleService) UpdateStatus(ctx context.Context, actor model.Identity, requestID int64, target model.Status, notes *string, files []Attachment) (*model.ServiceRequestWithProofs, error) {
	if res := lifecycle.CanCallStatusUpdate(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}
	if !target.Valid() {
		return nil, newKindError(ErrValidation, "status must be one of %v", model.Statuses)
	}
	for _, f := range files {
		if err := s.files.Validate(f.Filename, f.Size); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	notes = normalizeNotes(notes)

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storageError("failed to load service request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if res := lifecycle.CanUpdateStatus(actor, req); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}

	tc := lifecycle.TransitionContext{
		RequestID:  req.ID,
		From:       req.Status,
		To:         target,
		HasProofs:  len(files) > 0 || notes != nil,
		IsAssigned: req.FieldWorkerID != nil,
	}
	if res := lifecycle.CanTransition(tc); !res.Allowed {
		return nil, &TransitionError{From: req.Status, To: target}
	}
	if res := lifecycle.CanEnterStatus(tc); !res.Allowed {
		return nil, newKindError(ErrInvalidState, "%s", res.Reason)
	}

	// Binaries are written before the row transaction so a failed commit
	// can remove them again.
	paths, err := s.stageFiles(req.ID, files)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var updated *model.ServiceRequest
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.requests.UpdateStatus(txCtx, req.ID, req.State(), target, now)
		if err != nil {
			return storageError("failed to update service request status", err)
		}
		if updated == nil {
			return ErrStaleRequest
		}
		return s.linkProofs(txCtx, req.ID, paths, notes, now)
	})
	if err != nil {
		return nil, s.discard(paths, err)
	}

	s.logger.InfoContext(ctx, "service request status updated",
		"request_id", req.ID, "actor_id", actor.UserID, "from", req.Status, "to", target, "files", len(paths))

	proofs, err := s.proofs.ListByTask(ctx, req.ID)
	if err != nil {
		return nil, storageError("failed to load proofs", err)
	}
	return &model.ServiceRequestWithProofs{ServiceRequest: *updated, Proofs: proofs}, nil
}

func (s *lifecycleService) AdminSetStatus(ctx context.Context, actor model.Identity, requestID int64, target model.Status) (*model.ServiceRequest, error) {
	if res := lifecycle.CanAdminister(actor); !res.Allowed {
		return nil, newKindError(ErrForbidden, "%s", res.Reason)
	}
	if !target.Valid() {
		return nil, newKindError(ErrValidation, "status must be one of %v", model.Statuses)
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storageError("failed to load service request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	tc := lifecycle.TransitionContext{RequestID: req.ID, From: req.Status, To: target, IsAssigned: req.FieldWorkerID != nil}
	if res := lifecycle.CanEnterStatus(tc); !res.Allowed {
		return nil, newKindError(ErrInvalidState, "%s", res.Reason)
	}

	updated, err := s.requests.UpdateStatus(ctx, req.ID, req.State(), target, s.now())
	if err != nil {
		return nil, storageError("failed to override service request status", err)
	}
	if updated == nil {
		return nil, ErrStaleRequest
	}

	s.logger.WarnContext(ctx, "admin status override",
		"request_id", req.ID, "actor_id", actor.UserID, "from", req.Status, "to", target)
	return updated, nil
}

// stageFiles writes every attachment to the file store. On failure the
// files already written are removed.
func (s *lifecycleService) stageFiles(taskID int64, files []Attachment) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := s.files.Save(taskID, f.Filename, f.Size, f.Content)
		if err != nil {
			if errors.Is(err, storage.ErrFileSizeExceeded) || errors.Is(err, storage.ErrInvalidFileFormat) {
				err = fmt.Errorf("%w: %w", ErrValidation, err)
			} else {
				err = fmt.Errorf("failed to store proof file: %w", err)
			}
			return nil, s.discard(paths, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// linkProofs inserts one proof per stored file, each carrying the notes.
// Notes without files become a single notes-only proof.
func (s *lifecycleService) linkProofs(ctx context.Context, taskID int64, paths []string, notes *string, now time.Time) error {
	if len(paths) == 0 {
		if notes == nil {
			return nil
		}
		if err := s.proofs.Create(ctx, &model.Proof{TaskID: taskID, Notes: notes, UploadedAt: now}); err != nil {
			return storageError("failed to link proof", err)
		}
		return nil
	}
	for i := range paths {
		proof := &model.Proof{TaskID: taskID, ImagePath: &paths[i], Notes: notes, UploadedAt: now}
		if err := s.proofs.Create(ctx, proof); err != nil {
			return storageError("failed to link proof", err)
		}
	}
	return nil
}

// discard removes staged files after cause. If a file cannot be removed
// the stored binaries and the rows disagree, which is a partial failure.
func (s *lifecycleService) discard(paths []string, cause error) error {
	var cleanupErrs []error
	for _, p := range paths {
		if err := s.files.Remove(p); err != nil {
			cleanupErrs = append(cleanupErrs, err)
		}
	}
	if len(cleanupErrs) == 0 {
		return cause
	}
	cleanupErr := errors.Join(cleanupErrs...)
	s.logger.Error("failed to remove staged proof files", "paths", paths, "error", cleanupErr)
	return fmt.Errorf("%w: %w", ErrPartialFailure, errors.Join(cause, cleanupErr))
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
