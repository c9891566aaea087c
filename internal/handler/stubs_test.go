package handler

import (
	"context"

	"fieldops/internal/model"
	"fieldops/internal/service"
)

type stubAuth struct {
	register func(in model.RegisterInput) (*model.User, error)
	login    func(in model.LoginInput) (*model.User, string, error)
}

func (s *stubAuth) Register(_ context.Context, in model.RegisterInput) (*model.User, error) {
	return s.register(in)
}

func (s *stubAuth) Login(_ context.Context, in model.LoginInput) (*model.User, string, error) {
	return s.login(in)
}

func (s *stubAuth) EnsureAdmin(context.Context, string, string, string) (bool, error) {
	return false, nil
}

type stubRequests struct {
	create func(actor model.Identity, in model.CreateRequestInput) (*model.ServiceRequest, error)
	rate   func(actor model.Identity, id int64, in model.RateInput) (*model.ServiceRequest, error)
	get    func(actor model.Identity, id int64) (*model.ServiceRequestWithProofs, error)
	list   func(actor model.Identity, status *model.Status, limit, offset int) ([]model.ServiceRequest, int64, error)
}

func (s *stubRequests) Create(_ context.Context, actor model.Identity, in model.CreateRequestInput) (*model.ServiceRequest, error) {
	return s.create(actor, in)
}

func (s *stubRequests) Rate(_ context.Context, actor model.Identity, id int64, in model.RateInput) (*model.ServiceRequest, error) {
	return s.rate(actor, id, in)
}

func (s *stubRequests) Get(_ context.Context, actor model.Identity, id int64) (*model.ServiceRequestWithProofs, error) {
	return s.get(actor, id)
}

func (s *stubRequests) List(_ context.Context, actor model.Identity, status *model.Status, limit, offset int) ([]model.ServiceRequest, int64, error) {
	return s.list(actor, status, limit, offset)
}

type stubLifecycle struct {
	updateStatus   func(actor model.Identity, id int64, target model.Status, notes *string, files []service.Attachment) (*model.ServiceRequestWithProofs, error)
	adminSetStatus func(actor model.Identity, id int64, target model.Status) (*model.ServiceRequest, error)
}

func (s *stubLifecycle) UpdateStatus(_ context.Context, actor model.Identity, id int64, target model.Status, notes *string, files []service.Attachment) (*model.ServiceRequestWithProofs, error) {
	return s.updateStatus(actor, id, target, notes, files)
}

func (s *stubLifecycle) AdminSetStatus(_ context.Context, actor model.Identity, id int64, target model.Status) (*model.ServiceRequest, error) {
	return s.adminSetStatus(actor, id, target)
}

type stubDispatch struct {
	assign func(actor model.Identity, requestID, workerID int64) (*model.ServiceRequest, error)
}

func (s *stubDispatch) Assign(_ context.Context, actor model.Identity, requestID, workerID int64) (*model.ServiceRequest, error) {
	return s.assign(actor, requestID, workerID)
}

type stubUsers struct {
	updateProfile func(actor model.Identity, in model.UpdateProfileInput) (*model.User, error)
	approve       func(actor model.Identity, id int64, approved bool) (*model.User, error)
	setActive     func(actor model.Identity, id int64, active bool) (*model.User, error)
	list          func(actor model.Identity, f model.UserFilters, limit, offset int) ([]model.User, int64, error)
}

func (s *stubUsers) UpdateProfile(_ context.Context, actor model.Identity, in model.UpdateProfileInput) (*model.User, error) {
	return s.updateProfile(actor, in)
}

func (s *stubUsers) ApproveWorker(_ context.Context, actor model.Identity, id int64, approved bool) (*model.User, error) {
	return s.approve(actor, id, approved)
}

func (s *stubUsers) SetActive(_ context.Context, actor model.Identity, id int64, active bool) (*model.User, error) {
	return s.setActive(actor, id, active)
}

func (s *stubUsers) List(_ context.Context, actor model.Identity, f model.UserFilters, limit, offset int) ([]model.User, int64, error) {
	return s.list(actor, f, limit, offset)
}

type stubReports struct {
	owner  func(actor model.Identity) (*model.Summary, error)
	worker func(actor model.Identity) (*model.Summary, error)
	admin  func(actor model.Identity) (*model.AdminSummary, error)
}

func (s *stubReports) OwnerSummary(_ context.Context, actor model.Identity) (*model.Summary, error) {
	return s.owner(actor)
}

func (s *stubReports) WorkerSummary(_ context.Context, actor model.Identity) (*model.Summary, error) {
	return s.worker(actor)
}

func (s *stubReports) AdminSummary(_ context.Context, actor model.Identity) (*model.AdminSummary, error) {
	return s.admin(actor)
}

type stubIdentities map[int64]*model.User

func (s stubIdentities) FindByID(_ context.Context, id int64) (*model.User, error) {
	return s[id], nil
}
