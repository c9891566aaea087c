package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/storage"
)

// memStore is an in-memory stand-in for the Postgres tables. It implements
// the repositories and the transaction manager with the same conditional
// write semantics as the SQL.
type memStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	users    map[int64]*model.User
	requests map[int64]*model.ServiceRequest
	proofs   []model.Proof
	nextID   int64

	// failProofCreate makes proof inserts fail.
	failProofCreate error
	// failFind makes point reads fail.
	failFind error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*model.User),
		requests: make(map[int64]*model.ServiceRequest),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(u model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	m.users[u.ID] = &u
	cp := u
	return &cp
}

func (m *memStore) addRequest(r model.ServiceRequest) *model.ServiceRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	m.requests[r.ID] = &r
	cp := r
	return &cp
}

func (m *memStore) request(id int64) model.ServiceRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.requests[id]
}

func (m *memStore) proofCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.proofs)
}

// RunInTx serializes transactions and restores the previous state when fn
// fails.
func (m *memStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	savedRequests := make(map[int64]*model.ServiceRequest, len(m.requests))
	for id, r := range m.requests {
		cp := *r
		savedRequests[id] = &cp
	}
	savedProofs := append([]model.Proof(nil), m.proofs...)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.requests = savedRequests
		m.proofs = savedProofs
		m.mu.Unlock()
		return err
	}
	return nil
}

type memRequests struct{ *memStore }

func (m memRequests) Create(_ context.Context, req *model.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.id()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m memRequests) FindByID(_ context.Context, id int64) (*model.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m memRequests) UpdateStatus(_ context.Context, id int64, expected model.RequestState, target model.Status, now time.Time) (*model.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || !r.Matches(expected) {
		return nil, nil
	}
	r.Status = target
	r.UpdatedAt = now
	if target == model.StatusCompleted {
		if r.CompletedAt == nil {
			t := now
			r.CompletedAt = &t
		}
	} else {
		r.CompletedAt = nil
	}
	cp := *r
	return &cp, nil
}

func (m memRequests) Assign(_ context.Context, id, workerID int64, expected model.RequestState, now time.Time) (*model.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || !r.Matches(expected) {
		return nil, nil
	}
	w, ok := m.users[workerID]
	if !ok || !w.EligibleForAssignment() {
		return nil, nil
	}
	wid := workerID
	r.FieldWorkerID = &wid
	r.Status = model.StatusAssigned
	r.UpdatedAt = now
	r.CompletedAt = nil
	r.Rating = nil
	cp := *r
	return &cp, nil
}

func (m memRequests) Rate(_ context.Context, id, ownerID int64, rating int, now time.Time) (*model.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.UserID != ownerID || r.Status != model.StatusCompleted || r.Rating != nil {
		return nil, nil
	}
	v := rating
	r.Rating = &v
	r.UpdatedAt = now
	cp := *r
	return &cp, nil
}

func matchesRequest(r *model.ServiceRequest, f model.RequestFilters) bool {
	if f.UserID != nil && r.UserID != *f.UserID {
		return false
	}
	if f.FieldWorkerID != nil && !r.IsAssignedTo(*f.FieldWorkerID) {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}

func (m memRequests) List(_ context.Context, f model.RequestFilters, limit, offset int) ([]model.ServiceRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.ServiceRequest
	for _, r := range m.requests {
		if matchesRequest(r, f) {
			all = append(all, *r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.ServiceRequest{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m memRequests) CountByStatus(_ context.Context, f model.RequestFilters) (map[model.Status]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.Status]int64)
	for _, r := range m.requests {
		if matchesRequest(r, f) {
			counts[r.Status]++
		}
	}
	return counts, nil
}

// interleavedRequests runs between once after the first FindByID returns,
// so another actor's write lands between a service's read and its write.
type interleavedRequests struct {
	repository.ServiceRequestRepository
	once    sync.Once
	between func()
}

func (r *interleavedRequests) FindByID(ctx context.Context, id int64) (*model.ServiceRequest, error) {
	req, err := r.ServiceRequestRepository.FindByID(ctx, id)
	r.once.Do(r.between)
	return req, err
}

type memProofs struct{ *memStore }

func (m memProofs) Create(_ context.Context, p *model.Proof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failProofCreate != nil {
		return m.failProofCreate
	}
	p.ID = m.id()
	m.proofs = append(m.proofs, *p)
	return nil
}

func (m memProofs) ListByTask(_ context.Context, taskID int64) ([]model.Proof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Proof{}
	for _, p := range m.proofs {
		if p.TaskID == taskID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

type memUsers struct{ *memStore }

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("failed to create user: %w", &repository.DuplicateError{Constraint: repository.ConstraintUsername})
		}
		if existing.Email == u.Email {
			return fmt.Errorf("failed to create user: %w", &repository.DuplicateError{Constraint: repository.ConstraintEmail})
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memUsers) UpdateProfile(_ context.Context, id int64, upd model.ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	for _, other := range m.users {
		if other.ID != id && other.Username == upd.Username {
			return nil, fmt.Errorf("failed to update user profile: %w", &repository.DuplicateError{Constraint: repository.ConstraintUsername})
		}
	}
	u.Username = upd.Username
	u.Email = upd.Email
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.Phone = replaceOptional(u.Phone, upd.Phone)
	u.Address = replaceOptional(u.Address, upd.Address)
	if upd.ResetApproval {
		u.IsApproved = false
	}
	cp := *u
	return &cp, nil
}

// replaceOptional mirrors the SQL: nil keeps, "" clears, anything else
// replaces.
func replaceOptional(current, next *string) *string {
	switch {
	case next == nil:
		return current
	case *next == "":
		return nil
	}
	v := *next
	return &v
}

func (m memUsers) SetApproval(_ context.Context, workerID int64, approved bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[workerID]
	if !ok || u.Role != model.RoleFieldWorker {
		return nil, nil
	}
	u.IsApproved = approved
	cp := *u
	return &cp, nil
}

func (m memUsers) SetActive(_ context.Context, id int64, active bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.IsActive = active
	cp := *u
	return &cp, nil
}

func (m memUsers) List(_ context.Context, f model.UserFilters, limit, offset int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.PendingApproval && (u.Role != model.RoleFieldWorker || u.IsApproved) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m memUsers) Counts(_ context.Context) (*model.UserCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &model.UserCounts{}
	for _, u := range m.users {
		c.TotalUsers++
		if u.EligibleForAssignment() {
			c.ActiveFieldWorkers++
		}
		if u.Role == model.RoleFieldWorker && !u.IsApproved {
			c.PendingApprovals++
		}
	}
	return c, nil
}

// memFiles records saved proof binaries in memory.
type memFiles struct {
	mu         sync.Mutex
	files      map[string][]byte
	seq        int
	failSave   error
	failRemove error
}

func newMemFiles() *memFiles { return &memFiles{files: make(map[string][]byte)} }

func (f *memFiles) Validate(name string, size int64) error {
	return storage.NewFileStore("", 1024).Validate(name, size)
}

func (f *memFiles) Save(taskID int64, name string, size int64, content io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return "", f.failSave
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.seq++
	path := fmt.Sprintf("uploads/tasks/%d/%d-%s", taskID, f.seq, name)
	f.files[path] = data
	return path, nil
}

func (f *memFiles) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove != nil {
		return f.failRemove
	}
	delete(f.files, path)
	return nil
}

func (f *memFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memStore
	files     *memFiles
	lifecycle *lifecycleService
	dispatch  *dispatchService
	requests  *requestService
	reports   *reportService
	users     *userService

	owner  *model.User
	worker *model.User
	admin  *model.User
}

func newFixture() *fixture {
	store := newMemStore()
	files := newMemFiles()
	logger := discardLogger()
	clock := func() time.Time { return fixedNow }

	lc := NewLifecycleService(memRequests{store}, memProofs{store}, store, files, logger).(*lifecycleService)
	lc.now = clock
	ds := NewDispatchService(memRequests{store}, memUsers{store}, logger).(*dispatchService)
	ds.now = clock
	rs := NewRequestService(memRequests{store}, memProofs{store}).(*requestService)
	rs.now = clock

	return &fixture{
		store:     store,
		files:     files,
		lifecycle: lc,
		dispatch:  ds,
		requests:  rs,
		reports:   NewReportService(memRequests{store}, memUsers{store}).(*reportService),
		users:     NewUserService(memUsers{store}, logger).(*userService),
		owner:     store.addUser(model.User{Username: "owner", Email: "owner@example.com", Role: model.RoleUser, IsActive: true, IsApproved: true}),
		worker:    store.addUser(model.User{Username: "worker", Email: "worker@example.com", Role: model.RoleFieldWorker, IsActive: true, IsApproved: true}),
		admin:     store.addUser(model.User{Username: "admin", Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true, IsApproved: true}),
	}
}

func (f *fixture) addWorker(name string) *model.User {
	return f.store.addUser(model.User{Username: name, Email: name + "@example.com", Role: model.RoleFieldWorker, IsActive: true, IsApproved: true})
}

// requestIn adds a request owned by the fixture owner in status, assigned to
// the fixture worker unless status is PENDING.
func (f *fixture) requestIn(status model.Status) *model.ServiceRequest {
	r := model.ServiceRequest{
		UserID:    f.owner.ID,
		Title:     "Fix boiler",
		Location:  "12 Elm St",
		Urgency:   model.UrgencyHigh,
		Status:    status,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	if status != model.StatusPending {
		wid := f.worker.ID
		r.FieldWorkerID = &wid
	}
	if status == model.StatusCompleted {
		t := fixedNow
		r.CompletedAt = &t
	}
	return f.store.addRequest(r)
}
