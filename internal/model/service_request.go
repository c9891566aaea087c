package model

import "time"

// Status is a lifecycle state of a service request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Statuses lists every lifecycle state in lifecycle order.
var Statuses = []Status{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted}

// Valid reports whether s is a member of the lifecycle enum.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Urgency is how soon the customer needs the work done.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// ServiceRequest is a unit of field work submitted by a user.
type ServiceRequest struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	FieldWorkerID *int64     `json:"field_worker_id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Location      string     `json:"location"`
	Urgency       Urgency    `json:"urgency"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Rating        *int       `json:"rating"`
}

// IsAssignedTo reports whether workerID is the current assignee.
func (r *ServiceRequest) IsAssignedTo(workerID int64) bool {
	return r.FieldWorkerID != nil && *r.FieldWorkerID == workerID
}

// RequestState is the part of a request a conditional write is checked
// against. A write made on a stale read misses when either the status or the
// assignee changed in between.
type RequestState struct {
	Status        Status
	FieldWorkerID *int64
}

// State returns the precondition for writes based on this read.
func (r *ServiceRequest) State() RequestState {
	return RequestState{Status: r.Status, FieldWorkerID: r.FieldWorkerID}
}

// Matches reports whether the request still has the expected status and
// assignee.
func (r *ServiceRequest) Matches(expected RequestState) bool {
	if r.Status != expected.Status {
		return false
	}
	if r.FieldWorkerID == nil || expected.FieldWorkerID == nil {
		return r.FieldWorkerID == nil && expected.FieldWorkerID == nil
	}
	return *r.FieldWorkerID == *expected.FieldWorkerID
}

// ServiceRequestWithProofs is a request merged with its ordered proofs.
type ServiceRequestWithProofs struct {
	ServiceRequest
	Proofs []Proof `json:"proofs"`
}

// Proof is an evidence artifact attached to a service request.
type Proof struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	ImagePath  *string   `json:"image_path"`
	Notes      *string   `json:"notes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RequestFilters scopes request listings and status counts. A nil field is
// not filtered on.
type RequestFilters struct {
	UserID        *int64
	FieldWorkerID *int64
	Status        *Status
}

// Summary is a per-actor view of request counts.
type Summary struct {
	Total    int64            `json:"total_tasks"`
	ByStatus map[Status]int64 `json:"tasks_by_status"`
}

// NewSummary builds a summary from a status histogram, zero-filling
// every missing status.
func NewSummary(counts map[Status]int64) Summary {
	s := Summary{ByStatus: make(map[Status]int64, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = counts[st]
		s.Total += counts[st]
	}
	return s
}

// AdminSummary represents the global statistics for admin
type AdminSummary struct {
	UserCounts
	TasksByStatus map[Status]int64 `json:"tasks_by_status"`
	TotalTasks    int64            `json:"total_tasks"`
}
