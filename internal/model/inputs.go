package model

import "strings"

// CreateRequestInput is the payload of a new service request
type CreateRequestInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Location    string  `json:"location" validate:"required,max=255"`
	Urgency     Urgency `json:"urgency" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// Normalize trims the free-text fields so blank values fail validation. A
// blank description is dropped.
func (in *CreateRequestInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
}

// RateInput carries a customer's rating
type RateInput struct {
	Rating int `json:"rating" validate:"min=1,max=5"`
}

// RegisterInput is the public sign-up payload. ADMIN passes validation and
// is refused by the auth service.
type RegisterInput struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Role     Role    `json:"role" validate:"required,oneof=USER FIELD_WORKER ADMIN"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
}

// LoginInput is the login payload
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput is a self-service profile edit. A nil password keeps
// the current one. Omitted phone/address are kept, "" clears them.
type UpdateProfileInput struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
}

// Normalize trims the profile fields. Phone and address keep their
// presence, so a blank value still clears the stored one.
func (in *UpdateProfileInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = trimmedCopy(in.Phone)
	in.Address = trimmedCopy(in.Address)
}

func trimmedCopy(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// AssignInput names the field worker to dispatch
type AssignInput struct {
	FieldWorkerID int64 `json:"field_worker_id" validate:"required,gt=0"`
}

// StatusInput carries a target status for the admin override
type StatusInput struct {
	Status Status `json:"status" validate:"required"`
}

// ApprovalInput approves or rejects a field worker
type ApprovalInput struct {
	Approved *bool `json:"approved" validate:"required"`
}

// ActiveInput activates or deactivates an account
type ActiveInput struct {
	Active *bool `json:"active" validate:"required"`
}
