package lifecycle

import "fieldops/internal/model"

// CanUpdateStatus evaluates whether actor may run a guarded status update on req.
// Rules:
// - Admins may update any request
// - Field workers may update only requests assigned to them
// - Users may never update status
func CanUpdateStatus(actor model.Identity, req *model.ServiceRequest) GuardResult {
	switch actor.Role {
	case model.RoleAdmin:
		return allow()
	case model.RoleFieldWorker:
		if req.IsAssignedTo(actor.UserID) {
			return allow()
		}
		return deny("request %d is not assigned to you", req.ID)
	default:
		return deny("role %s may not update request status", actor.Role)
	}
}

// CanCallStatusUpdate is the request-independent half of CanUpdateStatus,
// checked before any storage access.
func CanCallStatusUpdate(actor model.Identity) GuardResult {
	if actor.Role == model.RoleAdmin || actor.Role == model.RoleFieldWorker {
		return allow()
	}
	return deny("role %s may not update request status", actor.Role)
}

// CanAdminister evaluates admin-only capabilities (assignment, overrides,
// approvals, global reports).
func CanAdminister(actor model.Identity) GuardResult {
	if actor.Role != model.RoleAdmin {
		return deny("admin role required")
	}
	return allow()
}

// CanAssign is the assignment capability.
func CanAssign(actor model.Identity) GuardResult { return CanAdminister(actor) }

// CanSubmitRequest evaluates whether actor may create service requests.
func CanSubmitRequest(actor model.Identity) GuardResult {
	if actor.Role != model.RoleUser {
		return deny("only customers may submit service requests")
	}
	return allow()
}

// CanRate evaluates whether actor may rate req.
// Rules:
// - Only the owning customer may rate
// - The request must be COMPLETED
// - A rating is written once
func CanRate(actor model.Identity, req *model.ServiceRequest) GuardResult {
	if actor.Role != model.RoleUser || req.UserID != actor.UserID {
		return deny("request %d not found", req.ID)
	}
	if req.Status != model.StatusCompleted {
		return deny("cannot rate request %d while it is %s", req.ID, req.Status)
	}
	if req.Rating != nil {
		return deny("request %d has already been rated", req.ID)
	}
	return allow()
}

// CanView evaluates read access to a single request: its owner, its
// assignee, or any admin.
func CanView(actor model.Identity, req *model.ServiceRequest) GuardResult {
	switch {
	case actor.Role == model.RoleAdmin:
		return allow()
	case actor.Role == model.RoleUser && req.UserID == actor.UserID:
		return allow()
	case actor.Role == model.RoleFieldWorker && req.IsAssignedTo(actor.UserID):
		return allow()
	}
	return deny("request %d not found", req.ID)
}

// CanReceiveAssignment evaluates the approval gate for a candidate worker.
// Rules:
// - Worker must be a FIELD_WORKER
// - Worker must be active and approved
func CanReceiveAssignment(worker *model.User) GuardResult {
	if worker.Role != model.RoleFieldWorker {
		return deny("user %d is not a field worker", worker.ID)
	}
	if !worker.IsActive || !worker.IsApproved {
		return deny("field worker %d is not active and approved", worker.ID)
	}
	return allow()
}
