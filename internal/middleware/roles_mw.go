package middleware

import (
	"net/http"

	"fieldops/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware creates a middleware to check for specific user roles.
// The role middlewares never call c.Next so they can be chained.
func RoleMiddleware(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abort(c, http.StatusForbidden, "Identity not found, ensure JWT middleware runs first")
			return
		}

		for _, allowedRole := range allowedRoles {
			if identity.Role == allowedRole {
				return
			}
		}

		abort(c, http.StatusForbidden, "You do not have permission to access this resource")
	}
}

// ApprovedWorkerMiddleware rejects field workers whose account is awaiting
// approval. Other roles pass through.
func ApprovedWorkerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abort(c, http.StatusForbidden, "Identity not found, ensure JWT middleware runs first")
			return
		}
		if identity.Role == model.RoleFieldWorker && !identity.IsApproved {
			abort(c, http.StatusForbidden, "Field worker account is pending approval")
		}
	}
}

// AdminMiddleware checks if the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}

// CustomerMiddleware checks if the user is a customer
func CustomerMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleUser)
}

// FieldWorkerMiddleware admits approved field workers only
func FieldWorkerMiddleware() gin.HandlerFunc {
	return chain(RoleMiddleware(model.RoleFieldWorker), ApprovedWorkerMiddleware())
}

// WorkerOrAdminMiddleware admits admins and approved field workers
func WorkerOrAdminMiddleware() gin.HandlerFunc {
	return chain(RoleMiddleware(model.RoleFieldWorker, model.RoleAdmin), ApprovedWorkerMiddleware())
}

// chain runs handlers in order inside one route slot, stopping at the first
// abort.
func chain(handlers ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
