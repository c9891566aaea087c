package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	users map[int64]*model.User
	err   error
}

func (s stubResolver) FindByID(_ context.Context, id int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func newTestRouter(resolver IdentityResolver, jwtUtil *utils.JWTUtil, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := append([]gin.HandlerFunc{JWTAuthMiddleware(jwtUtil, resolver, logger)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "role": identity.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, jwtUtil *utils.JWTUtil, id int64, role model.Role) string {
	t.Helper()
	token, err := jwtUtil.GenerateToken(id, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestJWTAuthMiddleware(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	resolver := stubResolver{users: map[int64]*model.User{
		1: {ID: 1, Role: model.RoleUser, IsActive: true, IsApproved: true},
		2: {ID: 2, Role: model.RoleFieldWorker, IsActive: false, IsApproved: true},
	}}
	r := newTestRouter(resolver, jwtUtil)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"deleted account", bearer(t, jwtUtil, 99, model.RoleUser), http.StatusUnauthorized},
		{"inactive account", bearer(t, jwtUtil, 2, model.RoleFieldWorker), http.StatusForbidden},
		{"valid", bearer(t, jwtUtil, 1, model.RoleUser), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestJWTAuthMiddleware_RoleComesFromStore(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	// The token still says ADMIN but the account has been changed since.
	resolver := stubResolver{users: map[int64]*model.User{
		1: {ID: 1, Role: model.RoleUser, IsActive: true, IsApproved: true},
	}}
	r := newTestRouter(resolver, jwtUtil, AdminMiddleware())

	w := doRequest(r, bearer(t, jwtUtil, 1, model.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJWTAuthMiddleware_StoreUnavailable(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	resolver := stubResolver{err: errors.Join(repository.ErrUnavailable, errors.New("dial tcp: refused"))}
	r := newTestRouter(resolver, jwtUtil)

	w := doRequest(r, bearer(t, jwtUtil, 1, model.RoleUser))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestRoleMiddlewares(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("secret", 1)
	resolver := stubResolver{users: map[int64]*model.User{
		1: {ID: 1, Role: model.RoleUser, IsActive: true, IsApproved: true},
		2: {ID: 2, Role: model.RoleFieldWorker, IsActive: true, IsApproved: true},
		3: {ID: 3, Role: model.RoleFieldWorker, IsActive: true, IsApproved: false},
		4: {ID: 4, Role: model.RoleAdmin, IsActive: true, IsApproved: true},
	}}

	tests := []struct {
		name       string
		mw         gin.HandlerFunc
		userID     int64
		wantStatus int
	}{
		{"admin route admits admin", AdminMiddleware(), 4, http.StatusOK},
		{"admin route rejects worker", AdminMiddleware(), 2, http.StatusForbidden},
		{"customer route admits customer", CustomerMiddleware(), 1, http.StatusOK},
		{"customer route rejects admin", CustomerMiddleware(), 4, http.StatusForbidden},
		{"worker route admits approved worker", FieldWorkerMiddleware(), 2, http.StatusOK},
		{"worker route rejects unapproved worker", FieldWorkerMiddleware(), 3, http.StatusForbidden},
		{"worker route rejects customer", FieldWorkerMiddleware(), 1, http.StatusForbidden},
		{"status route admits admin", WorkerOrAdminMiddleware(), 4, http.StatusOK},
		{"status route admits approved worker", WorkerOrAdminMiddleware(), 2, http.StatusOK},
		{"status route rejects unapproved worker", WorkerOrAdminMiddleware(), 3, http.StatusForbidden},
		{"status route rejects customer", WorkerOrAdminMiddleware(), 1, http.StatusForbidden},
		{"approval gate passes admin", ApprovedWorkerMiddleware(), 4, http.StatusOK},
		{"approval gate stops unapproved worker", ApprovedWorkerMiddleware(), 3, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(resolver, jwtUtil, tt.mw)
			w := doRequest(r, bearer(t, jwtUtil, tt.userID, model.RoleUser))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"path":"/missing"`)
	assert.Contains(t, out, `"status":404`)
}
