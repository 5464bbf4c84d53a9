package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/auth"
	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/repository"
	"github.com/prn-tf/codelinker-admin/internal/service"
)

// UserHandler serves the admin user management and self-service endpoints.
type UserHandler struct {
	userService *service.UserService
	location    *time.Location
	logger      zerolog.Logger
}

// NewUserHandler creates a new UserHandler. Instants in responses are
// rendered in the given zone.
func NewUserHandler(userService *service.UserService, loc *time.Location, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		location:    loc,
		logger:      logger.With().Str("handler", "user").Logger(),
	}
}

// createUserRequest is the JSON body of POST /admin/user/create.
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive *int   `json:"is_active"`
}

// Create handles POST /admin/user/create.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireClaims(r.Context())
	if err != nil {
		writeAuthRequired(w)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "请求体格式错误")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username 和 password 为必填项")
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleUser.String()
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "role 取值无效")
		return
	}

	user, err := h.userService.Create(r.Context(), claims, service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     role,
		IsActive: req.IsActive == nil || *req.IsActive != 0,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccessDenied):
			writeDetail(w, http.StatusForbidden, "当前身份无权限创建此级用户")
		case errors.Is(err, domain.ErrUserAlreadyExists):
			writeDetail(w, http.StatusBadRequest, "用户名已存在")
		case errors.Is(err, domain.ErrInvalidUsername):
			writeDetail(w, http.StatusUnprocessableEntity, "username 长度需在1-50个字符之间")
		default:
			writeDetail(w, http.StatusInternalServerError, "用户创建失败，未知原因，请重试")
		}
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user, h.location))
}

// Info handles GET /admin/user/user_info.
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireClaims(r.Context())
	if err != nil {
		writeAuthRequired(w)
		return
	}

	q := r.URL.Query()
	query := service.ListQuery(q.Get("query"))
	if query == "" {
		query = service.ListSelf
	}
	if query != service.ListSelf && query != service.ListAll && query != service.ListOther {
		writeDetail(w, http.StatusUnprocessableEntity, "query 取值无效")
		return
	}

	queryType := repository.QueryType(q.Get("query_type"))
	if queryType == "" {
		queryType = repository.QueryExact
	}
	if queryType != repository.QueryExact && queryType != repository.QueryFuzzy {
		writeDetail(w, http.StatusUnprocessableEntity, "query_type 取值无效")
		return
	}

	users, err := h.userService.List(r.Context(), claims, service.ListUsersInput{
		Query:    query,
		Type:     queryType,
		Username: q.Get("username"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccessDenied) {
			writeDetail(w, http.StatusForbidden, "当前身份无权限查询")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "服务器内部错误")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponses(users, h.location))
}

// Delete handles DELETE /admin/user/delete_user.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireClaims(r.Context())
	if err != nil {
		writeAuthRequired(w)
		return
	}

	q := r.URL.Query()
	userID := q.Get("user_id")
	username := q.Get("username")
	if userID == "" || username == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id 和 username 为必填项")
		return
	}
	if dt := q.Get("delete_type"); dt != "" && dt != "soft" {
		writeDetail(w, http.StatusUnprocessableEntity, "delete_type 仅支持 soft")
		return
	}

	user, err := h.userService.SoftDelete(r.Context(), claims, userID, username)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccessDenied):
			writeDetail(w, http.StatusForbidden, "当前身份无权限")
		case errors.Is(err, domain.ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "没有找到相关用户")
		case errors.Is(err, service.ErrUnexpectedWriteCount):
			writeDetail(w, http.StatusNotImplemented, "未知原因删除失败，请重试")
		default:
			writeDetail(w, http.StatusInternalServerError, "服务器内部错误")
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user, h.location))
}

// Update handles PUT /admin/user/update_user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireClaims(r.Context())
	if err != nil {
		writeAuthRequired(w)
		return
	}

	q := r.URL.Query()
	userID := q.Get("user_id")
	username := q.Get("username")
	if userID == "" || username == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id 和 username 为必填项")
		return
	}

	input := service.UpdateUserInput{UserID: userID, Username: username}

	if raw := q.Get("new_role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil || role == domain.RoleSuperAdmin {
			// the top role is seeded out of band, never assigned here
			writeDetail(w, http.StatusUnprocessableEntity, "new_role 取值无效")
			return
		}
		input.NewRole = &role
	}
	input.Activate, err = parseBoolParam(q.Get("activate"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "activate 取值无效")
		return
	}
	input.CleanLocked, err = parseBoolParam(q.Get("clean_locked"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "clean_locked 取值无效")
		return
	}

	user, err := h.userService.Update(r.Context(), claims, input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccessDenied):
			writeDetail(w, http.StatusForbidden, "无权限操作")
		case errors.Is(err, service.ErrSelfTarget):
			writeDetail(w, http.StatusBadRequest, "传入的参数无效")
		case errors.Is(err, service.ErrMissingUpdateField):
			writeDetail(w, http.StatusBadRequest, "至少需要提供一个更新参数：new_role, activate 或 clean_locked")
		case errors.Is(err, domain.ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "用户不存在")
		case errors.Is(err, service.ErrUnexpectedWriteCount):
			writeDetail(w, http.StatusNotImplemented, "未知原因失败，请重试")
		default:
			writeDetail(w, http.StatusInternalServerError, "服务器内部错误")
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user, h.location))
}

// ForgetPassword handles PUT /admin/user/forget_password.
func (h *UserHandler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireClaims(r.Context())
	if err != nil {
		writeAuthRequired(w)
		return
	}

	q := r.URL.Query()
	userID := q.Get("user_id")
	username := q.Get("username")
	if userID == "" || username == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id 和 username 为必填项")
		return
	}
	cleanLocked, err := parseBoolParam(q.Get("clean_locked"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "clean_locked 取值无效")
		return
	}

	user, err := h.userService.ForgetPassword(r.Context(), claims, userID, username, cleanLocked)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccessDenied):
			writeDetail(w, http.StatusForbidden, "无权限操作")
		case errors.Is(err, domain.ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "用户不存在")
		case errors.Is(err, service.ErrUnexpectedWriteCount):
			writeDetail(w, http.StatusNotImplemented, "未知原因失败，请重试")
		default:
			writeDetail(w, http.StatusInternalServerError, "服务器内部错误")
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user, h.location))
}

// SelfChange handles PUT /admin/user_self/change_username_password.
func (h *UserHandler) SelfChange(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireClaims(r.Context())
	if err != nil {
		writeAuthRequired(w)
		return
	}

	q := r.URL.Query()
	password := q.Get("password")
	if password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "password 为必填项")
		return
	}

	input := service.SelfChangeInput{Password: password}
	if name := q.Get("new_user_name"); name != "" {
		input.NewUsername = &name
	}
	if pw := q.Get("new_password"); pw != "" {
		input.NewPassword = &pw
	}

	user, err := h.userService.SelfChange(r.Context(), claims, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSelfField):
			writeDetail(w, http.StatusBadRequest, "至少需要提供一个更新参数：new_user_name,new_password")
		case errors.Is(err, service.ErrNewUsernameTaken):
			writeDetail(w, http.StatusBadRequest, "new_user_name错误，已有此用户")
		case errors.Is(err, domain.ErrInvalidUsername):
			writeDetail(w, http.StatusUnprocessableEntity, "new_user_name 长度需在1-50个字符之间")
		default:
			writeLoginError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user, h.location))
}

// writeAuthRequired rejects a request that reached a protected handler
// without decoded claims.
func writeAuthRequired(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, auth.DetailUnverifiable)
}

// parseBoolParam parses an optional boolean query parameter. Absence
// is nil, not false: several parameters are tri-state.
func parseBoolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
