package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/service"
)

// AuthHandler serves the login endpoint.
type AuthHandler struct {
	authService *service.AuthService
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

// Login handles POST /login. Credentials arrive form-encoded; success
// returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "无法解析表单数据")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username 和 password 为必填项")
		return
	}

	out, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		writeLoginError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: out.AccessToken,
		TokenType:   out.TokenType,
	})
}

// writeLoginError maps verification failures onto their contractual
// statuses and messages. The self-service change reuses it so both
// surfaces fail identically.
func writeLoginError(w http.ResponseWriter, err error) {
	var failed *domain.FailedLoginError
	var locked *domain.LockedError

	switch {
	case errors.As(err, &failed):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized,
			fmt.Sprintf("用户名或密码错误，尝试登录次数为%d次，超过5次时锁定30分钟", failed.Attempt))
	case errors.Is(err, domain.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "用户名或密码错误")
	case errors.Is(err, domain.ErrUserInactive):
		writeDetail(w, http.StatusForbidden, "账户已被禁用")
	case errors.As(err, &locked):
		total := int(locked.Remaining / time.Second)
		writeDetail(w, http.StatusLocked,
			fmt.Sprintf("账户已锁定，请 %d 分 %d 秒后再试", total/60, total%60))
	default:
		writeDetail(w, http.StatusInternalServerError, "服务器内部错误")
	}
}
