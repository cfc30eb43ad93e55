package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
)

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login 校验配置中的编辑者或浏览者口令。
// 排班板是单编辑者工具，账号不落库，角色只体现在 claims 里。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var role domain.Role
	switch req.Username {
	case h.config.InitialAdmin.Username:
		if bcrypt.CompareHashAndPassword(h.adminHash, []byte(req.Password)) != nil {
			h.errorResponse(w, r, "用户名不存在或密码错误")
			return
		}
		role = domain.RoleEditor
	case h.config.Viewer.Username:
		if len(h.viewerHash) == 0 || bcrypt.CompareHashAndPassword(h.viewerHash, []byte(req.Password)) != nil {
			h.errorResponse(w, r, "用户名不存在或密码错误")
			return
		}
		role = domain.RoleViewer
	default:
		h.errorResponse(w, r, "用户名不存在或密码错误")
		return
	}

	// 生成 JWT
	expiration := time.Now().Add(time.Duration(h.config.JWT.Expiration) * time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   req.Username,
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     "__shift_board_token",
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "登录成功", map[string]any{
		"username": req.Username,
		"role":     role,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:    "__shift_board_token",
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "登出成功", nil)
}
