package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// SessionStore is the thin auth-gate contract. The Redis-backed
// implementation lives in the redisx package.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Valid(ctx context.Context, token string) bool
}

type LoginReq struct {
	Password string `json:"password"`
}

type LoginResp struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResp{Message: "請求格式錯誤"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.Password)) != 1 {
		writeJSON(w, http.StatusUnauthorized, LoginResp{Message: "密碼錯誤"})
		return
	}
	token, err := h.Sessions.Create(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, LoginResp{Message: "系統忙碌中，請稍後再試"})
		return
	}
	writeJSON(w, http.StatusOK, LoginResp{Success: true, Token: token})
}

// RequireAdmin accepts the session token as a bearer header or, for
// EventSource clients that cannot set headers, a token query parameter.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if !h.Sessions.Valid(r.Context(), token) {
			writeJSON(w, http.StatusUnauthorized, StatusResp{Message: "未登入"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
