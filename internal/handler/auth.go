package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/biosecureindia/biosecure/internal/i18n"
	"github.com/biosecureindia/biosecure/internal/model"
	"github.com/biosecureindia/biosecure/internal/store"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"

	minPasswordLen = 6
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	FarmName string `json:"farm_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      model.User `json:"user"`
	CSRFToken string     `json:"csrf_token"`
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter) (string, error) {
	token, err := generateCSRFToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// csrfMiddleware implements the double-submit cookie pattern. Safe requests
// receive a token cookie (and the token in the X-CSRF-Token response header);
// state-changing requests must echo the cookie value in the X-CSRF-Token
// request header.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, cookieErr := r.Cookie(csrfCookieName)

		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token := ""
			if cookieErr == nil && cookie.Value != "" {
				token = cookie.Value
			} else {
				var err error
				if token, err = h.setCSRFCookie(w); err != nil {
					slog.Error("failed to generate CSRF token", "error", err)
					writeError(w, http.StatusInternalServerError, appI18n.T(r.Context(), "InternalError"))
					return
				}
			}
			w.Header().Set(csrfHeaderName, token)
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if cookieErr != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing", "path", r.URL.Path)
			writeError(w, http.StatusForbidden, appI18n.T(r.Context(), "CSRFInvalid"))
			return
		}
		headerToken := r.Header.Get(csrfHeaderName)
		if headerToken == "" {
			slog.Warn("CSRF header missing", "path", r.URL.Path)
			writeError(w, http.StatusForbidden, appI18n.T(r.Context(), "CSRFInvalid"))
			return
		}
		if len(headerToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch", "path", r.URL.Path)
			writeError(w, http.StatusForbidden, appI18n.T(r.Context(), "CSRFInvalid"))
			return
		}

		ctx := model.ContextWithCSRFToken(r.Context(), cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.unauthorized(w, r)
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.unauthorized(w, r)
			return
		}
		if authSess == nil {
			h.unauthorized(w, r)
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			h.unauthorized(w, r)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "Unauthorized"))
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.FarmName = strings.TrimSpace(req.FarmName)
	req.Email = store.NormalizeEmail(req.Email)
	if req.Name == "" || req.FarmName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "SignupFieldsRequired"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "PasswordTooShort", map[string]any{"Min": minPasswordLen}))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(w, r, "hash password", err)
		return
	}
	id, err := h.store.CreateUser(model.User{
		Email:        req.Email,
		Name:         req.Name,
		FarmName:     req.FarmName,
		PasswordHash: string(hash),
		Active:       true,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "EmailTaken"))
		return
	}
	if err != nil {
		h.internalError(w, r, "create user", err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil || user == nil {
		h.internalError(w, r, "load new user", err)
		return
	}
	h.startAuthSession(w, r, user, http.StatusCreated)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		h.loginFailed(w, r)
		return
	}
	if user == nil || !user.Active {
		h.loginFailed(w, r)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.loginFailed(w, r)
		return
	}
	h.startAuthSession(w, r, user, http.StatusOK)
}

func (h *Handler) startAuthSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		h.internalError(w, r, "create auth session", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	csrf, err := h.setCSRFCookie(w)
	if err != nil {
		h.internalError(w, r, "generate CSRF token", err)
		return
	}
	slog.Info("user signed in", "id", user.ID, "email", user.Email)
	writeJSON(w, status, authResponse{User: *user, CSRFToken: csrf})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, authResponse{
		User:      *model.UserFromContext(r.Context()),
		CSRFToken: model.CSRFTokenFromContext(r.Context()),
	})
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginFailed"))
}
