package www

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"tmscore/store"
)

const sessionName = "tmscore-session"

type ctxKey int

const usernameKey ctxKey = iota

// tokenClaims is the payload of the bearer tokens handed out by /api/login.
type tokenClaims struct {
	Username string `json:"sub"`
	jwt.RegisteredClaims
}

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "tmscore-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// authenticate checks credentials against the admin users table.
func (h *Handlers) authenticate(username, password string) bool {
	user, err := h.engine.DB().GetAdminUser(username)
	return err == nil && checkPassword(user.PasswordHash, password)
}

func (h *Handlers) issueToken(username string) (string, time.Time, error) {
	expires := time.Now().Add(h.tokenTTL)
	claims := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "tmscore",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// parseToken validates a bearer token and returns its username.
func (h *Handlers) parseToken(tokenStr string) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return h.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired token")
	}
	if claims.Username == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Username, nil
}

// identify returns the user behind r, from a bearer token or the session cookie.
func (h *Handlers) identify(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, tokenStr, ok := strings.Cut(auth, " ")
		if !ok || scheme != "Bearer" {
			return "", false
		}
		username, err := h.parseToken(tokenStr)
		if err != nil {
			return "", false
		}
		return username, true
	}
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
		return "", false
	}
	username, _ := session.Values["username"].(string)
	return username, true
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := h.identify(r)
		if !ok {
			h.jsonError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), usernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUsername(r *http.Request) string {
	username, _ := r.Context().Value(usernameKey).(string)
	return username
}

func (h *Handlers) ensureDefaultAdmin(db *store.DB) {
	exists, err := db.AdminUserExists()
	if err != nil || exists {
		return
	}
	hash, err := hashPassword("admin")
	if err != nil {
		return
	}
	db.CreateAdminUser("admin", hash)
}

// --- Login handlers ---

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	if !h.authenticate(username, r.FormValue("password")) {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handlers) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if !h.authenticate(req.Username, req.Password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}
	token, expires, err := h.issueToken(req.Username)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, loginResponse{Token: token, ExpiresAt: expires})
}
