package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"streakly/internal/history"
	"streakly/internal/models"
	"streakly/internal/services"
	"streakly/internal/store"
)

type AuthHandler struct {
	store     *store.Store
	encSvc    *services.EncryptionService
	sessions  *history.Sessions
	jwtSecret []byte
	logger    *zap.Logger
}

func NewAuthHandler(st *store.Store, encSvc *services.EncryptionService, sessions *history.Sessions, jwtSecret []byte, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: st, encSvc: encSvc, sessions: sessions, jwtSecret: jwtSecret, logger: logger}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return c, false
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || c.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return c, false
	}
	return c, true
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "could not hash password", http.StatusInternalServerError)
		return
	}
	u := models.User{Email: c.Email}
	if err := h.encSvc.EncryptUser(&u); err != nil {
		http.Error(w, "could not encrypt email", http.StatusInternalServerError)
		return
	}

	user, err := h.store.CreateUser(r.Context(), u.Email, u.EmailBlindIndex, string(hashed))
	if err != nil {
		h.logger.Info("signup rejected", zap.Error(err))
		http.Error(w, "could not create user", http.StatusBadRequest)
		return
	}
	h.startSession(w, user.ID, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.store.GetUserByBlindIndex(r.Context(), h.encSvc.EmailBlindIndex(c.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	h.startSession(w, user.ID, http.StatusOK)
}

// Logout ends the user's history session; the token itself simply expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Teardown(currentUser(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, userID, status int) {
	token, err := h.issueJWT(userID)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	h.sessions.Init(userID)
	writeJSON(w, status, map[string]any{"token": token})
}

func (h *AuthHandler) issueJWT(userID int) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
