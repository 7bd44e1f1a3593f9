package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/kodbank/internal/common"
	"github.com/dmitrijs2005/kodbank/internal/server/accounts"
)

type registerRequest struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.accounts.Register(r.Context(), accounts.RegisterRequest{
		UID:      req.UID,
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, common.ErrorAccountExists):
			writeError(w, http.StatusBadRequest, "Username or UID might already exist")
		default:
			s.logger.Error(r.Context(), "register failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	s.logger.Info(r.Context(), "Registered", "username", req.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, "Username and password required")
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			s.logger.Error(r.Context(), "login failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    sess.Token,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(s.cookieTTL.Seconds()),
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"username": sess.Username,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	token := tokenFromCookie(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	balance, err := s.accounts.Balance(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "Unauthorized: Token invalid or expired")
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			s.logger.Error(r.Context(), "balance check failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Success", "balance": balance})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := s.chat.Complete(r.Context(), req.Message)
	if err != nil {
		s.logger.Error(r.Context(), "chat proxy failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Internal server error during chat")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromCookie(r); token != "" {
		if err := s.accounts.Logout(r.Context(), token); err != nil {
			s.logger.Error(r.Context(), "logout failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	// clear the cookie regardless of whether a token was attached
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func tokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(common.TokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
