package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
)

type sessionKey struct{}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// withAuth resolves the bearer token to a session before calling next.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.accounts.Authenticate(bearerToken(r))
		if !ok {
			UnauthorizedError("missing or expired session").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = context.WithValue(ctx, log.LoggerContextKey, log.FromContext(ctx).With(log.FieldUserID, sess.UserID))
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(ctx context.Context) services.Session {
	sess, _ := ctx.Value(sessionKey{}).(services.Session)
	return sess
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	id, err := s.accounts.Signup(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrDuplicateUser):
		ConflictError(err.Error()).Write(w)
		return
	case errors.Is(err, ledger.ErrInvalidCredentials):
		BadRequestError("username and password are required; passwords are limited to 72 bytes").Write(w)
		return
	case errors.Is(err, services.ErrUsernameTooLong):
		BadRequestError(err.Error()).Write(w)
		return
	default:
		s.internalError(w, r, "Signup failed", err, log.ComponentAccounts, log.OpSignup)
		return
	}

	atomic.AddInt64(&s.appMetrics.signups, 1)
	NewJSONResponse().Status(http.StatusCreated).Data(map[string]any{
		"id":       id,
		"username": ledger.NormalizeUsername(req.Username),
	}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	sess, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidCredentials) {
			UnauthorizedError(err.Error()).Write(w)
			return
		}
		s.internalError(w, r, "Login failed", err, log.ComponentAccounts, log.OpLogin)
		return
	}
	setUp, err := s.budgets.HasSetup(r.Context(), sess.UserID)
	if err != nil {
		s.internalError(w, r, "Setup lookup failed", err, log.ComponentBudget, log.OpRead)
		return
	}

	atomic.AddInt64(&s.appMetrics.logins, 1)
	NewJSONResponse().Data(map[string]any{
		"token":    sess.Token,
		"user_id":  sess.UserID,
		"username": sess.Username,
		"set_up":   setUp,
	}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.accounts.Logout(sessionFrom(r.Context()).Token)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, err.Error()).Write(w)
		return
	}
	BadRequestError(err.Error()).Write(w)
}

// internalError logs err and answers 500 without details.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, component, op string) {
	fields := log.NewFields().WithErrorType(log.ErrorTypeInternal)
	if sess := sessionFrom(r.Context()); sess.UserID != 0 {
		fields = fields.WithUser(sess.UserID)
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, component, op, fields)
	InternalServerError().Write(w)
}
