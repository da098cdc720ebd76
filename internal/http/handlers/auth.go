package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baybe/cleanbook/internal/auth"
	"github.com/baybe/cleanbook/internal/config"
	"github.com/baybe/cleanbook/internal/domain/user"
	"github.com/baybe/cleanbook/internal/http/middlewares"
	"github.com/baybe/cleanbook/internal/mail"
	"github.com/baybe/cleanbook/internal/repo/postgres"
)

// UserStore is the slice of the users repo the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PasswordHasher mirrors the security package so tests can swap in a cheap
// implementation.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Check(hash, plain string) error
}

type AuthHandler struct {
	users  UserStore
	jwt    *auth.Manager
	hasher PasswordHasher
	mailer mail.Mailer
	cfg    config.Config
	log    *slog.Logger
}

func NewAuthHandler(users UserStore, jwtManager *auth.Manager, hasher PasswordHasher, mailer mail.Mailer, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		jwt:    jwtManager,
		hasher: hasher,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
	}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// The generic body both branches of forgot-password return. Must stay
// byte-identical whether or not the email is registered.
const resetRequestedMessage = "If that email exists, a reset link has been sent"

func (h *AuthHandler) Signup(ctx *gin.Context) {
	var req SignupRequest

	if !BindJSON(ctx, &req, "Please provide email and password") {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "signup: hash password", "err", err)
		RespondInternal(ctx)
		return
	}

	u, err := h.users.Create(cctx, strings.ToLower(req.Email), hash)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "Email already registered")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "signup: create user", "err", err)
		RespondInternal(ctx)
		return
	}

	token, err := h.jwt.GenerateSessionToken(u.ID)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "signup: sign token", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created",
		"user":    u.Summary(),
		"token":   token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req, "Please provide email and password") {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, postgres.ErrUserNotFound) {
			h.log.ErrorContext(ctx.Request.Context(), "login: lookup user", "err", err)
			RespondInternal(ctx)
			return
		}

		// identical to the wrong-password branch, no existence leak
		RespondBadRequest(ctx, "Invalid credentials")
		return
	}

	if err := h.hasher.Check(foundUser.PasswordHash, req.Password); err != nil {
		RespondBadRequest(ctx, "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateSessionToken(foundUser.ID)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "login: sign token", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Logged in",
		"user":    foundUser.Summary(),
		"token":   token,
	})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req, "Please provide an email") {
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// same body as the success branch
			ctx.JSON(http.StatusOK, gin.H{"message": resetRequestedMessage})
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "forgot password: lookup user", "err", err)
		RespondInternal(ctx)
		return
	}

	rawSecret, err := auth.GenerateResetSecret()
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "forgot password: generate secret", "err", err)
		RespondInternal(ctx)
		return
	}

	expiresAt := time.Now().UTC().Add(h.cfg.ResetTokenTTL)

	if err := h.users.SetResetToken(cctx, foundUser.ID, h.jwt.HashResetSecret(rawSecret), expiresAt); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "forgot password: store token hash", "err", err)
		RespondInternal(ctx)
		return
	}

	resetURL := strings.TrimRight(h.cfg.ClientURL, "/") + "/reset-password/" + rawSecret

	html, err := mail.RenderResetEmail(resetURL)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "forgot password: render email", "err", err)
		RespondInternal(ctx)
		return
	}

	// The response waits on delivery; a transport failure is a server error,
	// not a silent success.
	if err := h.mailer.Send(cctx, foundUser.Email, mail.ResetSubject, html); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "forgot password: send email", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": resetRequestedMessage})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	rawToken := ctx.Param("token")

	var req ResetPasswordRequest

	if !BindJSON(ctx, &req, "Please provide a new password") {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// not-found and expired collapse into one answer
	foundUser, err := h.users.GetByResetTokenHash(cctx, h.jwt.HashResetSecret(rawToken))
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondBadRequest(ctx, "Invalid or expired token")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "reset password: lookup token", "err", err)
		RespondInternal(ctx)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reset password: hash password", "err", err)
		RespondInternal(ctx)
		return
	}

	// clears both reset fields along with the password swap
	if err := h.users.UpdatePassword(cctx, foundUser.ID, hash); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reset password: update password", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

// Me returns the record the session guard resolved.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Summary()})
}
