package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const resetTokenBytes = 32

type AuthService struct {
	Repo     *repo.GormRepo
	Sessions *session.Store
	Tokens   tokens.Issuer
	Events   events.Publisher
	ResetTTL time.Duration
}

// Client identifies the browser a session is opened for.
type Client struct {
	UserAgent string
	IP        string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	SessionID    string
	User         *models.User
}

// Resolution is the outcome of authenticating a request from its cookies.
// Tokens is set only when the session was rotated and new cookies must be sent.
type Resolution struct {
	User      *models.User
	SessionID string
	Tokens    *LoginResult
}

type userEvent struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"reset_token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (s *AuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")
	email = strings.ToLower(strings.TrimSpace(email))

	taken, err := s.Repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: email lookup: %v", ErrPersistence, err)
	}
	if taken {
		l.Warn("signup_failed", "status", 422, "reason", "email exists")
		return nil, NewValidationError("email", "E-Mail exists already, please pick a different one.")
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: pwHash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		l.Error("signup_failed", "error", err)
		return nil, fmt.Errorf("%w: create user: %v", ErrPersistence, err)
	}

	events.Emit(ctx, s.Events, events.TopicUser, idKey(user.ID), events.New("user_signed_up", userEvent{
		UserID: user.ID, Email: user.Email,
	}))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string, client Client) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Warn("login_failed", "status", 422, "reason", "unknown email")
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrPersistence, err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 422, "reason", "wrong password", "user_id", user.ID)
		return nil, ErrUnauthorized
	}

	return s.openSession(ctx, user, client)
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, client Client) (*LoginResult, error) {
	now := time.Now()
	sid := uuid.NewString()

	access, accessExp, err := s.Tokens.Access(user.ID, sid, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.Tokens.Refresh(user.ID, sid, now)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	sess := &session.Session{
		ID:        sid,
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		IPAddress: client.IP,
		CreatedAt: now,
		ExpiresAt: refreshExp,
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		logging.FromContext(ctx).Error("session_create_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: create session: %v", ErrPersistence, err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		SessionID:    sid,
		User:         user,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.Sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return fmt.Errorf("%w: revoke session: %v", ErrPersistence, err)
	}
	return nil
}

// Resolve authenticates a request. A valid access token backed by a live
// session wins; otherwise the refresh token rotates the session.
func (s *AuthService) Resolve(ctx context.Context, accessToken, refreshToken string, client Client) (*Resolution, error) {
	if accessToken != "" {
		if claims, err := s.Tokens.ParseAccess(accessToken); err == nil {
			if userID, err := tokens.UserID(claims.RegisteredClaims); err == nil {
				if user, err := s.liveUser(ctx, claims.SessionID, userID); err == nil {
					return &Resolution{User: user, SessionID: claims.SessionID}, nil
				}
			}
		}
	}
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}

	res, err := s.Refresh(ctx, refreshToken, client)
	if err != nil {
		return nil, err
	}
	return &Resolution{User: res.User, SessionID: res.SessionID, Tokens: res}, nil
}

// Refresh revokes the session named by the refresh token and opens a new one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client Client) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "reason", "bad refresh token", "error", err)
		return nil, ErrUnauthorized
	}
	userID, err := tokens.UserID(claims.RegisteredClaims)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.liveUser(ctx, claims.ID, userID)
	if err != nil {
		l.Warn("refresh_failed", "reason", "session not usable", "error", err)
		return nil, err
	}
	if err := s.Sessions.Revoke(ctx, claims.ID); err != nil {
		return nil, fmt.Errorf("%w: revoke session: %v", ErrPersistence, err)
	}
	return s.openSession(ctx, user, client)
}

func (s *AuthService) liveUser(ctx context.Context, sessionID string, userID uint) (*models.User, error) {
	sess, err := s.Sessions.FindByID(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find session: %v", ErrPersistence, err)
	}
	if !sess.IsValid() || sess.UserID != userID {
		return nil, ErrUnauthorized
	}

	user, err := s.Repo.GetUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrPersistence, err)
	}
	return user, nil
}

// RequestReset stores a fresh reset token for the account and announces it on
// the user topic, where the mailer picks it up.
func (s *AuthService) RequestReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset")
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Warn("reset_failed", "reason", "unknown email")
		return fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: get user: %v", ErrPersistence, err)
	}

	token, err := hash.RandomToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	expires := time.Now().UTC().Add(s.resetTTL())
	if err := s.Repo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		l.Error("reset_failed", "error", err)
		return fmt.Errorf("%w: store reset token: %v", ErrPersistence, err)
	}

	events.Emit(ctx, s.Events, events.TopicUser, idKey(user.ID), events.New("password_reset_requested", userEvent{
		UserID: user.ID, Email: user.Email, Token: token, ExpiresAt: expires,
	}))
	return nil
}

func (s *AuthService) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return time.Hour
	}
	return s.ResetTTL
}

// ResetUser returns the account a still valid reset token belongs to.
func (s *AuthService) ResetUser(ctx context.Context, token string) (*models.User, error) {
	user, err := s.Repo.GetUserByResetToken(ctx, token, time.Now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reset token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrPersistence, err)
	}
	return user, nil
}

// SetNewPassword replaces the password and signs the account out everywhere.
func (s *AuthService) SetNewPassword(ctx context.Context, userID uint, token, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.new_password", "user_id", userID)

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Repo.ResetPassword(ctx, userID, token, pwHash, time.Now().UTC()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("new_password_failed", "reason", "token invalid or expired")
			return fmt.Errorf("reset token: %w", ErrNotFound)
		}
		return fmt.Errorf("%w: reset password: %v", ErrPersistence, err)
	}

	if err := s.Sessions.RevokeAllByUserID(ctx, userID); err != nil {
		l.Warn("revoke_sessions_failed", "error", err)
	}
	return nil
}
