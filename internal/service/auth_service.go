package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hivecrm/contactbook/internal/adapter/mail"
	"github.com/hivecrm/contactbook/internal/adapter/storage"
	"github.com/hivecrm/contactbook/internal/config"
	"github.com/hivecrm/contactbook/internal/domain"
	pw "github.com/hivecrm/contactbook/internal/password"
	"github.com/hivecrm/contactbook/internal/repository"
	"github.com/hivecrm/contactbook/internal/rolecache"
	"github.com/hivecrm/contactbook/internal/token"
)

// AuthService encapsulates registration, verification, and credential flows.
type AuthService struct {
	users     repository.UserRepository
	roles     *rolecache.Cache
	tokens    *token.Service
	mailer    mail.Mailer
	images    storage.ImageStore
	snowflake *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, roles *rolecache.Cache, tokens *token.Service, mailer mail.Mailer, images storage.ImageStore, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		roles:     roles,
		tokens:    tokens,
		mailer:    mailer,
		images:    images,
		snowflake: node,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/hivecrm/contactbook/internal/service"),
	}
}

// Register creates an inactive account and kicks off verification email
// delivery in the background.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (UserView, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(input.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return UserView{}, newAPIError("email_exists", "Email already registered.", http.StatusConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return UserView{}, fmt.Errorf("check existing user: %w", err)
	}

	hashed, err := pw.Hash(input.Password)
	if err != nil {
		span.RecordError(err)
		return UserView{}, fmt.Errorf("hash password: %w", err)
	}

	roleName := input.Role
	if roleName == "" {
		roleName = domain.RoleUser
	}
	role, err := s.roles.Get(ctx, roleName)
	if err != nil {
		span.RecordError(err)
		return UserView{}, newAPIError("invalid_role", "Unknown role.", http.StatusUnprocessableEntity)
	}

	user := domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Username:     strings.TrimSpace(input.Username),
		Email:        email,
		PasswordHash: hashed,
		IsActive:     false,
		RoleID:       role.ID,
		RoleName:     role.Name,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrEmailExists) {
			return UserView{}, newAPIError("email_exists", "Email already registered.", http.StatusConflict)
		}
		return UserView{}, fmt.Errorf("create user: %w", err)
	}
	created.RoleName = role.Name

	s.sendVerificationAsync(created.Email)

	s.audit("register.success", "user_id", created.ID, "email", created.Email)
	return newUserView(created), nil
}

// sendVerificationAsync delivers the verification email as a side task so a
// slow SMTP relay never blocks the registration response.
func (s *AuthService) sendVerificationAsync(email string) {
	verification, err := s.tokens.VerificationToken(email)
	if err != nil {
		s.log().Error("issue verification token", zap.String("email", email), zap.Error(err))
		return
	}
	link := s.verificationLink(verification)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.SendVerification(ctx, email, link); err != nil {
			s.log().Error("send verification email", zap.String("email", email), zap.Error(err))
		}
	}()
}

func (s *AuthService) verificationLink(verificationToken string) string {
	base := strings.TrimSuffix(s.cfg.PublicBaseURL, "/")
	return base + path.Join("/auth", "verify-email") + "?token=" + url.QueryEscape(verificationToken)
}

// VerifyEmail redeems a verification token and activates the account.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	ctx, span := s.startSpan(ctx, "AuthService.VerifyEmail")
	defer span.End()

	email, err := s.tokens.Decode(rawToken, token.UseVerify)
	if err != nil {
		return errInvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return newAPIError("user_not_found", "User not found.", http.StatusNotFound)
		}
		span.RecordError(err)
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.users.Activate(ctx, user.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("activate user: %w", err)
	}

	s.audit("verify_email.success", "user_id", user.ID)
	return nil
}

// Login checks credentials and issues an access/refresh token pair. Every
// failure collapses into the same invalid-credentials error.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, errInvalidCredentials()
	}

	valid, err := pw.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		return TokenPair{}, errInvalidCredentials()
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, err
	}

	s.audit("login.success", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	email, err := s.tokens.Decode(refreshToken, token.UseRefresh)
	if err != nil {
		return TokenPair{}, errInvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, errInvalidCredentials()
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, err
	}

	s.audit("refresh.success", "user_id", user.ID)
	return pair, nil
}

// CurrentUser resolves the account behind a bearer access token.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (domain.User, error) {
	email, err := s.tokens.Decode(accessToken, token.UseAccess)
	if err != nil {
		return domain.User{}, errInvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, errInvalidCredentials()
	}
	return user, nil
}

// UpdateAvatar uploads the image and stores its public URL on the account.
func (s *AuthService) UpdateAvatar(ctx context.Context, user domain.User, filename, contentType string, data []byte) (UserView, error) {
	ctx, span := s.startSpan(ctx, "AuthService.UpdateAvatar")
	defer span.End()

	key := avatarKey(user.ID, filename)
	avatarURL, err := s.images.Upload(ctx, key, contentType, data)
	if err != nil {
		span.RecordError(err)
		return UserView{}, newAPIError("upload_failed", "Failed to upload avatar image.", http.StatusInternalServerError)
	}

	updated, err := s.users.UpdateAvatar(ctx, user.Email, avatarURL)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotFound) {
			return UserView{}, newAPIError("user_not_found", "User not found.", http.StatusNotFound)
		}
		return UserView{}, fmt.Errorf("update avatar: %w", err)
	}

	s.audit("avatar.updated", "user_id", user.ID)
	return newUserView(updated), nil
}

func (s *AuthService) issuePair(subject string) (TokenPair, error) {
	access, err := s.tokens.AccessToken(subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.RefreshToken(subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func avatarKey(userID int64, filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".img"
	}
	return fmt.Sprintf("avatars/%d%s", userID, ext)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	auditLog(s.log(), event, attrs...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func auditLog(logger *zap.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}
