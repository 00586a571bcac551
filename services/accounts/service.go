package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/logintoken"
)

const (
	WelcomeTemplate       = "welcome"
	PasswordResetTemplate = "password_reset"
)

type Mailer interface {
	SendTemplate(templateName string, to []string, subject string, data map[string]any) error
}

// NewAccount is the input for provisioning. The password is generated.
type NewAccount struct {
	Email     string
	FirstName string
	LastName  string
	Role      auth.Role
}

// Provisioned is returned once, to the administrator who created the account.
type Provisioned struct {
	User              *auth.User
	Token             *logintoken.LoginToken
	TemporaryPassword string
	AutoLoginURL      string
	EmailSent         bool
}

type Service struct {
	config *config.Config
	db     *gorm.DB
	users  *auth.Service
	tokens *logintoken.Service
	mailer Mailer
	logger *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, users *auth.Service, tokens *logintoken.Service, mailer Mailer, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		db:     db,
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: logger.Named("accounts"),
	}
}

// CreateAccount creates a user with a temporary password, issues an
// auto-login token and emails both. A mail failure is logged and reported
// through EmailSent; the account is still created.
func (s *Service) CreateAccount(ctx context.Context, input NewAccount) (*Provisioned, error) {
	var out *Provisioned
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.ProvisionTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.SendWelcome(out)
	return out, nil
}

// ProvisionTx creates the user and its auto-login token on tx without
// sending mail. Callers send the welcome email with SendWelcome once tx has
// committed.
func (s *Service) ProvisionTx(ctx context.Context, tx *gorm.DB, input NewAccount) (*Provisioned, error) {
	password, err := s.users.GenerateTemporaryPassword()
	if err != nil {
		return nil, err
	}

	user, err := s.users.WithTx(tx).CreateUser(ctx, auth.NewUser{
		Email:              input.Email,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Role:               input.Role,
		Password:           password,
		MustChangePassword: true,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.WithTx(tx).Issue(ctx, user.ID, logintoken.PurposeAutoLogin)
	if err != nil {
		return nil, err
	}

	return &Provisioned{
		User:              user,
		Token:             token,
		TemporaryPassword: password,
		AutoLoginURL:      s.link("/auto-login", token.Token),
	}, nil
}

// SendWelcome emails the credentials of a provisioned account and sets
// EmailSent on success.
func (s *Service) SendWelcome(p *Provisioned) {
	err := s.mailer.SendTemplate(WelcomeTemplate, []string{p.User.Email}, fmt.Sprintf("Welcome to %s", s.config.App.Name), map[string]any{
		"AppName":           s.config.App.Name,
		"FirstName":         p.User.FirstName,
		"Email":             p.User.Email,
		"TemporaryPassword": p.TemporaryPassword,
		"AutoLoginURL":      p.AutoLoginURL,
		"ExpiresIn":         humanDuration(s.tokens.TTL(logintoken.PurposeAutoLogin)),
	})
	if err != nil {
		s.logger.Error("failed to send welcome email", zap.Error(err), zap.Uint("user_id", p.User.ID))
		return
	}
	p.EmailSent = true
}

// AutoLogin redeems an auto-login token and records the login.
func (s *Service) AutoLogin(ctx context.Context, token, ip string) (*auth.User, error) {
	user, err := s.tokens.Redeem(ctx, token, logintoken.PurposeAutoLogin, ip)
	if err != nil {
		return nil, err
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record login", zap.Error(err), zap.Uint("user_id", user.ID))
	}
	return user, nil
}

// RequestPasswordReset emails a reset link. Unknown or disabled accounts are
// ignored so the response does not reveal which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.Active {
		return nil
	}

	token, err := s.tokens.Issue(ctx, user.ID, logintoken.PurposePasswordReset)
	if err != nil {
		return err
	}

	err = s.mailer.SendTemplate(PasswordResetTemplate, []string{user.Email}, "Reset your password", map[string]any{
		"AppName":   s.config.App.Name,
		"FirstName": user.FirstName,
		"ResetURL":  s.link("/auth/password-reset/confirm", token.Token),
		"ExpiresIn": humanDuration(s.tokens.TTL(logintoken.PurposePasswordReset)),
	})
	if err != nil {
		s.logger.Error("failed to send password reset email", zap.Error(err), zap.Uint("user_id", user.ID))
	}
	return nil
}

// CompletePasswordReset checks the new password before redeeming, so a
// rejected password leaves the token usable.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword, ip string) error {
	if err := s.users.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.tokens.Redeem(ctx, token, logintoken.PurposePasswordReset, ip)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, user.ID, newPassword)
}

// SeedAdmin creates the configured administrator when AUTH_ADMIN_EMAIL is set.
func (s *Service) SeedAdmin(ctx context.Context) error {
	a := s.config.Auth
	if a.AdminEmail == "" {
		return nil
	}
	user, err := s.users.EnsureAdmin(ctx, a.AdminEmail, a.AdminPassword, a.AdminFirstName, a.AdminLastName)
	if err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	s.logger.Info("admin account ready", zap.Uint("user_id", user.ID))
	return nil
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.config.App.URL, "/") + path + "?token=" + url.QueryEscape(token)
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		if n := int(d / (24 * time.Hour)); n != 1 {
			return fmt.Sprintf("%d days", n)
		}
		return "24 hours"
	case d >= time.Hour && d%time.Hour == 0:
		if n := int(d / time.Hour); n != 1 {
			return fmt.Sprintf("%d hours", n)
		}
		return "1 hour"
	default:
		return d.String()
	}
}
