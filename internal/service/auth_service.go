package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
	"github.com/tomgandolfo2/ESLworksheets/internal/validation"
)

// OAuthProfile is what the identity provider tells us about the person signing in
type OAuthProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// AuthService turns identity provider sign-ins into user records
type AuthService struct {
	db          *database.DB
	adminEmails map[string]bool
	log         logging.Logger
	now         func() time.Time
}

// NewAuthService creates a new auth service. Users whose email is in adminEmails
// are given the admin role every time they sign in.
func NewAuthService(db *database.DB, adminEmails []string, log logging.Logger) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &AuthService{
		db:          db,
		adminEmails: admins,
		log:         log,
		now:         time.Now,
	}
}

// SignIn creates the user on first sign-in and refreshes their profile afterwards
func (s *AuthService) SignIn(ctx context.Context, profile OAuthProfile) (*models.User, error) {
	if profile.Provider == "" || profile.Subject == "" {
		return nil, invalidField("subject", "identity provider subject is required")
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid(err)
	}

	var user *models.User
	created := false
	err := s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		users := repository.NewUserRepository(tx)

		existing, err := users.GetByOAuth(ctx, profile.Provider, profile.Subject)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if existing == nil {
			role := models.RoleUser
			if s.adminEmails[email] {
				role = models.RoleAdmin
			}
			user = &models.User{
				ID:            uuid.NewString(),
				Email:         email,
				Name:          strings.TrimSpace(profile.Name),
				Role:          role,
				OAuthProvider: profile.Provider,
				OAuthSubject:  profile.Subject,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			created = true
			return users.Create(ctx, user)
		}

		user = existing
		user.Email = email
		if name := strings.TrimSpace(profile.Name); name != "" {
			user.Name = name
		}
		if s.adminEmails[email] {
			user.Role = models.RoleAdmin
		}
		user.UpdatedAt = now
		return users.UpdateProfile(ctx, user)
	})
	if err != nil {
		s.log.Error(ctx, "sign-in failed", "provider", profile.Provider, "error", err)
		return nil, upstream("sign in", err)
	}

	s.log.Info(ctx, "user signed in", "user", user.ID, "role", user.Role, "new", created)
	return user, nil
}

// IdentityFor is the identity carried in a session for user
func IdentityFor(user *models.User) *models.Identity {
	return &models.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}
}
