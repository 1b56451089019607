package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/repository/memory"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(opts ...UserOption) (UserService, repository.Repositories) {
	repos := memory.New().Repositories()
	return NewUserService(repos.Users, repos.RefreshTokens, "test-secret-key", opts...), repos
}

// Feature: inventory-ledger, Property 1: Registration creates hashed passwords
func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(email string, password string, username string) bool {
			service, repos := newTestUserService()
			ctx := context.Background()

			user, err := service.Register(ctx, RegisterInput{Email: email, Username: username, Password: password})
			if err != nil {
				t.Logf("FAIL: registration failed: %v", err)
				return false
			}

			if user.PasswordHash == password {
				t.Logf("FAIL: Password stored as plaintext for email %s", email)
				return false
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
				t.Logf("FAIL: Password hash is not a valid bcrypt hash or doesn't match: %v", err)
				return false
			}

			stored, err := repos.Users.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("FAIL: Could not find stored user: %v", err)
				return false
			}
			return stored.PasswordHash == user.PasswordHash && stored.Role == domain.RoleUser
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[a-z][a-z0-9_]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: inventory-ledger, Property 2: JWT tokens contain required claims
func TestProperty_JWTTokensContainRequiredClaims(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("access tokens contain user ID and role claims", prop.ForAll(
		func(email string, password string, admin bool) bool {
			var opts []UserOption
			if admin {
				opts = append(opts, WithAdminEmails(email))
			}
			service, _ := newTestUserService(opts...)
			ctx := context.Background()

			if _, err := service.Register(ctx, RegisterInput{Email: email, Username: "clerk", Password: password}); err != nil {
				t.Logf("FAIL: registration failed: %v", err)
				return false
			}

			accessToken, _, user, err := service.Login(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: Login failed: %v", err)
				return false
			}

			claims, err := service.ValidateToken(accessToken)
			if err != nil {
				t.Logf("FAIL: Token validation failed: %v", err)
				return false
			}

			wantRole := domain.RoleUser
			if admin {
				wantRole = domain.RoleAdmin
			}
			return claims.UserID == user.ID &&
				claims.Role == wantRole &&
				claims.ExpiresAt != nil &&
				claims.IssuedAt != nil
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: inventory-ledger, Property 8: Logout invalidates refresh token
func TestProperty_LogoutInvalidatesRefreshToken(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("refresh works before logout and fails after", prop.ForAll(
		func(email string, password string) bool {
			service, repos := newTestUserService()
			ctx := context.Background()

			if _, err := service.Register(ctx, RegisterInput{Email: email, Username: "clerk", Password: password}); err != nil {
				return false
			}
			_, refreshToken, user, err := service.Login(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: Login failed: %v", err)
				return false
			}

			newAccessToken, err := service.RefreshToken(ctx, refreshToken)
			if err != nil {
				t.Logf("FAIL: Refresh token should work before logout: %v", err)
				return false
			}
			claims, err := service.ValidateToken(newAccessToken)
			if err != nil || claims.UserID != user.ID {
				t.Logf("FAIL: refreshed token invalid: %v", err)
				return false
			}

			if err := service.Logout(ctx, refreshToken); err != nil {
				t.Logf("FAIL: Logout failed: %v", err)
				return false
			}

			if _, err := service.RefreshToken(ctx, refreshToken); !errors.Is(err, ErrInvalidToken) {
				t.Logf("FAIL: Expected ErrInvalidToken, got: %v", err)
				return false
			}
			_, err = repos.RefreshTokens.FindByToken(ctx, refreshToken)
			return errors.Is(err, repository.ErrRefreshTokenRevoked)
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	service, _ := newTestUserService(WithAdminEmails(" Boss@Example.com "))
	ctx := context.Background()

	user, err := service.Register(ctx, RegisterInput{Email: "Boss@Example.COM", Username: "boss", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", user.Email)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = service.Register(ctx, RegisterInput{Email: "boss@example.com", Username: "other", Password: "password123"})
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	_, err = service.Register(ctx, RegisterInput{Email: "new@example.com", Username: "boss", Password: "password123"})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "a@example.com", Username: "a", Password: "password123"})
	require.NoError(t, err)

	_, _, _, err = service.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = service.Login(ctx, "missing@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpiredTokens(t *testing.T) {
	service, _ := newTestUserService(WithTokenExpiry(-time.Minute, time.Hour))
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "a@example.com", Username: "a", Password: "password123"})
	require.NoError(t, err)

	// non-positive durations are ignored, so the default access lifetime applies
	access, _, _, err := service.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	_, err = service.ValidateToken(access)
	assert.NoError(t, err)

	_, err = service.ValidateToken(access + "tampered")
	assert.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	service, _ := newTestUserService()
	ctx := context.Background()

	user, err := service.Register(ctx, RegisterInput{Email: "a@example.com", Username: "alpha", Password: "password123"})
	require.NoError(t, err)
	_, err = service.Register(ctx, RegisterInput{Email: "b@example.com", Username: "beta", Password: "password123"})
	require.NoError(t, err)

	name, bio := "Alpha Person", "counts boxes"
	updated, err := service.UpdateProfile(ctx, user.ID, ProfilePatch{Name: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Person", updated.Name)
	assert.Equal(t, "counts boxes", updated.Bio)
	assert.Equal(t, "a@example.com", updated.Email)

	taken := "beta"
	_, err = service.UpdateProfile(ctx, user.ID, ProfilePatch{Username: &taken})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)

	blank := "  "
	_, err = service.UpdateProfile(ctx, user.ID, ProfilePatch{Username: &blank})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
