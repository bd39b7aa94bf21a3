package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/labforge/internal/config"
	"github.com/manthysbr/labforge/internal/core/domain"
)

func newUserService(t *testing.T) (*UserService, *memRepo) {
	t.Helper()
	t.Setenv("LABFORGE_SECRET_KEY", "test-secret-key")
	secret, err := config.NewSecretKey()
	require.NoError(t, err)
	repo := newMemRepo()
	return NewUserService(testLogger(), repo, secret), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.Register(context.Background(), "Asha", "Asha@Example.COM", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email, "email is normalized")
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.False(t, user.Profile.Complete)

	got, err := svc.Login(context.Background(), "asha@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "s3cret-pass")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "Other", "asha@example.com", "different-pass")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newUserService(t)

	cases := []struct {
		name            string
		userName, email string
		password        string
	}{
		{"empty name", "", "a@b.com", "longenough"},
		{"bad email", "Asha", "not-an-email", "longenough"},
		{"short password", "Asha", "a@b.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.userName, tc.email, tc.password)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newUserService(t)
	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, wrongPass := svc.Login(context.Background(), "asha@example.com", "wrong")
	_, wrongMail := svc.Login(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, wrongPass, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongMail, domain.ErrInvalidCredentials)
}

func TestUpdateProfileDerivesComplete(t *testing.T) {
	svc, _ := newUserService(t)
	user, err := svc.Register(context.Background(), "Asha", "asha@example.com", "s3cret-pass")
	require.NoError(t, err)

	partial := domain.Profile{FullName: "Asha K", RollNumber: "21CS001", Complete: true}
	updated, err := svc.UpdateProfile(context.Background(), user.ID, partial)
	require.NoError(t, err)
	assert.False(t, updated.Profile.Complete, "client cannot force completeness")

	full := domain.Profile{
		FullName: "Asha K", RollNumber: "21CS001", Course: "B.Tech CSE", Semester: "4",
		University: domain.University{Name: "Test University", Department: "CSE"},
	}
	updated, err = svc.UpdateProfile(context.Background(), user.ID, full)
	require.NoError(t, err)
	assert.True(t, updated.Profile.Complete)
}

func TestSetAPIKeyRoundTrip(t *testing.T) {
	svc, repo := newUserService(t)
	user, err := svc.Register(context.Background(), "Asha", "asha@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.SetAPIKey(context.Background(), user.ID, "AIzaSyTestKey1234"))

	stored, err := repo.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.APIKeyEncrypted, "enc:"))
	assert.NotContains(t, stored.APIKeyEncrypted, "AIzaSyTestKey1234")

	masked, err := svc.MaskedAPIKey(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "****1234", masked)
}

func TestSetAPIKeyClears(t *testing.T) {
	svc, repo := newUserService(t)
	user, err := svc.Register(context.Background(), "Asha", "asha@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.SetAPIKey(context.Background(), user.ID, "some-key-0000"))
	require.NoError(t, svc.SetAPIKey(context.Background(), user.ID, ""))

	stored, err := repo.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.APIKeyEncrypted)

	masked, err := svc.MaskedAPIKey(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, masked)
}
