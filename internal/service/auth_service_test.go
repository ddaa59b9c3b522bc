package service_test

import (
	"context"
	"testing"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/config"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func authFixture(t *testing.T) (service.AuthService, *stubTherapistRepo) {
	t.Helper()
	repo := newStubTherapistRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nh4-forte"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &model.Therapist{
		Email: "demo@lvnotas.com.br", Name: "Terapeuta Demo",
		PasswordHash: string(hash), Active: true,
	}))
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1, JWTRefreshHours: 24}
	return service.NewAuthService(repo, cfg), repo
}

func TestLogin_Success(t *testing.T) {
	svc, _ := authFixture(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "demo@lvnotas.com.br", Password: "s3nh4-forte",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "demo@lvnotas.com.br", resp.Therapist.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "demo@lvnotas.com.br", Password: "errada",
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, repo := authFixture(t)
	therapist, err := repo.FindByEmail(context.Background(), "demo@lvnotas.com.br")
	require.NoError(t, err)
	therapist.Active = false
	require.NoError(t, repo.Update(context.Background(), therapist))

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "demo@lvnotas.com.br", Password: "s3nh4-forte",
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestRefresh_RoundTrip(t *testing.T) {
	svc, _ := authFixture(t)

	login, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "demo@lvnotas.com.br", Password: "s3nh4-forte",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, apierror.ErrValidation)
}
