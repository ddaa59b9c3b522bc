package service

import (
	"context"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/config"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/middleware"
	"github.com/kupferco/lv-notas/internal/model"
	"github.com/kupferco/lv-notas/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.TherapistRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.TherapistRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	therapist, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil || !therapist.Active {
		return nil, apierror.ErrValidation.WithDetailf("Credenciais inválidas")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(therapist.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.ErrValidation.WithDetailf("Credenciais inválidas")
	}

	return s.buildTokens(therapist)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apierror.ErrValidation.WithDetailf("Refresh token inválido ou expirado")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.ErrValidation.WithDetailf("Refresh token inválido")
	}
	email, _ := claims["email"].(string)

	therapist, err := s.repo.FindByEmail(ctx, email)
	if err != nil || !therapist.Active {
		return nil, apierror.ErrValidation.WithDetailf("Conta não encontrada ou inativa")
	}
	return s.buildTokens(therapist)
}

func (s *authService) buildTokens(t *model.Therapist) (*dto.LoginResponse, error) {
	access, err := s.generateToken(t, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(t, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	resp := &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		Therapist: dto.TherapistResponse{
			ID:       t.ID.String(),
			Email:    t.Email,
			Name:     t.Name,
			Document: t.Document,
		},
	}
	if t.CertificateExpiresAt != nil {
		exp := t.CertificateExpiresAt.Format("2006-01-02")
		resp.Therapist.CertificateExpiresAt = &exp
	}
	return resp, nil
}

func (s *authService) generateToken(t *model.Therapist, ttl time.Duration) (string, error) {
	claims := middleware.JWTClaims{
		TherapistID: t.ID.String(),
		Email:       t.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
