package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ituby/GenieAI-sub000/internal/models"
	"github.com/ituby/GenieAI-sub000/internal/repositories"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

type UserService struct {
	UserRepo   *repositories.UserRepository
	SigningKey string
}

func (s *UserService) SignUp(ctx context.Context, req models.SignUpRequest) (models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return models.AuthResponse{}, fmt.Errorf("valid email is required")
	}
	if len(req.Password) < 8 {
		return models.AuthResponse{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.UserRepo.CreateUser(ctx, models.User{
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Password: string(hash),
	})
	if err != nil {
		return models.AuthResponse{}, err
	}

	return s.issueTokens(ctx, user)
}

func (s *UserService) SignIn(ctx context.Context, req models.SignInRequest) (models.AuthResponse, error) {
	user, err := s.UserRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.AuthResponse{}, models.ErrInvalidCredentials
		}
		return models.AuthResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return models.AuthResponse{}, models.ErrInvalidCredentials
	}
	user.Password = ""

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token and returns a fresh token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (models.AuthResponse, error) {
	session, err := s.UserRepo.GetSessionByToken(ctx, refreshToken)
	if err != nil {
		return models.AuthResponse{}, err
	}
	if session.ID == 0 || session.ExpiresAt.Before(time.Now()) {
		return models.AuthResponse{}, models.ErrForbidden
	}

	user, err := s.UserRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return models.AuthResponse{}, err
	}

	newRefresh := uuid.NewString()
	if err := s.UserRepo.RotateSession(ctx, refreshToken, newRefresh, time.Now().Add(refreshTokenTTL)); err != nil {
		return models.AuthResponse{}, err
	}

	access, err := s.signAccessToken(user.ID)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{User: user, AccessToken: access, RefreshToken: newRefresh}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int) (models.User, error) {
	return s.UserRepo.GetUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, user models.User) (models.User, error) {
	return s.UserRepo.UpdateUser(ctx, user)
}

func (s *UserService) issueTokens(ctx context.Context, user models.User) (models.AuthResponse, error) {
	access, err := s.signAccessToken(user.ID)
	if err != nil {
		return models.AuthResponse{}, err
	}

	refresh := uuid.NewString()
	if err := s.UserRepo.CreateSession(ctx, models.Session{
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return models.AuthResponse{}, err
	}

	return models.AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) signAccessToken(userID int) (string, error) {
	claims := models.Claims{
		UserID: userID,
		Role:   "user",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(accessTokenTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.SigningKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
