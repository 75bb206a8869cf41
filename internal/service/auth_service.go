package service

import (
	"errors"
	"time"

	"restaurant-pos/internal/model"
	"restaurant-pos/pkg/jwt"

	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid name or key")

type TokenRequest struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
}

type AuthService interface {
	IssueToken(req TokenRequest) (*TokenResponse, error)
}

type authService struct {
	accounts map[string]model.Account
	secret   []byte
	ttl      time.Duration
	log      *logrus.Logger
}

func NewAuthService(accounts []model.Account, secret []byte, ttl time.Duration, log *logrus.Logger) AuthService {
	byName := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byName[a.Name] = a
	}
	return &authService{accounts: byName, secret: secret, ttl: ttl, log: log}
}

func (s *authService) IssueToken(req TokenRequest) (*TokenResponse, error) {
	account, ok := s.accounts[req.Name]
	if !ok || !account.CheckKey(req.Key) {
		s.log.WithField("name", req.Name).Warn("rejected token request")
		return nil, ErrInvalidCredentials
	}

	token, expires, err := jwt.GenerateToken(account.Name, account.Role, s.secret, s.ttl)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}
	return &TokenResponse{Token: token, ExpiresAt: expires, Name: account.Name, Role: account.Role}, nil
}
