package service

import (
	"errors"
	"time"

	"sessionlog-sync-server/pkg/hash"
	"sessionlog-sync-server/pkg/jwt"
)

var ErrInvalidAccessKey = errors.New("invalid access key")

// AuthService mints peer tokens. Peers present the deployment's shared access
// key (stored as a bcrypt hash in configuration) and receive a JWT carrying
// their remote identity.
type AuthService struct {
	accessKeyHash string
	jwtSecret     string
	tokenTTL      time.Duration
}

func NewAuthService(accessKeyHash, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		accessKeyHash: accessKeyHash,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
	}
}

func (s *AuthService) IssueToken(remoteID, accessKey string) (string, error) {
	if err := hash.Compare(s.accessKeyHash, accessKey); err != nil {
		return "", ErrInvalidAccessKey
	}
	return jwt.GenerateToken(remoteID, s.tokenTTL, s.jwtSecret)
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
