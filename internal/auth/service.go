package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"cineflow/console/internal/model"
	"cineflow/console/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
)

const issuer = "cineflow-mock"

type Claims struct {
	KeyID   string `json:"kid"`
	KeyName string `json:"name"`
	jwt.RegisteredClaims
}

// Service exchanges API keys for short lived bearer tokens.
type Service struct {
	store     *store.MemoryStore
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewService(st *store.MemoryStore, secret string, accessTTL time.Duration) *Service {
	return &Service{
		store:     st,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// SeedAPIKey registers key under name unless it is already known.
func (s *Service) SeedAPIKey(name, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	fp := fingerprint(key)
	if _, err := s.store.GetAPIKeyByFingerprint(fp); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash api key: %w", err)
	}
	s.store.SaveAPIKey(store.APIKey{
		ID:          uuid.NewString(),
		Name:        name,
		Fingerprint: fp,
		Hash:        hash,
		CreatedAt:   s.now().UTC(),
	})
	return nil
}

func (s *Service) Exchange(apiKey string) (model.AuthToken, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return model.AuthToken{}, ErrUnauthorized
	}
	key, err := s.store.GetAPIKeyByFingerprint(fingerprint(apiKey))
	if err != nil {
		return model.AuthToken{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(key.Hash, []byte(apiKey)); err != nil {
		return model.AuthToken{}, ErrUnauthorized
	}
	return s.issue(key)
}

func (s *Service) ParseAccess(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrUnauthorized
	}
	return *claims, nil
}

func (s *Service) issue(key store.APIKey) (model.AuthToken, error) {
	now := s.now().UTC()
	claims := Claims{
		KeyID:   key.ID,
		KeyName: key.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   key.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return model.AuthToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return model.AuthToken{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
