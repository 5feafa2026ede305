package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/internal/repository"
)

// OverrideTokenSource resolves the bearer token for platform API
// calls: the admin-supplied override stored in the database wins, the
// statically configured token is the fallback. With neither available
// it fails with domain.ErrTokenNotConfigured.
type OverrideTokenSource struct {
	tokens   repository.TokenRepository
	fallback string
}

// NewOverrideTokenSource creates a new token source.
func NewOverrideTokenSource(tokens repository.TokenRepository, fallback string) *OverrideTokenSource {
	return &OverrideTokenSource{
		tokens:   tokens,
		fallback: fallback,
	}
}

// Token returns the effective bearer token.
func (s *OverrideTokenSource) Token(ctx context.Context) (string, error) {
	cfg, err := s.tokens.Get(ctx)
	if err == nil && strings.TrimSpace(cfg.Token) != "" {
		return cfg.Token, nil
	}
	if err != nil && !errors.Is(err, domain.ErrTokenNotConfigured) {
		// A stored-but-unreadable override (e.g. seal key mismatch) is
		// a configuration problem, not a reason to silently fall back.
		return "", err
	}

	if strings.TrimSpace(s.fallback) != "" {
		return s.fallback, nil
	}
	return "", domain.ErrTokenNotConfigured
}
