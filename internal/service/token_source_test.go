package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iconidentify/facepass/internal/domain"
)

// mockTokenRepository is a test implementation of repository.TokenRepository.
type mockTokenRepository struct {
	cfg *domain.BearerTokenConfig
	err error
}

func (m *mockTokenRepository) Get(ctx context.Context) (*domain.BearerTokenConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cfg, nil
}

func (m *mockTokenRepository) Set(ctx context.Context, token, updatedBy string) error {
	m.cfg = &domain.BearerTokenConfig{Token: token, UpdatedBy: updatedBy}
	return nil
}

func (m *mockTokenRepository) Delete(ctx context.Context) error {
	m.cfg = nil
	m.err = domain.ErrTokenNotConfigured
	return nil
}

func TestTokenSourceOverrideWins(t *testing.T) {
	repo := &mockTokenRepository{cfg: &domain.BearerTokenConfig{Token: "override"}}
	src := NewOverrideTokenSource(repo, "fallback")

	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "override" {
		t.Errorf("got %q, want override", token)
	}
}

func TestTokenSourceFallsBackToStatic(t *testing.T) {
	repo := &mockTokenRepository{err: domain.ErrTokenNotConfigured}
	src := NewOverrideTokenSource(repo, "fallback")

	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "fallback" {
		t.Errorf("got %q, want fallback", token)
	}
}

func TestTokenSourceNeitherConfigured(t *testing.T) {
	repo := &mockTokenRepository{err: domain.ErrTokenNotConfigured}
	src := NewOverrideTokenSource(repo, "")

	_, err := src.Token(context.Background())
	if !errors.Is(err, domain.ErrTokenNotConfigured) {
		t.Errorf("expected ErrTokenNotConfigured, got %v", err)
	}
}

func TestTokenSourceUnreadableOverrideDoesNotFallBack(t *testing.T) {
	unsealErr := errors.New("unseal bearer token: wrong key")
	repo := &mockTokenRepository{err: unsealErr}
	src := NewOverrideTokenSource(repo, "fallback")

	_, err := src.Token(context.Background())
	if !errors.Is(err, unsealErr) {
		t.Errorf("expected unseal error to surface, got %v", err)
	}
}

func TestTokenSourceBlankOverrideFallsBack(t *testing.T) {
	repo := &mockTokenRepository{cfg: &domain.BearerTokenConfig{Token: "   "}}
	src := NewOverrideTokenSource(repo, "fallback")

	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "fallback" {
		t.Errorf("got %q, want fallback", token)
	}
}
