package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/iconidentify/facepass/internal/api/middleware"
	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// adminRequest builds a request carrying the acting admin id, as the
// auth middleware would.
func adminRequest(method, target, adminID string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.WithAdminID(req.Context(), adminID))
}

// mockFeedService is a test implementation of MediaService and
// AdminMediaService.
type mockFeedService struct {
	result        *service.MediaResult
	getErr        error
	invalidateErr error
	disconnectErr error
	username      string
	invalidated   int
	disconnected  int
	gotKind       domain.CacheKind
	gotAdminID    string
}

func (m *mockFeedService) GetMedia(ctx context.Context, adminID string, kind domain.CacheKind) (*service.MediaResult, error) {
	m.gotAdminID = adminID
	m.gotKind = kind
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.result, nil
}

func (m *mockFeedService) InvalidateForAdmin(ctx context.Context, adminID string) (string, error) {
	m.gotAdminID = adminID
	if m.invalidateErr != nil {
		return "", m.invalidateErr
	}
	m.invalidated++
	return m.username, nil
}

func (m *mockFeedService) DisconnectAdmin(ctx context.Context, adminID string) (string, error) {
	m.gotAdminID = adminID
	if m.disconnectErr != nil {
		return "", m.disconnectErr
	}
	m.disconnected++
	return m.username, nil
}
