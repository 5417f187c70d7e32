package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

type noUsers struct{}

func (noUsers) GetUserByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, nil
}

func TestLoggerIncludesResolvedPrincipal(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	verifier := auth.NewVerifier("log-test-secret", noUsers{})
	token, err := verifier.IssueGuest("visitor", time.Hour)
	require.NoError(t, err)

	handler := Logger(logger)(NewAuthMiddleware(verifier).RequireAuth(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	req := httptest.NewRequest(http.MethodGet, "/messages/global", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"principal":"guest_`)
	assert.Contains(t, line, `"guest":true`)
	assert.Contains(t, line, `"status":200`)
}

func TestLoggerOmitsPrincipalOnPublicRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotContains(t, buf.String(), `"principal"`)
}
