package controller

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPromptService struct {
	upserted map[string]*dto.UpsertPromptRequest
}

func (s *stubPromptService) Get(ctx context.Context, clientId string) (*dto.PromptResponse, error) {
	if req, ok := s.upserted[clientId]; ok {
		return &dto.PromptResponse{ClientId: clientId, Name: req.Name, Template: req.Template}, nil
	}
	return &dto.PromptResponse{ClientId: clientId, Name: "default", DefaultUsed: true}, nil
}

func (s *stubPromptService) Upsert(ctx context.Context, clientId string, request *dto.UpsertPromptRequest) (*dto.PromptResponse, error) {
	if request.Template == "broken" {
		return nil, apperror.Validation("stub", "invalid template")
	}
	s.upserted[clientId] = request
	return &dto.PromptResponse{ClientId: clientId, Name: request.Name, Version: 1}, nil
}

func signedToken(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id": "ops",
		"role":      role,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestPromptRoutesRequireAdmin(t *testing.T) {
	const secret = "prompt-secret"
	svc := &stubPromptService{upserted: map[string]*dto.UpsertPromptRequest{}}

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewPromptController(svc, secret).RegisterRoutes(app.Group("/api"))

	tests := []struct {
		name   string
		method string
		body   string
		auth   string
		status int
	}{
		{name: "no token", method: "GET", auth: "", status: 401},
		{name: "non admin", method: "GET", auth: signedToken(t, secret, "member"), status: 403},
		{name: "admin read", method: "GET", auth: signedToken(t, secret, "admin"), status: 200},
		{name: "admin upsert", method: "PUT", auth: signedToken(t, secret, "admin"),
			body: `{"name":"support","system_prompt":"s","template":"{{evidence}} {{history}} {{question}}"}`, status: 200},
		{name: "invalid template", method: "PUT", auth: signedToken(t, secret, "admin"),
			body: `{"name":"support","system_prompt":"s","template":"broken"}`, status: 400},
		{name: "missing fields", method: "PUT", auth: signedToken(t, secret, "admin"), body: `{"name":"support"}`, status: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(tt.method, "/api/prompt/v1/acme", tt.body)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	require.Contains(t, svc.upserted, "acme")
	assert.Equal(t, "support", svc.upserted["acme"].Name)
}

func TestPromptReadOpenWhenAuthDisabled(t *testing.T) {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewPromptController(&stubPromptService{upserted: map[string]*dto.UpsertPromptRequest{}}, "").RegisterRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/prompt/v1/acme", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
