package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"multimodal-rag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerMiddlewareMapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{err: apperror.Validation("op", "bad"), status: 400, kind: "ValidationError"},
		{err: apperror.NotFound("op", "gone"), status: 404, kind: "NotFound"},
		{err: apperror.Configuration("op", "broken"), status: 500, kind: "ConfigurationError"},
		{err: apperror.Upstream("op", errors.New("down")), status: 503, kind: "UpstreamUnavailable"},
		{err: fiber.ErrUnprocessableEntity, status: 422, kind: "ValidationError"},
		{err: errors.New("boom"), status: 500, kind: "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.kind, body.ErrorKind)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type request struct {
		ClientId string `validate:"required"`
		Rating   int    `validate:"oneof=-1 1"`
	}

	assert.NoError(t, ValidateRequest(request{ClientId: "acme", Rating: 1}))

	err := ValidateRequest(request{Rating: 3})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "ClientId failed required")
	assert.Contains(t, err.Error(), "Rating failed oneof=-1 1")
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "s3cret"

	app := fiber.New()
	app.Get("/", JwtMiddleware(secret), func(ctx *fiber.Ctx) error {
		return ctx.SendString(ClientId(ctx, "from-body"))
	})
	app.Get("/admin", JwtMiddleware(secret), AdminOnly(secret), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{name: "missing", path: "/", status: 401},
		{name: "wrong secret", path: "/", token: signed(t, "other", jwt.MapClaims{"client_id": "acme", "exp": exp}), status: 401},
		{name: "no client", path: "/", token: signed(t, secret, jwt.MapClaims{"exp": exp}), status: 401},
		{name: "valid", path: "/", token: signed(t, secret, jwt.MapClaims{"client_id": "acme", "exp": exp}), status: 200},
		{name: "not admin", path: "/admin", token: signed(t, secret, jwt.MapClaims{"client_id": "acme", "exp": exp}), status: 403},
		{name: "admin", path: "/admin", token: signed(t, secret, jwt.MapClaims{"client_id": "acme", "role": "admin", "exp": exp}), status: 204},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestJwtMiddlewareDisabled(t *testing.T) {
	app := fiber.New()
	app.Get("/", JwtMiddleware(""), AdminOnly(""), func(ctx *fiber.Ctx) error {
		return ctx.SendString(ClientId(ctx, "from-body"))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
