package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"docrag-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, body io.Reader) ErrorBody {
	t.Helper()
	var out ErrorBody
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
	})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return apperror.VersionConflict("stale", errors.New("revision 3"))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: connection reset")
	})

	cases := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/missing", 404, apperror.CodeDocumentNotFound, "Document not found"},
		{"/conflict", 409, apperror.CodeVersionConflict, "stale"},
		{"/boom", 500, apperror.CodeInternal, "An unexpected error occurred"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decodeError(t, resp.Body)
			assert.Equal(t, tc.code, body.Error)
			assert.Equal(t, tc.message, body.Message)
			assert.False(t, body.Success)
		})
	}
}

type sampleRequest struct {
	Name  string `validate:"required"`
	Limit int    `validate:"omitempty,min=1,max=10"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Name: "ok", Limit: 3}))

	err := ValidateRequest(sampleRequest{Limit: 50})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, apperror.CodeInvalidRequest, appErr.Code)
	assert.Contains(t, appErr.Message, "Name failed on required")
	assert.Contains(t, appErr.Message, "Limit failed on max=10")
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	userId := uuid.New()

	app := fiber.New()
	app.Get("/me", JwtMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": UserId(c).String(), "roles": Roles(c)})
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
		"roles":   []string{"sre"},
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		UserId string   `json:"user_id"`
		Roles  []string `json:"roles"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, userId.String(), body.UserId)
	assert.Equal(t, []string{"sre"}, body.Roles)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	bad := httptest.NewRequest("GET", "/me", nil)
	bad.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(bad)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
