package rest

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/KevinKickass/OpenMachineAIO/internal/api/websocket"
	"github.com/KevinKickass/OpenMachineAIO/internal/auth"
	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

func TestLogin(t *testing.T) {
	hash, err := auth.NewPasswordHasher().HashPassword("s3cret")
	assert.NilError(t, err)

	cfg := &config.Config{Auth: config.AuthConfig{
		Users: []config.UserConfig{{Username: "tech", PasswordHash: hash, Role: "technician"}},
	}}
	logger := zap.NewNop()
	authService := auth.NewAuthService(cfg.Auth, logger)
	hub := websocket.NewHub(logger, authService)
	t.Cleanup(hub.Close)

	env := &testEnv{server: NewServer(cfg, &fakeLifecycle{cfg: cfg}, logger, hub, authService)}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "tech", Password: "wrong"})
	assert.Equal(t, rec.Code, http.StatusUnauthorized)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "tech"})
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "tech", Password: "s3cret"})
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())

	var resp LoginResponse
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, resp.TokenType, "Bearer")
	assert.Assert(t, resp.ExpiresIn > 0)

	// No board loaded yet: authenticated, but not ready.
	rec = env.do(t, http.MethodGet, "/api/v1/aio", resp.AccessToken, nil)
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)

	rec = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)
}
