package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"github.com/KevinKickass/OpenMachineAIO/internal/api/websocket"
	"github.com/KevinKickass/OpenMachineAIO/internal/auth"
	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"github.com/KevinKickass/OpenMachineAIO/internal/devices"
	"github.com/KevinKickass/OpenMachineAIO/internal/interfaces"
	"github.com/KevinKickass/OpenMachineAIO/internal/types"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

type fakeLifecycle struct {
	cfg     *config.Config
	manager *devices.Manager
}

func (f *fakeLifecycle) Config() *config.Config          { return f.cfg }
func (f *fakeLifecycle) DeviceManager() *devices.Manager { return f.manager }
func (f *fakeLifecycle) Shutdown(context.Context) error  { return nil }
func (f *fakeLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{State: "RUNNING", Ready: f.manager != nil}
}

type brokenBus struct{}

func (brokenBus) Open(int, int, aio.Mode) (aio.Conn, error) {
	return nil, errors.New("no such device")
}

type testEnv struct {
	server     *Server
	bus        *aio.FixtureBus
	operator   string
	technician string
}

func newTestEnv(t *testing.T, bus aio.Bus) *testEnv {
	t.Helper()

	operator, operatorHash, err := auth.GenerateMachineToken()
	assert.NilError(t, err)
	technician, technicianHash, err := auth.GenerateMachineToken()
	assert.NilError(t, err)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecretEnv: "AIO_TEST_UNSET_SECRET",
			MachineTokens: []config.MachineTokenConfig{
				{Name: "hmi", TokenHash: operatorHash, Role: "operator"},
				{Name: "service", TokenHash: technicianHash, Role: "technician"},
			},
		},
	}

	logger := zap.NewNop()
	board := &types.BoardConfig{
		Name: "AIO",
		Type: types.BoardTypePigeon,
		Outputs: []types.OutputChannel{
			{Name: "out1", Init: 25, Mask: 1},
			{Name: "out2", Init: 25, Mask: 2},
		},
		Inputs: []types.InputChannel{{Name: "in1"}, {Name: "in2"}},
	}
	device := aio.NewDevice(board, bus, aio.DefaultBusParams(), logger)
	manager := devices.NewManager(device, logger)

	authService := auth.NewAuthService(cfg.Auth, logger)
	hub := websocket.NewHub(logger, authService)
	t.Cleanup(hub.Close)

	env := &testEnv{
		server:     NewServer(cfg, &fakeLifecycle{cfg: cfg, manager: manager}, logger, hub, authService),
		operator:   operator,
		technician: technician,
	}
	if fb, ok := bus.(*aio.FixtureBus); ok {
		env.bus = fb
	}
	return env
}

func newFixtureEnv(t *testing.T) *testEnv {
	return newTestEnv(t, aio.NewFixtureBus(aio.Fixture{Samples: [4]uint16{100, 200, 300, 1023}}))
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		assert.NilError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.ErrorResponse
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestHealthIsPublic(t *testing.T) {
	env := newFixtureEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
}

func TestAIORequiresToken(t *testing.T) {
	env := newFixtureEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/aio", "", nil)
	assert.Equal(t, rec.Code, http.StatusUnauthorized)
}

func TestReadInputs(t *testing.T) {
	env := newFixtureEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/aio/read", env.operator, nil)
	assert.Equal(t, rec.Code, http.StatusOK)

	var resp struct {
		Values map[string]float64 `json:"values"`
	}
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.DeepEqual(t, resp.Values, map[string]float64{"in1": 0.984, "in2": 1.968})

	rec = env.do(t, http.MethodGet, "/api/v1/aio", env.operator, nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	var snap aio.Snapshot
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Check(t, is.Equal(snap.Inputs["in2"], 1.968))
}

func TestWriteNeedsTechnician(t *testing.T) {
	env := newFixtureEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/aio/write", env.operator,
		map[string]any{"target": 2, "value": 30})
	assert.Equal(t, rec.Code, http.StatusForbidden)
	assert.Check(t, is.Len(env.bus.Frames(), 0))
}

func TestWriteByMask(t *testing.T) {
	env := newFixtureEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/aio/write", env.technician,
		map[string]any{"target": 2, "value": 30})
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())

	frames := env.bus.Frames()
	assert.Assert(t, is.Len(frames, 1))
	assert.DeepEqual(t, frames[0], []byte{0x4F, 0x00, 0x80, 0x2C, 0x01})
}

func TestWritePair(t *testing.T) {
	env := newFixtureEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/aio/write", env.technician,
		map[string]any{"target": nil, "value": []float64{10, 20}})
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())

	var resp struct {
		Outputs map[string]float64 `json:"outputs"`
	}
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.DeepEqual(t, resp.Outputs, map[string]float64{"out1": 10, "out2": 20})
}

func TestWriteErrorMapping(t *testing.T) {
	env := newFixtureEnv(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"out of range", map[string]any{"target": "out1", "value": 101}, http.StatusBadRequest, types.CodeRange},
		{"pair for single", map[string]any{"target": "out1", "value": []float64{1, 2}}, http.StatusBadRequest, types.CodeShape},
		{"wrong pair length", map[string]any{"value": []float64{1, 2, 3}}, http.StatusBadRequest, types.CodeShape},
		{"string value", map[string]any{"target": "out1", "value": "high"}, http.StatusBadRequest, types.CodeShape},
		{"unknown name", map[string]any{"target": "nope", "value": 5}, http.StatusNotFound, types.CodeTarget},
		{"unknown mask", map[string]any{"target": 9, "value": 5}, http.StatusNotFound, types.CodeTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/aio/write", env.technician, tt.body)
			assert.Equal(t, rec.Code, tt.status, rec.Body.String())
			assert.Equal(t, errorCode(t, rec), tt.code)
		})
	}

	assert.Check(t, is.Len(env.bus.Frames(), 0))
}

func TestBusFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, brokenBus{})

	rec := env.do(t, http.MethodPost, "/api/v1/aio/read", env.operator, nil)
	assert.Equal(t, rec.Code, http.StatusBadGateway)
	assert.Equal(t, errorCode(t, rec), types.CodeBus)
}

func TestIsClientError(t *testing.T) {
	assert.Check(t, types.IsClientError(types.CodeRange))
	assert.Check(t, types.IsClientError(types.CodeTarget))
	assert.Check(t, !types.IsClientError(types.CodeBus))
	assert.Check(t, !types.IsClientError(types.CodeInternal))
}
