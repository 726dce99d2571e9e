package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rover/internal/control"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/pipeline"
	"github.com/banshee-data/rover/internal/store"
	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func newTestServer(t *testing.T) (*Server, *store.Store, http.Handler) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "rover.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	s := NewServer(st)
	return s, st, LoggingMiddleware(s.ServeMux())
}

func TestPutControlPublishesUpdate(t *testing.T) {
	_, st, h := newTestServer(t)
	sub, err := st.LiveControl(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodPut, "/api/control", `{"steer":0.3,"speed":0.5}`))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, control.Update, ev.Action)
		assert.Equal(t, ControlID, ev.ID)
		assert.Equal(t, control.Command{Steer: 0.3, Speed: 0.5}, ev.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("no update event")
	}

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/control", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got controlResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.JSONEq(t, `{"steer":0.3,"speed":0.5}`, string(got.Command))
}

func TestControlRejectsBadBodies(t *testing.T) {
	_, _, h := newTestServer(t)
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"not json", http.MethodPut, "full ahead", http.StatusBadRequest},
		{"array", http.MethodPut, `[0.3, 0.5]`, http.StatusBadRequest},
		{"too large", http.MethodPost, `{"x":"` + strings.Repeat("a", maxControlBody) + `"}`, http.StatusRequestEntityTooLarge},
		{"method", http.MethodPatch, `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewTestRecorder()
			h.ServeHTTP(w, testutil.NewTestRequest(tt.method, "/api/control", tt.body))
			testutil.AssertStatusCode(t, w.Code, tt.want)
		})
	}
}

func TestPostDeleteAndRecreate(t *testing.T) {
	_, st, h := newTestServer(t)
	sub, err := st.LiveControl(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodPost, "/api/control", `{"steer":0,"speed":0}`))
	testutil.AssertStatusCode(t, w.Code, http.StatusCreated)
	var created controlResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodDelete, "/api/control", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusNoContent)

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodDelete, "/api/control", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodPut, "/api/control", `{"steer":0,"speed":0.1}`))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var actions []control.Action
	for len(actions) < 3 {
		select {
		case ev := <-sub.Events():
			actions = append(actions, ev.Action)
		case <-time.After(2 * time.Second):
			t.Fatalf("got events %v, want 3", actions)
		}
	}
	assert.Equal(t, []control.Action{control.Insert, control.Delete, control.Insert}, actions)
}

func TestTelemetry(t *testing.T) {
	_, st, h := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, st.Append(ctx, telemetry.GpsFix{Latitude: 47.2, Longitude: -1.55, Quality: "1", Satellites: 7}))
	require.NoError(t, st.Append(ctx, telemetry.AnalogSample{BatteryVoltage: 12.3}))

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/telemetry", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body, "gps_fix")
	assert.Contains(t, body, "analog")
	assert.NotContains(t, body, "imu")
}

func TestTelemetrySpeedUnits(t *testing.T) {
	_, st, h := newTestServer(t)
	require.NoError(t, st.Append(context.Background(), telemetry.GpsVelocity{Course: 90, Speed: 36}))

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/telemetry?units=mps", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var body store.Latest
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotNil(t, body.GpsVelocity)
	assert.InDelta(t, 10.0, body.GpsVelocity.Reading.Speed, 1e-9)
	assert.Equal(t, 90.0, body.GpsVelocity.Reading.Course)

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/telemetry?units=knots", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestStatus(t *testing.T) {
	s, _, h := newTestServer(t)
	s.SetControlStats(func() control.Stats { return control.Stats{Applied: 4, Timeouts: 2} })
	s.AddPipelines(&pipeline.Pipeline{Name: "IMU"})

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/status", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var got statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.NotNil(t, got.Control)
	assert.Equal(t, int64(2), got.Control.Timeouts)
	assert.Contains(t, got.Pipelines, "IMU")
	assert.NotEmpty(t, got.Version)
}

func TestBatteryChart(t *testing.T) {
	_, st, h := newTestServer(t)

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/charts/battery", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)

	for _, v := range []float64{12.6, 12.5, 12.4} {
		require.NoError(t, st.AppendAnalog(context.Background(), telemetry.AnalogSample{BatteryVoltage: v}))
	}
	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/charts/battery?minutes=5", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Battery voltage")

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/charts/battery?minutes=-1", ""))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestStatusCodeColor(t *testing.T) {
	for code, want := range map[int]string{200: colorBoldGreen, 302: colorYellow, 404: colorBoldRed, 503: colorBoldRed} {
		if got := statusCodeColor(code); !strings.HasPrefix(got, want) {
			t.Errorf("statusCodeColor(%d) = %q", code, got)
		}
	}
}
