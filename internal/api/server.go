package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/rover/internal/control"
	"github.com/banshee-data/rover/internal/httputil"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/pipeline"
	"github.com/banshee-data/rover/internal/store"
	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/units"
	"github.com/banshee-data/rover/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// ControlID is the control record the rover's control loop acts on.
const ControlID = "rover"

// Store is the part of the telemetry store the API reads and writes.
type Store interface {
	Control(ctx context.Context, id string) (json.RawMessage, time.Time, error)
	InsertControl(ctx context.Context, id string, payload []byte) error
	UpdateControl(ctx context.Context, id string, payload []byte) error
	DeleteControl(ctx context.Context, id string) error
	LatestReadings(ctx context.Context) (store.Latest, error)
	RecentAnalog(ctx context.Context, since time.Time, limit int) ([]store.Sample[telemetry.AnalogSample], error)
}

type Server struct {
	store        Store
	started      time.Time
	controlStats func() control.Stats
	pipelines    []*pipeline.Pipeline
}

func NewServer(st Store) *Server {
	return &Server{store: st, started: time.Now()}
}

// SetControlStats reports the control loop's counters on /api/status.
func (s *Server) SetControlStats(fn func() control.Stats) {
	s.controlStats = fn
}

// AddPipelines reports the pipelines' counters on /api/status.
func (s *Server) AddPipelines(p ...*pipeline.Pipeline) {
	s.pipelines = append(s.pipelines, p...)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[API] [%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/control", s.handleControl)
	mux.HandleFunc("GET /api/telemetry", s.showTelemetry)
	mux.HandleFunc("GET /api/status", s.showStatus)
	mux.HandleFunc("GET /api/charts/battery", s.showBatteryChart)
	return mux
}

// showTelemetry returns the latest reading of every kind. ?units= converts
// the GPS ground speed, which is stored in km/h.
func (s *Server) showTelemetry(w http.ResponseWriter, r *http.Request) {
	unit := r.URL.Query().Get("units")
	if unit != "" && !units.IsValid(unit) {
		httputil.BadRequest(w, "units must be one of: "+units.GetValidUnitsString())
		return
	}

	latest, err := s.store.LatestReadings(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to read telemetry: "+err.Error())
		return
	}
	if unit != "" && latest.GpsVelocity != nil {
		latest.GpsVelocity.Reading.Speed = units.ConvertSpeed(latest.GpsVelocity.Reading.Speed, unit)
	}
	httputil.WriteJSONOK(w, latest)
}

type statusResponse struct {
	Version   string                    `json:"version"`
	UptimeS   float64                   `json:"uptime_s"`
	Control   *control.Stats            `json:"control,omitempty"`
	Pipelines map[string]pipeline.Stats `json:"pipelines,omitempty"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version: version.String(),
		UptimeS: time.Since(s.started).Seconds(),
	}
	if s.controlStats != nil {
		stats := s.controlStats()
		resp.Control = &stats
	}
	if len(s.pipelines) > 0 {
		resp.Pipelines = make(map[string]pipeline.Stats, len(s.pipelines))
		for _, p := range s.pipelines {
			resp.Pipelines[p.Name] = p.Stats()
		}
	}
	httputil.WriteJSONOK(w, resp)
}
