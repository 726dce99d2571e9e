package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rover/internal/httputil"
)

const (
	defaultChartWindow = 30 * time.Minute
	maxChartPoints     = 2000
)

// showBatteryChart renders battery voltage over the last ?minutes= (default
// 30) as an HTML line chart.
func (s *Server) showBatteryChart(w http.ResponseWriter, r *http.Request) {
	window := defaultChartWindow
	if m := r.URL.Query().Get("minutes"); m != "" {
		v, err := strconv.Atoi(m)
		if err != nil || v <= 0 || v > 24*60 {
			httputil.BadRequest(w, "minutes must be between 1 and 1440")
			return
		}
		window = time.Duration(v) * time.Minute
	}

	samples, err := s.store.RecentAnalog(r.Context(), time.Now().Add(-window), maxChartPoints)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read battery history: %v", err))
		return
	}
	if len(samples) == 0 {
		httputil.NotFound(w, "no battery samples in window")
		return
	}

	x := make([]string, 0, len(samples))
	y := make([]opts.LineData, 0, len(samples))
	low, high := samples[0].Reading.BatteryVoltage, samples[0].Reading.BatteryVoltage
	for _, sm := range samples {
		v := sm.Reading.BatteryVoltage
		x = append(x, sm.RecordedAt.Format("15:04:05"))
		y = append(y, opts.LineData{Value: v})
		low = min(low, v)
		high = max(high, v)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Rover battery", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Battery voltage", Subtitle: fmt.Sprintf("last %v, %.2f-%.2fV", window, low, high)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "V", Scale: opts.Bool(true)}),
	)
	line.SetXAxis(x).AddSeries("battery", y, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
