package serialmux

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const testGGA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

// localHostRequest creates an httptest request that appears to come from localhost.
// This bypasses tsweb.AllowDebugAccess which checks for loopback IPs.
func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}
	return ""
}

func TestSerialMux_MonitorFansOutLines(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	port.AddLine(testGGA)

	if got := recvLine(t, a); got != testGGA {
		t.Errorf("subscriber a got %q, want %q", got, testGGA)
	}
	if got := recvLine(t, b); got != testGGA {
		t.Errorf("subscriber b got %q, want %q", got, testGGA)
	}

	cancel()
	port.Close()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestSerialMux_Unsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	// unknown id is a no-op
	mux.Unsubscribe("missing")
}

func TestSerialMux_CloseClosesSubscribers(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	if !port.Closed {
		t.Error("port should be closed")
	}
}

func TestSerialMux_SendCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"adds CRLF", "$PMTK220,1000*1F", "$PMTK220,1000*1F\r\n"},
		{"keeps CRLF", "$PMTK220,1000*1F\r\n", "$PMTK220,1000*1F\r\n"},
		{"replaces bare LF", "$PMTK220,1000*1F\n", "$PMTK220,1000*1F\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := NewTestableSerialPort()
			mux := NewSerialMux(port)
			if err := mux.SendCommand(tt.command); err != nil {
				t.Fatalf("SendCommand() error: %v", err)
			}
			if got := port.GetWrittenData(); got != tt.want {
				t.Errorf("written = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerialMux_SendCommandErrors(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	port.WriteError = io.ErrClosedPipe
	if err := mux.SendCommand("X"); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("SendCommand() error = %v, want ErrClosedPipe", err)
	}

	port.ShortWrite = true
	if err := mux.SendCommand("X"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("SendCommand() error = %v, want ErrWriteFailed", err)
	}
}

func TestSerialMux_Initialize(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	if err := mux.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	written := port.GetWrittenData()
	for _, cmd := range InitCommands {
		if !strings.Contains(written, cmd+"\r\n") {
			t.Errorf("init command %q not written; got %q", cmd, written)
		}
	}
}

func TestReplayPort_ReplaysLines(t *testing.T) {
	lines := []string{testGGA, "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48"}
	mux := NewMockSerialMux(lines, time.Millisecond)
	defer mux.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, ch := mux.Subscribe()
	go mux.Monitor(ctx)

	for i := 0; i < 3; i++ {
		got := recvLine(t, ch)
		if want := lines[i%2]; got != want {
			t.Errorf("line %d = %q, want %q", i, got, want)
		}
	}
}

func TestAttachAdminRoutes_GPSCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name           string
		method         string
		form           url.Values
		expectedStatus int
	}{
		{"valid POST", http.MethodPost, url.Values{"command": {"$PMTK220,1000*1F"}}, http.StatusOK},
		{"empty command", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"GET not allowed", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.form != nil {
				body = strings.NewReader(tt.form.Encode())
			}
			req := localHostRequest(tt.method, "/debug/gps-command", body)
			if tt.form != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			w := httptest.NewRecorder()
			httpMux.ServeHTTP(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d; body %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}

	if !strings.Contains(port.GetWrittenData(), "$PMTK220,1000*1F") {
		t.Error("command was not written to the port")
	}
}
