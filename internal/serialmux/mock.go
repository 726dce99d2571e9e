package serialmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ReplayPort is a SerialPorter that replays a fixture of NMEA lines in a loop,
// one line every interval, and discards writes. It stands in for the GPS
// receiver when developing without hardware.
type ReplayPort struct {
	*io.PipeReader
	w      *io.PipeWriter
	cancel context.CancelFunc

	mu      sync.Mutex
	written bytes.Buffer
}

// NewReplayPort starts replaying lines. Each line is terminated with CRLF.
func NewReplayPort(lines []string, interval time.Duration) *ReplayPort {
	r, w := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	p := &ReplayPort{PipeReader: r, w: w, cancel: cancel}

	go func() {
		defer w.Close()
		if len(lines) == 0 {
			<-ctx.Done()
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(lines) {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if _, err := io.WriteString(w, lines[i]+"\r\n"); err != nil {
				return
			}
		}
	}()
	return p
}

// Write records the command so tests and the admin page can inspect it.
func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

// Written returns everything written to the port so far.
func (p *ReplayPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Close stops the replay and unblocks readers.
func (p *ReplayPort) Close() error {
	p.cancel()
	return p.PipeReader.Close()
}

// NewMockSerialMux creates a SerialMux instance replaying the given fixture lines.
func NewMockSerialMux(lines []string, interval time.Duration) *SerialMux[*ReplayPort] {
	return NewSerialMux(NewReplayPort(lines, interval))
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
// Reads block until data is added or the port is closed.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than requested
	ShortWrite bool

	// Closed indicates whether Close was called
	Closed bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read blocks until data is available and then reads from the read buffer.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.Closed && t.ReadBuffer.Len() == 0 {
		t.readCond.Wait()
	}
	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	n, err = t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

// Close marks the port as closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()
	return nil
}

// AddLine queues one CRLF-terminated line for subsequent Read calls.
func (t *TestableSerialPort) AddLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.WriteString(line + "\r\n")
	t.readCond.Signal()
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.String()
}
