package hwbus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
)

// FakeBus is an in-memory i2c.Bus with a per-device register file. It records
// every transaction and counts overlapping ones so tests can check that all
// access went through the Bus lock.
type FakeBus struct {
	mu       sync.Mutex
	regs     map[uint16][]byte
	writes   []FakeWrite
	errs     map[uint16]error
	latency  time.Duration
	inFlight atomic.Int32
	overlaps atomic.Int32
	txCount  atomic.Int64
}

// FakeWrite is one recorded write transaction.
type FakeWrite struct {
	Addr uint16
	Data []byte
}

// NewFakeBus returns an empty fake bus.
func NewFakeBus() *FakeBus {
	return &FakeBus{regs: make(map[uint16][]byte), errs: make(map[uint16]error)}
}

// SetLatency makes every transaction take d, widening any race window.
func (f *FakeBus) SetLatency(d time.Duration) {
	f.mu.Lock()
	f.latency = d
	f.mu.Unlock()
}

// SetRegisters loads data into the register file of addr starting at reg.
func (f *FakeBus) SetRegisters(addr uint16, reg byte, data ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file := f.file(addr)
	copy(file[reg:], data)
}

// Register returns the current value of one register.
func (f *FakeBus) Register(addr uint16, reg byte) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file(addr)[reg]
}

// FailDevice makes every transaction with addr return err. nil clears it.
func (f *FakeBus) FailDevice(addr uint16, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, addr)
		return
	}
	f.errs[addr] = err
}

// Writes returns a copy of the recorded write transactions.
func (f *FakeBus) Writes() []FakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeWrite(nil), f.writes...)
}

// Overlaps reports how many transactions started while another was running.
func (f *FakeBus) Overlaps() int { return int(f.overlaps.Load()) }

// Transactions reports the total number of transactions.
func (f *FakeBus) Transactions() int64 { return f.txCount.Load() }

func (f *FakeBus) file(addr uint16) []byte {
	file, ok := f.regs[addr]
	if !ok {
		file = make([]byte, 256)
		f.regs[addr] = file
	}
	return file
}

func (f *FakeBus) String() string { return "fake-i2c" }

// Tx implements i2c.Bus. The first written byte selects the register;
// remaining written bytes are stored with auto-increment, and reads are
// served from the selected register onwards.
func (f *FakeBus) Tx(addr uint16, w, r []byte) error {
	if f.inFlight.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.inFlight.Add(-1)
	f.txCount.Add(1)

	f.mu.Lock()
	latency := f.latency
	err := f.errs[addr]
	f.mu.Unlock()
	if latency > 0 {
		time.Sleep(latency)
	}
	if err != nil {
		return err
	}
	if len(w) == 0 {
		return fmt.Errorf("fake-i2c: empty write to 0x%02x", addr)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	file := f.file(addr)
	reg := int(w[0])
	if len(w) > 1 {
		copy(file[reg:], w[1:])
		f.writes = append(f.writes, FakeWrite{Addr: addr, Data: append([]byte(nil), w...)})
	}
	if len(r) > 0 {
		copy(r, file[reg:])
	}
	return nil
}

// SetSpeed implements i2c.Bus.
func (f *FakeBus) SetSpeed(physic.Frequency) error { return nil }
