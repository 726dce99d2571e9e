package status

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/banshee-data/rover/internal/monitoring"
)

// ModemManager D-Bus names.
const (
	mmService        = "org.freedesktop.ModemManager1"
	mmSignalQuality  = "org.freedesktop.ModemManager1.Modem.SignalQuality"
	DefaultModemPath = "/org/freedesktop/ModemManager1/Modem/0"
)

// propertyGetter is the slice of dbus.BusObject the provider uses.
type propertyGetter interface {
	GetProperty(p string) (dbus.Variant, error)
}

// ModemManager reads SignalQuality from a ModemManager modem object on the
// system bus.
type ModemManager struct {
	conn *dbus.Conn
	obj  propertyGetter
}

// NewModemManager connects to the system bus. path selects the modem object;
// empty means DefaultModemPath.
func NewModemManager(path string) (*ModemManager, error) {
	if path == "" {
		path = DefaultModemPath
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	monitoring.Logf("[MODEM] using %s", path)
	return &ModemManager{conn: conn, obj: conn.Object(mmService, dbus.ObjectPath(path))}, nil
}

// PollSignalQuality returns the percentage part of the (ub) SignalQuality
// property. The recent flag is ignored.
func (m *ModemManager) PollSignalQuality(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := m.obj.GetProperty(mmSignalQuality)
	if err != nil {
		return 0, fmt.Errorf("get SignalQuality: %w", err)
	}
	return decodeSignalQuality(v)
}

func decodeSignalQuality(v dbus.Variant) (uint32, error) {
	fields, ok := v.Value().([]interface{})
	if !ok || len(fields) != 2 {
		return 0, fmt.Errorf("unexpected SignalQuality %s", v.String())
	}
	pct, ok := fields[0].(uint32)
	if !ok {
		return 0, fmt.Errorf("unexpected SignalQuality percent %T", fields[0])
	}
	return pct, nil
}

func (m *ModemManager) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
