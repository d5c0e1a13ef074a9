package transport

import (
	"errors"
	"fmt"
	"sort"
)

// Device is an open report channel to a probe. Write sends one command
// report, Read receives one response report. Reports never straddle calls.
type Device interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Identity selects a probe among the connected devices.
type Identity struct {
	VendorID  uint16
	ProductID uint16
	Serial    string // optional serial number, empty matches any
	Interface int    // USB interface number carrying the trace channel
}

// Info describes one candidate device found during enumeration.
type Info struct {
	Path      string // backend-specific location of the device
	VendorID  uint16
	ProductID uint16
	Serial    string
	Interface int
}

// ErrNoDevice is returned when no connected device matches an Identity.
var ErrNoDevice = errors.New("can't find matching device")

// OpenFunc opens the device matching id over one transport backend.
type OpenFunc func(id Identity) (Device, error)

// ListFunc enumerates the devices matching id without opening them.
type ListFunc func(id Identity) ([]Info, error)

type backend struct {
	open OpenFunc
	list ListFunc
}

var backends = map[string]backend{}

// Register makes a transport backend available under the given name.
// Backends call this from an init function. list may be nil if the
// backend cannot enumerate without opening.
func Register(name string, open OpenFunc, list ListFunc) {
	backends[name] = backend{open: open, list: list}
}

// Open opens the probe matching id using the named backend.
func Open(name string, id Identity) (Device, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown transport %q (have %v)", name, Names())
	}
	return b.open(id)
}

// List enumerates devices matching id using the named backend.
func List(name string, id Identity) ([]Info, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown transport %q (have %v)", name, Names())
	}
	if b.list == nil {
		return nil, fmt.Errorf("transport %q cannot enumerate devices", name)
	}
	return b.list(id)
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
