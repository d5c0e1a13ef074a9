package hidapi

import (
	"errors"
	"fmt"
	"log/slog"

	"swocat/transport"

	"github.com/sstallion/go-hid"
)

func init() {
	transport.Register("hid", open, list)
}

// errFound stops enumeration once a suitable interface has been seen.
var errFound = errors.New("found")

func open(id transport.Identity) (transport.Device, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}

	path, err := findPath(id)
	if err != nil {
		hid.Exit()
		return nil, err
	}
	slog.Info("found matching device", "path", path)

	dev, err := hid.OpenPath(path)
	if err != nil {
		hid.Exit()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &device{dev: dev}, nil
}

// findPath locates the trace interface of the probe identified by id.
// HID enumeration reports each interface of a device separately, so the
// interface number is part of the match. Enumerate's own error is not
// consulted: hidapi reports an empty match list the same way as a failure.
func findPath(id transport.Identity) (string, error) {
	var path string
	hid.Enumerate(id.VendorID, id.ProductID, func(info *hid.DeviceInfo) error {
		if info.InterfaceNbr != id.Interface {
			return nil
		}
		if id.Serial != "" && info.SerialNbr != id.Serial {
			return nil
		}
		path = info.Path
		return errFound // stop enumerate
	})
	if path == "" {
		return "", fmt.Errorf("%w (VID=0x%04X PID=0x%04X interface %d)",
			transport.ErrNoDevice, id.VendorID, id.ProductID, id.Interface)
	}
	return path, nil
}

func list(id transport.Identity) ([]transport.Info, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	defer hid.Exit()

	var infos []transport.Info
	hid.Enumerate(id.VendorID, id.ProductID, func(info *hid.DeviceInfo) error {
		if info.InterfaceNbr != id.Interface {
			return nil
		}
		if id.Serial != "" && info.SerialNbr != id.Serial {
			return nil
		}
		infos = append(infos, transport.Info{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Serial:    info.SerialNbr,
			Interface: info.InterfaceNbr,
		})
		return nil
	})
	return infos, nil
}

// device adapts a hidapi handle. Reads retry when a signal interrupts the
// underlying system call, which hidapi surfaces as a plain error string.
type device struct {
	dev *hid.Device
}

func (d *device) Write(p []byte) (int, error) {
	return d.dev.Write(p)
}

func (d *device) Read(p []byte) (int, error) {
	for {
		n, err := d.dev.Read(p)
		if err == nil || err.Error() != "Interrupted system call" {
			return n, err
		}
	}
}

func (d *device) Close() error {
	err := d.dev.Close()
	if err2 := hid.Exit(); err == nil {
		err = err2
	}
	return err
}
