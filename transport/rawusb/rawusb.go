package rawusb

import (
	"fmt"
	"log/slog"

	"swocat/transport"

	"github.com/google/gousb"
)

func init() {
	transport.Register("usb", open, list)
}

func open(id transport.Identity) (transport.Device, error) {
	ctx := gousb.NewContext()

	// Compare as uint16 since DeviceDesc.Vendor/Product have their own types
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == id.VendorID && uint16(desc.Product) == id.ProductID
	})
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("%w (VID=0x%04X PID=0x%04X)", transport.ErrNoDevice, id.VendorID, id.ProductID)
	}

	dev, err := pickDevice(devs, id.Serial)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	slog.Info("found matching device", "bus", dev.Desc.Bus, "address", dev.Desc.Address)

	// The kernel HID driver owns the interface until it is detached.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to enable kernel driver detach: %w", err)
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to get config 1: %w", err)
	}

	intf, err := cfg.Interface(id.Interface, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to claim interface %d: %w", id.Interface, err)
	}

	done := func() {
		intf.Close()
		cfg.Close()
	}

	inNum, outNum, err := findEndpoints(intf.Setting)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, err
	}

	in, err := intf.InEndpoint(inNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to open in endpoint %d: %w", inNum, err)
	}
	out, err := intf.OutEndpoint(outNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to open out endpoint %d: %w", outNum, err)
	}

	return &device{ctx: ctx, dev: dev, done: done, in: in, out: out}, nil
}

// pickDevice selects one of the matched devices by serial number and
// closes the rest.
func pickDevice(devs []*gousb.Device, serial string) (*gousb.Device, error) {
	var picked *gousb.Device
	for _, d := range devs {
		if picked != nil {
			d.Close()
			continue
		}
		if serial != "" {
			sn, err := d.SerialNumber()
			if err != nil || sn != serial {
				d.Close()
				continue
			}
		}
		picked = d
	}
	if picked == nil {
		return nil, fmt.Errorf("%w (serial %q)", transport.ErrNoDevice, serial)
	}
	return picked, nil
}

// findEndpoints returns the interrupt in/out endpoint numbers of the
// claimed interface setting. The report channel uses one of each.
func findEndpoints(setting gousb.InterfaceSetting) (in, out int, err error) {
	in, out = -1, -1
	for _, ep := range setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeInterrupt {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			if in < 0 {
				in = ep.Number
			}
		case gousb.EndpointDirectionOut:
			if out < 0 {
				out = ep.Number
			}
		}
	}
	if in < 0 || out < 0 {
		return 0, 0, fmt.Errorf("interface %d has no interrupt in/out endpoint pair", setting.Number)
	}
	return in, out, nil
}

func list(id transport.Identity) ([]transport.Info, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var infos []transport.Info
	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) != id.VendorID || uint16(desc.Product) != id.ProductID {
			return false
		}
		info := transport.Info{
			Path:      fmt.Sprintf("%d:%d", desc.Bus, desc.Address),
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
			Interface: -1,
		}
		// Note whether config 1 carries the trace interface. Serial numbers
		// would require opening the device, so they stay blank here.
		if cfg, ok := desc.Configs[1]; ok {
			for _, intf := range cfg.Interfaces {
				if intf.Number == id.Interface {
					info.Interface = id.Interface
					break
				}
			}
		}
		infos = append(infos, info)
		return false // inspect only, never open
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	return infos, nil
}

// device carries the open handles. Close unwinds them in reverse order.
type device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

func (d *device) Write(p []byte) (int, error) {
	return d.out.Write(p)
}

func (d *device) Read(p []byte) (int, error) {
	return d.in.Read(p)
}

func (d *device) Close() error {
	if d.done != nil {
		d.done()
	}
	if d.dev != nil {
		d.dev.Close()
	}
	if d.ctx != nil {
		return d.ctx.Close()
	}
	return nil
}
