package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// DeviceID is a USB vendor/product pair the engine recognizes.
type DeviceID struct {
	VID gousb.ID
	PID gousb.ID
}

// KnownDevices lists the VID/PID pairs of supported printer models.
// The Argox OS-2140 ships under two product IDs depending on firmware.
var KnownDevices = []DeviceID{
	{VID: 0x1664, PID: 0x013B},
	{VID: 0x1664, PID: 0x015B},
}

// usbTimeout bounds every bulk transfer.
const usbTimeout = time.Second

// USBTransport is a direct bulk-endpoint connection to the printer.
type USBTransport struct {
	ctx       *gousb.Context
	device    *gousb.Device
	iface     *gousb.Interface
	ifaceDone func()
	out       *gousb.OutEndpoint
	in        *gousb.InEndpoint
}

// ConnectUSB enumerates attached devices, opens the first one matching a
// known VID/PID pair, resets it, claims the first interface, and locates
// one bulk-OUT and one bulk-IN endpoint.
func ConnectUSB(known []DeviceID) (*USBTransport, error) {
	ctx := gousb.NewContext()

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, id := range known {
			if desc.Vendor == id.VID && desc.Product == id.PID {
				return true
			}
		}
		return false
	})
	// OpenDevices can return both matches and an error; close everything
	// past the first match either way.
	var dev *gousb.Device
	for _, d := range devices {
		if dev == nil {
			dev = d
		} else {
			d.Close()
		}
	}
	if dev == nil {
		ctx.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		}
		return nil, ErrDeviceNotFound
	}

	// Some firmware revisions refuse the reset but keep working.
	_ = dev.Reset()
	dev.SetAutoDetach(true)

	iface, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, transportErr("usb", "open", fmt.Errorf("claim interface: %w", err))
	}

	var out *gousb.OutEndpoint
	var in *gousb.InEndpoint
	var epErr error
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch epDesc.Direction {
		case gousb.EndpointDirectionOut:
			if out == nil {
				ep, err := iface.OutEndpoint(epDesc.Number)
				if err != nil {
					epErr = fmt.Errorf("bulk-out endpoint %d: %w", epDesc.Number, err)
					continue
				}
				out = ep
			}
		case gousb.EndpointDirectionIn:
			if in == nil {
				ep, err := iface.InEndpoint(epDesc.Number)
				if err != nil {
					epErr = fmt.Errorf("bulk-in endpoint %d: %w", epDesc.Number, err)
					continue
				}
				in = ep
			}
		}
	}

	if out == nil || in == nil {
		done()
		dev.Close()
		ctx.Close()
		// A present-but-unopenable endpoint is an open failure, not a
		// malformed descriptor.
		if epErr != nil {
			return nil, transportErr("usb", "open", epErr)
		}
		return nil, fmt.Errorf("%w on interface %d", ErrEndpointNotFound, iface.Setting.Number)
	}

	return &USBTransport{
		ctx:       ctx,
		device:    dev,
		iface:     iface,
		ifaceDone: done,
		out:       out,
		in:        in,
	}, nil
}

// Write sends data to the bulk-OUT endpoint. A timeout surfaces as a
// TransportError; nothing is retried.
func (t *USBTransport) Write(data []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), usbTimeout)
	defer cancel()

	n, err := t.out.WriteContext(ctx, data)
	return n, transportErr("usb", "write", err)
}

// Read fills buf from the bulk-IN endpoint.
func (t *USBTransport) Read(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), usbTimeout)
	defer cancel()

	n, err := t.in.ReadContext(ctx, buf)
	return n, transportErr("usb", "read", err)
}

func (t *USBTransport) Close() error {
	if t.ifaceDone != nil {
		t.ifaceDone()
	}
	var err error
	if t.device != nil {
		err = t.device.Close()
	}
	if t.ctx != nil {
		if cerr := t.ctx.Close(); err == nil {
			err = cerr
		}
	}
	return transportErr("usb", "close", err)
}

func (t *USBTransport) Describe() string {
	desc := t.device.Desc
	return fmt.Sprintf("usb %04x:%04x", uint16(desc.Vendor), uint16(desc.Product))
}

// ListUSBDevices returns a description of every known-device match
// currently attached, without claiming any of them.
func ListUSBDevices() ([]string, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []string
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, id := range KnownDevices {
			if desc.Vendor == id.VID && desc.Product == id.PID {
				return true
			}
		}
		return false
	})
	if err != nil && len(devices) == 0 {
		return nil, transportErr("usb", "open", err)
	}

	for _, dev := range devices {
		desc := dev.Desc
		entry := fmt.Sprintf("usb %04x:%04x", uint16(desc.Vendor), uint16(desc.Product))
		if product, err := dev.Product(); err == nil && product != "" {
			entry = fmt.Sprintf("%s (%s)", entry, product)
		}
		found = append(found, entry)
		dev.Close()
	}

	return found, nil
}
