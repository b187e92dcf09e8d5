// internal/transport/usb/usb.go
package usb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/gousb"

	"github.com/tamzrod/vds-bridge/internal/transport"
)

// Default USB identity of the VDS1022.
const (
	VendorID  = 0x5345
	ProductID = 0x1234
)

// Config selects the device to open.
type Config struct {
	VendorID  uint16
	ProductID uint16
}

// Device is a claimed VDS1022 bulk endpoint pair.
// It implements transport.Transport.
type Device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
}

var _ transport.Transport = (*Device)(nil)

// Open opens the first matching device, claims its default interface,
// and selects the first bulk OUT and bulk IN endpoints.
func Open(cfg Config) (*Device, error) {
	if cfg.VendorID == 0 {
		cfg.VendorID = VendorID
	}
	if cfg.ProductID == 0 {
		cfg.ProductID = ProductID
	}

	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(cfg.VendorID), gousb.ID(cfg.ProductID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: open %04x:%04x: %w", cfg.VendorID, cfg.ProductID, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: device %04x:%04x not found", cfg.VendorID, cfg.ProductID)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: auto detach: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: claim interface: %w", err)
	}

	outNum, inNum := bulkEndpoints(intf.Setting.Endpoints)
	if outNum < 0 || inNum < 0 {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: bulk endpoints not found (out=%d in=%d)", outNum, inNum)
	}

	out, err := intf.OutEndpoint(outNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: out endpoint %d: %w", outNum, err)
	}
	in, err := intf.InEndpoint(inNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: in endpoint %d: %w", inNum, err)
	}

	return &Device{ctx: ctx, dev: dev, done: done, out: out, in: in}, nil
}

// bulkEndpoints returns the numbers of the lowest-addressed bulk OUT and
// bulk IN endpoints, or -1 when one is missing.
func bulkEndpoints(eps map[gousb.EndpointAddress]gousb.EndpointDesc) (outNum, inNum int) {
	addrs := make([]gousb.EndpointAddress, 0, len(eps))
	for a := range eps {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	outNum, inNum = -1, -1
	for _, a := range addrs {
		ep := eps[a]
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && outNum < 0:
			outNum = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && inNum < 0:
			inNum = ep.Number
		}
	}
	return outNum, inNum
}

// Write sends p on the bulk OUT endpoint.
func (d *Device) Write(p []byte, timeout time.Duration) (int, error) {
	ctx, cancel := deadline(timeout)
	defer cancel()

	n, err := d.out.WriteContext(ctx, p)
	if err != nil {
		return n, mapErr(ctx, "write", err)
	}
	return n, nil
}

// Read performs one bulk IN transfer into p.
func (d *Device) Read(p []byte, timeout time.Duration) (int, error) {
	ctx, cancel := deadline(timeout)
	defer cancel()

	n, err := d.in.ReadContext(ctx, p)
	if err != nil {
		return n, mapErr(ctx, "read", err)
	}
	return n, nil
}

// Close releases the interface, the device, and the libusb context.
func (d *Device) Close() error {
	if d.done != nil {
		d.done()
		d.done = nil
	}
	var errs []error
	if d.dev != nil {
		errs = append(errs, d.dev.Close())
		d.dev = nil
	}
	if d.ctx != nil {
		errs = append(errs, d.ctx.Close())
		d.ctx = nil
	}
	return errors.Join(errs...)
}

func deadline(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// mapErr folds libusb timeouts and deadline cancellation into transport.ErrTimeout.
func mapErr(ctx context.Context, op string, err error) error {
	timedOut := errors.Is(err, gousb.ErrorTimeout) ||
		errors.Is(err, gousb.TransferTimedOut) ||
		(errors.Is(err, gousb.TransferCancelled) && errors.Is(ctx.Err(), context.DeadlineExceeded))
	if timedOut {
		return fmt.Errorf("usb: %s: %w", op, transport.ErrTimeout)
	}
	return fmt.Errorf("usb: %s: %w", op, err)
}
