package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"github.com/rs/zerolog"

	"github.com/nxtd-project/nxtd/internal/util"
)

// USB identification and endpoint layout of the brick.
// Endpoints: firmware d_usb.c.
const (
	VendorID  gousb.ID = 0x0694
	ProductID gousb.ID = 0x0002

	// Bulk OUT 0x01, bulk IN 0x82 on interface 0.
	writeEndpointNum = 1
	readEndpointNum  = 2

	// Every bulk transfer runs against this fixed timeout; exceeding it
	// is a transport failure with no partial-result recovery.
	usbTimeout = 500 * time.Millisecond
)

// ctxRef counts the owners of one shared close-once resource. The
// release that drops the count to zero runs the close func, so owners
// may be closed in any order.
type ctxRef struct {
	mu        sync.Mutex
	count     int
	closeFunc func() error
}

func newCtxRef(closeFunc func() error) *ctxRef {
	return &ctxRef{count: 1, closeFunc: closeFunc}
}

func (r *ctxRef) acquire() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *ctxRef) release() error {
	r.mu.Lock()
	r.count--
	last := r.count == 0
	r.mu.Unlock()
	if last {
		return r.closeFunc()
	}
	return nil
}

// USB is a bulk-transfer transport: one Send is one bulk OUT transfer,
// one Recv is one bulk IN transfer. Message boundaries are transfer
// boundaries, so no length prefix is needed.
type USB struct {
	mu     sync.Mutex
	ctx    *ctxRef
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()
	out    *gousb.OutEndpoint
	in     *gousb.InEndpoint
	closed bool
	logger zerolog.Logger
}

// OpenFirstUSB connects to the first brick on the bus.
func OpenFirstUSB() (*USB, error) {
	ctx := gousb.NewContext()
	ref := newCtxRef(ctx.Close)
	defer ref.release()

	dev, err := ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
	if err != nil {
		return nil, fmt.Errorf("usb open: %w", err)
	}
	if dev == nil {
		return nil, ErrNoDevice
	}
	u, err := claim(ref, dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return u, nil
}

// OpenAllUSB connects to every brick on the bus.
func OpenAllUSB() ([]*USB, error) {
	ctx := gousb.NewContext()
	ref := newCtxRef(ctx.Close)
	defer ref.release()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == VendorID && desc.Product == ProductID
	})
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}
	if len(devs) == 0 {
		return nil, ErrNoDevice
	}

	transports := make([]*USB, 0, len(devs))
	for i, dev := range devs {
		u, err := claim(ref, dev)
		if err != nil {
			for _, t := range transports {
				t.Close()
			}
			for _, d := range devs[i:] {
				d.Close()
			}
			return nil, err
		}
		transports = append(transports, u)
	}
	return transports, nil
}

// claim takes interface 0 and resolves both bulk endpoints. On success
// the returned transport holds its own reference on the context.
func claim(ref *ctxRef, dev *gousb.Device) (*USB, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("usb auto-detach: %w", err)
	}
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("usb claim interface: %w", err)
	}
	out, err := intf.OutEndpoint(writeEndpointNum)
	if err != nil {
		done()
		return nil, fmt.Errorf("usb out endpoint: %w", err)
	}
	in, err := intf.InEndpoint(readEndpointNum)
	if err != nil {
		done()
		return nil, fmt.Errorf("usb in endpoint: %w", err)
	}

	logger := util.ComponentLogger("usb")
	logger.Debug().Str("bus", dev.String()).Msg("brick claimed")

	ref.acquire()
	return &USB{
		ctx:    ref,
		dev:    dev,
		intf:   intf,
		done:   done,
		out:    out,
		in:     in,
		logger: logger,
	}, nil
}

func (u *USB) Send(data []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return 0, ErrClosed
	}

	opCtx, cancel := context.WithTimeout(context.Background(), usbTimeout)
	defer cancel()

	n, err := u.out.WriteContext(opCtx, data)
	if err != nil {
		return n, fmt.Errorf("usb write: %w", err)
	}
	if n != len(data) {
		return n, ErrShortWrite
	}
	return n, nil
}

func (u *USB) Recv(buf []byte) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil, ErrClosed
	}

	opCtx, cancel := context.WithTimeout(context.Background(), usbTimeout)
	defer cancel()

	n, err := u.in.ReadContext(opCtx, buf)
	if err != nil {
		return nil, fmt.Errorf("usb read: %w", err)
	}
	return buf[:n], nil
}

func (u *USB) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true

	u.done()
	err := u.dev.Close()
	if cerr := u.ctx.release(); err == nil {
		err = cerr
	}
	u.logger.Debug().Msg("usb transport closed")
	return err
}
