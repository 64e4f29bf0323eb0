//go:build !cgo

package rtlsdr

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/dsp"
)

// errNoCgo is returned by every Device operation on a !cgo build:
// librtlsdr is only reachable through gortlsdr's cgo bindings.
var errNoCgo = errors.New("rtlsdr: hardware support requires a cgo build")

// Device is a stub satisfying the same surface as the cgo-backed
// Device so callers can compile without librtlsdr present.
type Device struct{}

// ListDevices always returns no devices on a !cgo build.
func ListDevices() []string { return nil }

// Open always fails on a !cgo build.
func Open(index int, frequency, sampleRate uint32, gain int, logger *logrus.Logger) (*Device, error) {
	return nil, fmt.Errorf("opening device %d: %w", index, errNoCgo)
}

func (d *Device) Next(ctx context.Context) ([]dsp.Sample, error) { return nil, errNoCgo }
func (d *Device) Close() error                                  { return nil }
