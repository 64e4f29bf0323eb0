// Copyright (c) 2012-2017 Joseph D Poirier
// Distributable under the terms of The New BSD License
// that can be found in the LICENSE file.

//go:build cgo

// Package rtlsdr adapts an RTL-SDR USB dongle, via gortlsdr, into an
// iqsource.Source. It is the hardware IQ provider; a !cgo build
// substitutes a stub so the rest of the module still builds on
// platforms without librtlsdr.
package rtlsdr

import (
	"context"
	"errors"
	"fmt"

	gortlsdr "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/dsp"
)

// bufferChunkSize is the native librtlsdr async-read chunk size.
const bufferChunkSize = 16384

// batchSize is the number of raw bytes read per Next() call, well
// under the 65536-sample batch ceiling the IQ source contract
// allows (2 raw bytes per 8-bit I/Q sample).
const batchSize = 4 * bufferChunkSize

// Device wraps an opened RTL-SDR dongle as an iqsource.Source.
type Device struct {
	dev    *gortlsdr.Context
	logger *logrus.Logger
	index  int

	data   chan []byte
	errs   chan error
	cancel context.CancelFunc
}

// ListDevices returns the name of every RTL-SDR dongle visible to
// librtlsdr, indexed by position.
func ListDevices() []string {
	count := gortlsdr.GetDeviceCount()
	names := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = gortlsdr.GetDeviceName(i)
	}
	return names
}

// Open opens and configures device index for capture at the given
// center frequency (Hz), sample rate (Hz), and manual gain in dB
// (0 selects auto gain).
func Open(index int, frequency, sampleRate uint32, gain int, logger *logrus.Logger) (*Device, error) {
	count := gortlsdr.GetDeviceCount()
	if count == 0 {
		return nil, errors.New("no RTL-SDR devices found")
	}
	if index >= count {
		return nil, fmt.Errorf("device index %d out of range (0-%d)", index, count-1)
	}

	dev, err := gortlsdr.Open(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}

	if err := dev.SetCenterFreq(int(frequency)); err != nil {
		return nil, fmt.Errorf("failed to set frequency: %w", err)
	}
	if err := dev.SetSampleRate(int(sampleRate)); err != nil {
		return nil, fmt.Errorf("failed to set sample rate: %w", err)
	}

	if gain == 0 {
		if err := dev.SetTunerGainMode(false); err != nil {
			return nil, fmt.Errorf("failed to set auto gain: %w", err)
		}
	} else {
		if err := dev.SetTunerGainMode(true); err != nil {
			return nil, fmt.Errorf("failed to set manual gain mode: %w", err)
		}
		if err := dev.SetTunerGain(gain * 10); err != nil {
			return nil, fmt.Errorf("failed to set gain: %w", err)
		}
	}

	if err := dev.ResetBuffer(); err != nil {
		return nil, fmt.Errorf("failed to reset buffer: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"device_index": index,
		"frequency":    frequency,
		"sample_rate":  sampleRate,
		"gain":         gain,
	}).Info("RTL-SDR device configured")

	d := &Device{dev: dev, logger: logger, index: index, data: make(chan []byte, 32), errs: make(chan error, 1)}
	d.start()
	return d, nil
}

// start launches the async read loop that feeds d.data.
func (d *Device) start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go func() {
		cb := func(buf []byte) {
			cp := make([]byte, len(buf))
			copy(cp, buf)
			select {
			case d.data <- cp:
			case <-ctx.Done():
			}
		}
		if err := d.dev.ReadAsync(cb, nil, 0, batchSize); err != nil {
			select {
			case d.errs <- fmt.Errorf("rtlsdr read async: %w", err):
			default:
			}
		}
	}()
}

// Next implements iqsource.Source: converts one 8-bit-unsigned raw
// chunk into int16-centred dsp.Samples (the contract's sample type),
// scaling the dongle's native 8-bit range to the full int16 range so
// it carries the same dynamic-range meaning as a playback file.
func (d *Device) Next(ctx context.Context) ([]dsp.Sample, error) {
	select {
	case buf, ok := <-d.data:
		if !ok {
			return nil, errors.New("rtlsdr: device closed")
		}
		return rawToSamples(buf), nil
	case err := <-d.errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// rawToSamples converts interleaved 8-bit unsigned I/Q pairs (the
// dongle's native wire format) to centred int16 samples.
func rawToSamples(buf []byte) []dsp.Sample {
	n := len(buf) / 2
	out := make([]dsp.Sample, n)
	for i := 0; i < n; i++ {
		out[i] = dsp.Sample{
			I: (int16(buf[2*i]) - 128) * 256,
			Q: (int16(buf[2*i+1]) - 128) * 256,
		}
	}
	return out
}

// Close releases the device and stops the read loop.
func (d *Device) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.dev != nil {
		return d.dev.Close()
	}
	return nil
}
