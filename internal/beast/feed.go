package beast

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/squitter"
)

// Feed dials a Beast-protocol TCP server (as dump1090's --net-bo-port
// or a SDRplay/readsb feed exposes) and decodes its stream directly
// into DecodedFrames, bypassing the demodulation stages entirely:
// the remote already did preamble detection, Manchester decode, and
// CRC validation.
type Feed struct {
	addr   string
	logger *logrus.Logger
}

// NewFeed returns a Feed dialing addr on Run.
func NewFeed(addr string, logger *logrus.Logger) *Feed {
	return &Feed{addr: addr, logger: logger}
}

// Run dials addr and decodes Beast Mode S Long messages (DF17) into
// frames, forwarding each to out until ctx is cancelled. When a dial
// fails or the connection drops it logs the error, waits two seconds
// and reconnects; it returns only ctx's error.
func (f *Feed) Run(ctx context.Context, out chan<- squitter.DecodedFrame) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.runOnce(ctx, out); err != nil {
			f.logger.WithError(err).Warn("beast feed disconnected, retrying")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *Feed) runOnce(ctx context.Context, out chan<- squitter.DecodedFrame) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", f.addr)
	if err != nil {
		return fmt.Errorf("dialing beast feed %s: %w", f.addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	decoder := NewDecoder(f.logger)
	r := bufio.NewReaderSize(conn, 4096)
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			messages, decErr := decoder.Decode(buf[:n])
			if decErr != nil {
				return decErr
			}
			for _, msg := range messages {
				if msg.MessageType != ModeSLong || !msg.IsValid() {
					continue
				}
				if frame, ok := squitter.Decode(msg.Data, msg.Timestamp); ok {
					select {
					case out <- frame:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
		if err != nil {
			return err
		}
	}
}
