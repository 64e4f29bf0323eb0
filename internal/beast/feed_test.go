package beast

import (
	"context"
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaxsonpd/air1090/internal/squitter"
)

func TestFeedDecodesFramesFromServer(t *testing.T) {
	frame, err := hex.DecodeString("8d7c6b3020293532d70820fc8090")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(encodeModeSLong(frame))
		time.Sleep(200 * time.Millisecond)
	}()

	feed := NewFeed(ln.Addr().String(), newTestLogger())
	out := make(chan squitter.DecodedFrame, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go feed.Run(ctx, out)

	select {
	case df := <-out:
		require.Equal(t, uint32(0x7C6B30), df.ICAO)
	case <-ctx.Done():
		t.Fatal("timed out waiting for decoded frame from feed")
	}
}
