package main

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// newReceiveLogger returns a quiet logger for the receive subcommand,
// which is driven from the terminal rather than a log file.
func newReceiveLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newReceiveContext bounds a capture run to seconds, or runs
// unbounded when seconds <= 0.
func newReceiveContext(seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
}
