// Package basestation writes aircraft snapshots in the BaseStation
// (SBS-1) CSV format, the diagnostic sink dump1090-family tools use
// to feed Virtual Radar Server and similar consumers.
package basestation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jaxsonpd/air1090/internal/aircraft"
	"github.com/jaxsonpd/air1090/internal/logging"
)

// BaseStation message types.
const (
	SEL = "SEL"
	ID  = "ID"
	AIR = "AIR"
	STA = "STA"
	CLK = "CLK"
	MSG = "MSG"
)

// BaseStation transmission types relevant to the fields we emit.
const (
	TransmissionESIDCat    = 1 // Extended Squitter Aircraft ID and Category
	TransmissionESAirborne = 3 // Extended Squitter Airborne Position
)

// Message is one BaseStation format row.
type Message struct {
	MessageType      string
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	DateGenerated    time.Time
	TimeGenerated    time.Time
	DateLogged       time.Time
	TimeLogged       time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// Writer implements iqsource.SnapshotConsumer, logging each rendered
// aircraft as up to two BaseStation CSV lines (an ID row when a
// callsign is known, an airborne-position row when altitude or
// position is known) through a rotating LogRotator file.
type Writer struct {
	logRotator *logging.LogRotator
	logger     *logrus.Logger
	sessionID  int
	aircraftID int
}

// NewWriter returns a Writer appending to logRotator's current file.
func NewWriter(logRotator *logging.LogRotator, logger *logrus.Logger) *Writer {
	return &Writer{logRotator: logRotator, logger: logger, sessionID: 1, aircraftID: 1}
}

// Render writes the BaseStation rows convertEntry produces for each
// entry in snapshot: zero, one or two per entry.
func (w *Writer) Render(snapshot []aircraft.Entry, at time.Time) error {
	writer, err := w.logRotator.GetWriter()
	if err != nil {
		return fmt.Errorf("getting log writer: %w", err)
	}

	for _, e := range snapshot {
		for _, msg := range w.convertEntry(e, at) {
			if _, err := writer.Write([]byte(w.formatCSV(msg) + "\n")); err != nil {
				return fmt.Errorf("writing BaseStation row: %w", err)
			}
		}
	}
	return nil
}

// convertEntry produces the BaseStation rows an entry should emit
// this tick: an ID row when a callsign is known, an airborne
// position row when a position or altitude has been resolved.
func (w *Writer) convertEntry(e aircraft.Entry, now time.Time) []*Message {
	var out []*Message
	base := Message{
		MessageType:   MSG,
		SessionID:     w.sessionID,
		AircraftID:    w.aircraftID,
		FlightID:      w.aircraftID,
		HexIdent:      fmt.Sprintf("%06X", e.ICAO),
		DateGenerated: now,
		TimeGenerated: now,
		DateLogged:    now,
		TimeLogged:    now,
	}

	if e.Callsign != "" {
		idMsg := base
		idMsg.TransmissionType = TransmissionESIDCat
		idMsg.Callsign = e.Callsign
		out = append(out, &idMsg)
	}

	if e.HasPosition || e.HasAltitude {
		posMsg := base
		posMsg.TransmissionType = TransmissionESAirborne
		if e.HasAltitude {
			posMsg.Altitude = strconv.Itoa(int(e.AltitudeFt))
		}
		if e.HasPosition {
			posMsg.Latitude = fmt.Sprintf("%.6f", e.Latitude)
			posMsg.Longitude = fmt.Sprintf("%.6f", e.Longitude)
		}
		out = append(out, &posMsg)
	}

	return out
}

// formatCSV renders msg as a BaseStation CSV line.
func (w *Writer) formatCSV(msg *Message) string {
	fields := []string{
		msg.MessageType,
		strconv.Itoa(msg.TransmissionType),
		strconv.Itoa(msg.SessionID),
		strconv.Itoa(msg.AircraftID),
		msg.HexIdent,
		strconv.Itoa(msg.FlightID),
		msg.DateGenerated.Format("2006/01/02"),
		msg.TimeGenerated.Format("15:04:05.000"),
		msg.DateLogged.Format("2006/01/02"),
		msg.TimeLogged.Format("15:04:05.000"),
		msg.Callsign,
		msg.Altitude,
		msg.GroundSpeed,
		msg.Track,
		msg.Latitude,
		msg.Longitude,
		msg.VerticalRate,
		msg.Squawk,
		msg.Alert,
		msg.Emergency,
		msg.SPI,
		msg.IsOnGround,
	}

	return strings.Join(fields, ",")
}
