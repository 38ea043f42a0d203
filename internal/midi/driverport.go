/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// DriverPort is a Port backed by a real MIDI input selected by device name
// from the settings document, opened through gomidi's rtmididrv driver.
// This is the one place in the console that accepts a cgo dependency: a
// real hardware MIDI port has no pure-Go transport in the ecosystem, unlike
// audio decode (internal/deck), which avoids cgo via a subprocess decoder.
type DriverPort struct {
	deviceName string
	in         drivers.In
	stop       func()
	messages   chan []byte
}

// NewDriverPort constructs a port that will open the named MIDI input
// device when Open is called.
func NewDriverPort(deviceName string) *DriverPort {
	return &DriverPort{deviceName: deviceName, messages: make(chan []byte, 64)}
}

func (p *DriverPort) Open() (<-chan []byte, error) {
	in, err := gomidi.FindInPort(p.deviceName)
	if err != nil {
		return nil, fmt.Errorf("find midi in port %q: %w", p.deviceName, err)
	}
	p.in = in

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		raw := append([]byte(nil), msg...)
		select {
		case p.messages <- raw:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("listen to midi in port %q: %w", p.deviceName, err)
	}
	p.stop = stop

	return p.messages, nil
}

func (p *DriverPort) Close() error {
	if p.stop != nil {
		p.stop()
	}
	gomidi.CloseDriver()
	close(p.messages)
	return nil
}
