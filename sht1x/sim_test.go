// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht1x

import (
	"sync"

	"github.com/weathermat/weathermat/common"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type simState int

const (
	simIdle simState = iota
	simCommand
	simCommandAck
	simTransmit
	simWriteStatus
	simWriteStatusAck
)

// sensorSim models the sensor side of the two-wire bus. DATA is wired-AND:
// the line is low when either side pulls it low.
type sensorSim struct {
	mu sync.Mutex

	// Host side.
	clk      gpio.Level
	hostLow  bool
	devLow   bool
	armed    bool
	commands []byte

	state  simState
	bits   int
	value  byte
	tx     []byte
	txByte int
	txBit  int
	acked  bool

	// Sensor contents.
	rawT    uint16
	rawRH   uint16
	status  byte
	silent  bool // never acknowledges
	stuck   bool // never finishes a conversion
	corrupt bool // sends a bad CRC
}

func (s *sensorSim) line() gpio.Level {
	return gpio.Level(!s.hostLow && !s.devLow)
}

// hostData is called when the host drives (low) or releases DATA.
func (s *sensorSim) hostData(low bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.line()
	s.hostLow = low
	after := s.line()
	if s.clk != gpio.High || before == after {
		return
	}
	if after == gpio.Low {
		s.armed = true
		return
	}
	if s.armed {
		// Transmission start.
		s.armed = false
		s.state = simCommand
		s.bits = 0
		s.value = 0
		s.devLow = false
	}
}

func (s *sensorSim) hostClock(l gpio.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == s.clk {
		return
	}
	s.clk = l
	if l == gpio.High {
		s.rise()
	} else {
		s.fall()
	}
}

func (s *sensorSim) rise() {
	switch s.state {
	case simCommand, simWriteStatus:
		if s.bits < 8 {
			s.value <<= 1
			if s.line() == gpio.High {
				s.value |= 1
			}
			s.bits++
		}
	case simTransmit:
		if s.txBit == 8 {
			s.acked = s.line() == gpio.Low
		}
	}
}

func (s *sensorSim) fall() {
	switch s.state {
	case simCommand:
		if s.bits == 8 {
			s.commands = append(s.commands, s.value)
			if !s.silent {
				s.devLow = true
			}
			s.state = simCommandAck
		}
	case simCommandAck:
		s.devLow = false
		s.execute(s.value)
	case simWriteStatus:
		if s.bits == 8 {
			s.devLow = true
			s.state = simWriteStatusAck
		}
	case simWriteStatusAck:
		s.devLow = false
		s.status = s.value
		s.state = simIdle
	case simTransmit:
		switch {
		case s.txBit < 7:
			s.txBit++
			s.drive()
		case s.txBit == 7:
			s.txBit = 8
			s.devLow = false
		default:
			s.txByte++
			if !s.acked || s.txByte == len(s.tx) {
				s.state = simIdle
				s.devLow = false
				return
			}
			s.txBit = 0
			s.drive()
		}
	}
}

func (s *sensorSim) drive() {
	s.devLow = s.tx[s.txByte]&(0x80>>s.txBit) == 0
}

func (s *sensorSim) execute(cmd byte) {
	s.state = simIdle
	switch cmd {
	case cmdMeasureTemperature:
		s.transmit(cmd, s.rawT)
	case cmdMeasureHumidity:
		s.transmit(cmd, s.rawRH)
	case cmdReadStatus:
		s.send(cmd, []byte{s.status})
	case cmdWriteStatus:
		s.state = simWriteStatus
		s.bits = 0
		s.value = 0
	case cmdSoftReset:
		s.status = 0
	}
}

func (s *sensorSim) transmit(cmd byte, raw uint16) {
	if s.stuck {
		return
	}
	s.send(cmd, []byte{byte(raw >> 8), byte(raw)})
}

func (s *sensorSim) send(cmd byte, payload []byte) {
	seed := common.Reverse8(s.status & 0x0f)
	crc := common.Reverse8(common.CRC8(seed, append([]byte{cmd}, payload...)))
	if s.corrupt {
		crc ^= 0x01
	}
	s.tx = append(payload, crc)
	s.txByte = 0
	s.txBit = 0
	s.state = simTransmit
	s.drive()
}

// dataPin is the host's DATA pin connected to the simulator.
type dataPin struct {
	*gpiotest.Pin
	sim *sensorSim
}

func (p *dataPin) Out(l gpio.Level) error {
	p.sim.hostData(l == gpio.Low)
	return nil
}

func (p *dataPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.sim.hostData(false)
	return nil
}

func (p *dataPin) Read() gpio.Level {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return p.sim.line()
}

// clockPin is the host's SCK pin connected to the simulator.
type clockPin struct {
	*gpiotest.Pin
	sim *sensorSim
}

func (p *clockPin) Out(l gpio.Level) error {
	p.sim.hostClock(l)
	return nil
}

func newSim() (*sensorSim, *dataPin, *clockPin) {
	s := &sensorSim{}
	return s,
		&dataPin{Pin: &gpiotest.Pin{N: "GPIO23", Num: 23}, sim: s},
		&clockPin{Pin: &gpiotest.Pin{N: "GPIO24", Num: 24}, sim: s}
}
