package main

import (
	"errors"
	"math"
)

const (
	statusNoteOff           = 0x80
	statusNoteOn            = 0x90
	statusPolyAftertouch    = 0xa0
	statusController        = 0xb0
	statusProgramChange     = 0xc0
	statusChannelAftertouch = 0xd0
	statusPitchBend         = 0xe0
	statusSysEx             = 0xf0
	statusMeta              = 0xff

	metaSetTempo      = 0x51
	metaTimeSignature = 0x58

	// AIL driver quantization constant; ties the effective tick rate to
	// real time regardless of what the file declares
	quantTime = 8333

	defaultBPM  = 120
	defaultTPQN = 30
)

var (
	errRunningStatus  = errors.New("running status byte with no prior status")
	errUnknownStatus  = errors.New("unknown status byte")
	errTruncatedEvent = errors.New("event data past end of EVNT chunk")
)

// conversion state between file ticks and seconds
type timeBase struct {
	bpm            float64
	tsNum, tsDen   uint8
	tpqn           uint32
	secondsPerTick float64
}

func newTimeBase() timeBase {
	return timeBase{
		bpm:            defaultBPM,
		tsNum:          4,
		tsDen:          4,
		tpqn:           defaultTPQN,
		secondsPerTick: (60.0 / defaultBPM) / defaultTPQN,
	}
}

// recompute tpqn and secondsPerTick after a tempo or time signature change
func (tb *timeBase) recalc() {
	tpqn := math.Round(quantTime / (tb.bpm * float64(tb.tsNum) / float64(tb.tsDen)))
	if tpqn < 1 {
		tpqn = 1
	}
	tb.tpqn = uint32(tpqn)
	tb.secondsPerTick = (60.0 / tb.bpm) / float64(tb.tpqn)
}

func (tb *timeBase) setTempo(usPerQuarter uint32) {
	if usPerQuarter == 0 {
		return
	}
	tb.bpm = 60000000.0 / float64(usPerQuarter)
	tb.recalc()
}

func (tb *timeBase) setTimeSignature(num, denPower uint8) {
	if num == 0 || denPower > 7 {
		return
	}
	tb.tsNum = num
	tb.tsDen = 1 << denPower
	tb.recalc()
}

// stateful cursor over an EVNT chunk's event stream
type eventReader struct {
	data       []byte
	pos, end   int
	lastStatus byte
}

// read an XMI delta time. unlike SMF, a delta is an additive run of
// bytes with the high bit clear: a byte of 127 continues the sum, any
// lower value ends it, and a high-bit byte ends it without being
// consumed (it is the next status byte).
func (er *eventReader) readDelta() uint32 {
	var delta uint32
	for er.pos < er.end {
		b := er.data[er.pos]
		if b&0x80 != 0 {
			break
		}
		er.pos++
		delta += uint32(b)
		if b != 127 {
			break
		}
	}
	return delta
}

// read a standard SMF variable-length quantity; used for meta-event
// lengths and note-on durations
func (er *eventReader) readVLQ() (uint32, error) {
	var v uint32
	for {
		if er.pos >= er.end {
			return 0, errTruncatedEvent
		}
		b := er.data[er.pos]
		er.pos++
		v = v<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

func (er *eventReader) readByte() (byte, error) {
	if er.pos >= er.end {
		return 0, errTruncatedEvent
	}
	b := er.data[er.pos]
	er.pos++
	return b, nil
}

// decode one event at the cursor. tempo and time signature metas mutate
// tb as a side effect. emit reports whether cmd holds a channel command;
// dur is the embedded duration in ticks for note-on commands.
func (er *eventReader) readEvent(tb *timeBase) (cmd xmiCommand, dur uint32, emit bool, err error) {
	status, err := er.readByte()
	if err != nil {
		return cmd, 0, false, err
	}
	if status&0x80 == 0 {
		// running status: reuse the previous status byte
		if er.lastStatus == 0 {
			return cmd, 0, false, errRunningStatus
		}
		er.pos--
		status = er.lastStatus
	} else {
		er.lastStatus = status
	}

	if status == statusMeta {
		return cmd, 0, false, er.readMeta(tb)
	}
	if status == statusSysEx {
		// consumed, never surfaced
		for {
			b, err := er.readByte()
			if err != nil {
				return cmd, 0, false, err
			}
			if b == 0xf7 {
				break
			}
		}
		return cmd, 0, false, nil
	}
	if status&0xf0 == 0xf0 {
		return cmd, 0, false, errUnknownStatus
	}

	channel := status & 0x0f
	switch status & 0xf0 {
	case statusNoteOff:
		key, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		if _, err := er.readByte(); err != nil { // release velocity, unused
			return cmd, 0, false, err
		}
		return xmiCommand{typ: cmdNoteOff, channel: channel, data1: key & 0x7f}, 0, true, nil
	case statusNoteOn:
		key, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		vel, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		dur, err := er.readVLQ()
		if err != nil {
			return cmd, 0, false, err
		}
		if vel == 0 {
			// velocity zero means note off; nothing to schedule
			return xmiCommand{typ: cmdNoteOff, channel: channel, data1: key & 0x7f}, 0, true, nil
		}
		return xmiCommand{typ: cmdNoteOn, channel: channel, data1: key & 0x7f, data2: vel & 0x7f}, dur, true, nil
	case statusPolyAftertouch:
		key, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		val, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		return xmiCommand{typ: cmdPolyAftertouch, channel: channel, data1: key & 0x7f, data2: val & 0x7f}, 0, true, nil
	case statusController:
		ctl, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		val, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		return xmiCommand{typ: cmdControllerChange, channel: channel, data1: ctl & 0x7f, data2: val & 0x7f}, 0, true, nil
	case statusProgramChange:
		prog, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		return xmiCommand{typ: cmdProgramChange, channel: channel, data1: prog & 0x7f}, 0, true, nil
	case statusChannelAftertouch:
		val, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		return xmiCommand{typ: cmdChannelAftertouch, channel: channel, data1: val & 0x7f}, 0, true, nil
	case statusPitchBend:
		lsb, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		msb, err := er.readByte()
		if err != nil {
			return cmd, 0, false, err
		}
		bend := uint16(lsb&0x7f) | uint16(msb&0x7f)<<7
		return xmiCommand{typ: cmdPitchBend, channel: channel, bend: bend}, 0, true, nil
	}
	return cmd, 0, false, errUnknownStatus
}

// consume a meta event, applying tempo and time signature changes
func (er *eventReader) readMeta(tb *timeBase) error {
	metaType, err := er.readByte()
	if err != nil {
		return err
	}
	length, err := er.readVLQ()
	if err != nil {
		return err
	}
	if er.pos+int(length) > er.end {
		return errTruncatedEvent
	}
	payload := er.data[er.pos : er.pos+int(length)]
	er.pos += int(length)
	switch metaType {
	case metaSetTempo:
		if len(payload) >= 3 {
			us := uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2])
			tb.setTempo(us)
		}
	case metaTimeSignature:
		// clocks-per-click and 32nds-per-quarter are read and discarded
		if len(payload) >= 2 {
			tb.setTimeSignature(payload[0], payload[1])
		}
	}
	// XMI has no end-of-track meta; all other types are ignored
	return nil
}
