package main

import (
	"fmt"
	"os"
)

const (
	numMidiChannels = 16
	ccAllSoundOff   = 120
	ccAllNotesOff   = 123
)

// real-time XMI sequencer. advance and reset must be called from a
// single goroutine; the command queue is the only cross-goroutine link.
type sequencer struct {
	er                 eventReader
	evntStart, evntEnd int
	tb                 timeBase
	pending            *noteOffBuffer
	queue              *commandQueue
	sampleRate         int
	samplesProcessed   uint64
	songTime           float64
	nextEventTime      float64
	loopPlayback       bool
	rescaleOnTempo     bool
	reachedEnd         bool
	loaded             bool
	warn               func(string)
}

func newSequencer(path string, queue *commandQueue, sampleRate int, loop bool, pendingCap int, warn func(string)) (*sequencer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newSequencerFromBytes(data, queue, sampleRate, loop, pendingCap, warn)
}

// split from newSequencer so tests can feed byte slices directly
func newSequencerFromBytes(data []byte, queue *commandQueue, sampleRate int, loop bool, pendingCap int, warn func(string)) (*sequencer, error) {
	if warn == nil {
		warn = func(s string) { println(s) }
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	start, end, err := findEvnt(data)
	if err != nil {
		return nil, err
	}
	s := &sequencer{
		er:           eventReader{data: data, pos: start, end: end},
		evntStart:    start,
		evntEnd:      end,
		tb:           newTimeBase(),
		pending:      newNoteOffBuffer(pendingCap, warn),
		queue:        queue,
		sampleRate:   sampleRate,
		loopPlayback: loop,
		loaded:       true,
		warn:         warn,
	}
	s.prime()
	return s, nil
}

func (s *sequencer) isLoaded() bool {
	return s.loaded
}

// read the delta preceding the first event
func (s *sequencer) prime() {
	delta := s.er.readDelta()
	s.nextEventTime = float64(delta) * s.tb.secondsPerTick
}

// advance the song clock by a number of samples, releasing due notes
// and emitting every event whose time has been reached. never blocks
// and performs no I/O.
func (s *sequencer) advance(samples int) {
	if !s.loaded || samples < 0 {
		return
	}
	s.samplesProcessed += uint64(samples)
	s.songTime = float64(s.samplesProcessed) / float64(s.sampleRate)

	s.pending.drainDue(s.songTime, func(channel, key uint8) {
		s.queue.push(xmiCommand{typ: cmdNoteOff, channel: channel, data1: key})
	})

	for s.loaded && !s.reachedEnd && s.nextEventTime <= s.songTime {
		eventTime := s.nextEventTime
		prevSPT := s.tb.secondsPerTick
		cmd, dur, emit, err := s.er.readEvent(&s.tb)
		if err != nil {
			s.warn("stopping playback: " + err.Error())
			s.loaded = false
			break
		}
		if s.rescaleOnTempo && s.tb.secondsPerTick != prevSPT {
			s.pending.adjust(s.songTime, s.tb.secondsPerTick/prevSPT)
		}
		if emit {
			s.queue.push(cmd)
			if cmd.typ == cmdNoteOn {
				s.pending.add(eventTime+float64(dur)*s.tb.secondsPerTick, cmd.channel, cmd.data1)
			}
		}
		// the next delta scales by the seconds-per-tick in effect after
		// any meta event applied above
		if s.er.pos < s.evntEnd {
			delta := s.er.readDelta()
			s.nextEventTime += float64(delta) * s.tb.secondsPerTick
		} else {
			s.reachedEnd = true
		}
	}

	if s.reachedEnd && s.pending.count == 0 {
		if s.loopPlayback {
			s.reset()
		} else {
			s.loaded = false
		}
	}
}

// rewind to the start of the event stream, silencing every channel
func (s *sequencer) reset() {
	s.pending.clear()
	for ch := uint8(0); ch < numMidiChannels; ch++ {
		s.queue.push(xmiCommand{typ: cmdControllerChange, channel: ch, data1: ccAllNotesOff})
		s.queue.push(xmiCommand{typ: cmdControllerChange, channel: ch, data1: ccAllSoundOff})
	}
	s.er.pos = s.evntStart
	s.er.lastStatus = 0
	s.tb = newTimeBase()
	s.samplesProcessed = 0
	s.songTime = 0
	s.reachedEnd = false
	s.loaded = true
	s.prime()
}
