package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeTwoNotes(t *testing.T) {
	events := []byte{
		0x00, 0x90, 0x3c, 0x40, 0x60,
		0x00, 0x91, 0x40, 0x50, 0x30,
	}
	info, err := probeBytes(makeXMI(events))
	assert.NoError(t, err)
	assert.True(t, info.found)
	assert.Equal(t, 2, info.eventCount)
	assert.Equal(t, 120.0, info.bpm)
	assert.Equal(t, uint8(4), info.tsNum)
	assert.Equal(t, uint8(4), info.tsDen)
	// both deltas are zero; note durations do not count toward duration
	assert.InDelta(t, 0.0, info.duration, 1e-12)
}

func TestProbeReportsTempoAndDuration(t *testing.T) {
	events := []byte{
		0x00, 0xff, 0x51, 0x03, 0x0f, 0x42, 0x40,
		0x1e, 0x90, 0x3c, 0x40, 0x00,
	}
	info, err := probeBytes(makeXMI(events))
	assert.NoError(t, err)
	assert.InDelta(t, 60.0, info.bpm, 1e-9)
	assert.Equal(t, 2, info.eventCount)
	// the 30-tick delta is scaled by the post-tempo seconds-per-tick
	assert.InDelta(t, 30.0/139, info.duration, 1e-9)
}

func TestProbeTruncatedStream(t *testing.T) {
	info, err := probeBytes(makeXMI([]byte{0x00, 0x90, 0x3c}))
	assert.Equal(t, errTruncatedEvent, err)
	assert.True(t, info.found)
	assert.Equal(t, 0, info.eventCount)
}

func TestProbeNoEvnt(t *testing.T) {
	data := makeForm("XMID", makeChunk("INFO", []byte{1, 2}))
	info, err := probeBytes(data)
	assert.Equal(t, errNoEvnt, err)
	assert.False(t, info.found)
}
