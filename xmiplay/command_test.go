package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandValid(t *testing.T) {
	cases := []struct {
		cmd  xmiCommand
		want bool
	}{
		{xmiCommand{typ: cmdNoteOn, channel: 0, data1: 60, data2: 100}, true},
		{xmiCommand{typ: cmdNoteOn, channel: 16, data1: 60, data2: 100}, false},
		{xmiCommand{typ: cmdNoteOn, channel: 0, data1: 128, data2: 100}, false},
		{xmiCommand{typ: cmdNoteOff, channel: 15, data1: 127}, true},
		{xmiCommand{typ: cmdProgramChange, channel: 0, data1: 127}, true},
		{xmiCommand{typ: cmdProgramChange, channel: 0, data1: 128}, false},
		{xmiCommand{typ: cmdPitchBend, channel: 0, bend: 16383}, true},
		{xmiCommand{typ: cmdPitchBend, channel: 0, bend: 16384}, false},
		{xmiCommand{typ: cmdChannelAftertouch, channel: 9, data1: 64}, true},
		{xmiCommand{typ: commandType(99), channel: 0}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.cmd.valid(), "%+v", c.cmd)
	}
}

func TestCommandQueueDropsWhenFull(t *testing.T) {
	var warns []string
	q := newCommandQueue(2, func(s string) { warns = append(warns, s) })
	assert.True(t, q.push(xmiCommand{typ: cmdNoteOn}))
	assert.True(t, q.push(xmiCommand{typ: cmdNoteOn}))
	assert.False(t, q.push(xmiCommand{typ: cmdNoteOn}))
	assert.Len(t, warns, 1)
	assert.Len(t, drainCommands(q), 2)
}
