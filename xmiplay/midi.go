package main

import (
	"fmt"

	"gitlab.com/gomidi/midi/writer"
)

// dispatches sequencer commands to a midi output. invalid commands are
// dropped with a diagnostic rather than sent.
type midiSink struct {
	wr   writer.ChannelWriter
	warn func(string)
}

func newMidiSink(wr writer.ChannelWriter, warn func(string)) *midiSink {
	if warn == nil {
		warn = func(s string) { println(s) }
	}
	return &midiSink{wr: wr, warn: warn}
}

// drain the queue until it closes, then signal done
func (ms *midiSink) run(q *commandQueue, done chan<- struct{}) {
	for cmd := range q.commands() {
		ms.play(cmd)
	}
	if done != nil {
		close(done)
	}
}

func (ms *midiSink) play(cmd xmiCommand) {
	if !cmd.valid() {
		ms.warn(fmt.Sprintf("dropping command with out-of-range field: %+v", cmd))
		return
	}
	ms.wr.SetChannel(cmd.channel)
	var err error
	switch cmd.typ {
	case cmdNoteOn:
		err = writer.NoteOn(ms.wr, cmd.data1, cmd.data2)
	case cmdNoteOff:
		err = writer.NoteOff(ms.wr, cmd.data1)
	case cmdControllerChange:
		err = writer.ControlChange(ms.wr, cmd.data1, cmd.data2)
	case cmdProgramChange:
		err = writer.ProgramChange(ms.wr, cmd.data1)
	case cmdPolyAftertouch:
		err = writer.PolyAftertouch(ms.wr, cmd.data1, cmd.data2)
	case cmdChannelAftertouch:
		err = writer.Aftertouch(ms.wr, cmd.data1)
	case cmdPitchBend:
		// gomidi takes a relative bend; the wire value is centered at 8192
		err = writer.Pitchbend(ms.wr, int16(int(cmd.bend)-8192))
	}
	if err != nil {
		ms.warn(err.Error())
	}
}

// silence every channel; used on stop and before closing the output
func silenceAllChannels(wr writer.ChannelWriter) {
	for ch := uint8(0); ch < numMidiChannels; ch++ {
		wr.SetChannel(ch)
		writer.ControlChange(wr, ccAllNotesOff, 0)
		writer.ControlChange(wr, ccAllSoundOff, 0)
	}
}
