package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/veandco/go-sdl2/sdl"
	"gitlab.com/gomidi/midi/writer"
	driver "gitlab.com/gomidi/rtmididrv"
)

const appName = "xmiplay"

func must(err error) {
	if err != nil {
		panic(err.Error())
	}
}

func main() {
	info := flag.Bool("info", false, "print file metadata without playing")
	list := flag.Bool("list", false, "list midi output ports")
	loop := flag.Bool("loop", false, "loop playback")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] file.xmi\n", appName)
		flag.PrintDefaults()
	}
	flag.Parse()

	warn := func(s string) { fmt.Fprintln(os.Stderr, appName+": "+s) }
	st := loadSettings(warn)

	if *list {
		listPorts()
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if *info {
		inf, err := probeFile(path)
		must(err)
		fmt.Printf("duration: %.2fs\n", inf.duration)
		fmt.Printf("tempo: %.1f bpm\n", inf.bpm)
		fmt.Printf("time signature: %d/%d\n", inf.tsNum, inf.tsDen)
		fmt.Printf("events: %d\n", inf.eventCount)
		return
	}

	drv, err := driver.New()
	must(err)
	defer drv.Close()

	var wr writer.ChannelWriter
	if n := st.MidiOutPortNumber; n >= 0 {
		outs, err := drv.Outs()
		must(err)
		if n < len(outs) {
			out := outs[n]
			must(out.Open())
			defer out.Close()
			wr = writer.New(out)
		} else {
			warn(fmt.Sprintf("midi output port index %d out of range [0, %d]", n, len(outs)-1))
		}
	}
	if wr == nil {
		wr = writer.New(io.Discard) // dummy output
	}
	defer silenceAllChannels(wr)

	queue := newCommandQueue(st.CommandQueueSize, warn)
	sinkDone := make(chan struct{})
	go newMidiSink(wr, warn).run(queue, sinkDone)

	seq, err := newSequencer(path, queue, st.SampleRate, *loop || st.LoopPlayback != 0, st.PendingNoteCap, warn)
	must(err)
	seq.rescaleOnTempo = st.RescaleNotesOnTempoChange != 0

	playLoop(seq, st)

	queue.close()
	<-sinkDone
}

// drive the sequencer in real time. an SDL audio device consuming
// queued silence at the configured sample rate is the sample clock:
// whatever the device has room for, the sequencer advances by.
func playLoop(seq *sequencer, st *settings) {
	must(sdl.Init(sdl.INIT_AUDIO))
	defer sdl.Quit()

	want := sdl.AudioSpec{
		Freq:     int32(st.SampleRate),
		Format:   sdl.AUDIO_S16,
		Channels: 1,
		Samples:  uint16(st.AudioBufferSamples),
	}
	var have sdl.AudioSpec
	dev, err := sdl.OpenAudioDevice("", false, &want, &have, 0)
	must(err)
	defer sdl.CloseAudioDevice(dev)
	sdl.PauseAudioDevice(dev, false)

	// keep two buffers of 16-bit silence queued ahead of the device
	target := uint32(st.AudioBufferSamples) * 2 * 2
	silence := make([]byte, target)
	for seq.isLoaded() {
		queued := sdl.GetQueuedAudioSize(dev)
		if queued < target {
			n := int(target-queued) / 2
			seq.advance(n)
			must(sdl.QueueAudio(dev, silence[:n*2]))
		} else {
			sdl.Delay(5)
		}
	}
}

// print available midi output ports
func listPorts() {
	drv, err := driver.New()
	must(err)
	defer drv.Close()
	outs, err := drv.Outs()
	must(err)
	for i, out := range outs {
		fmt.Printf("%d: %s\n", i, out.String())
	}
}
