package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"reflect"
	"strconv"
)

const settingsPath = "config/settings.csv"

// integer fields with 0/1 values act as booleans
type settings struct {
	AudioBufferSamples        int
	CommandQueueSize          int
	LoopPlayback              int
	MidiOutPortNumber         int
	PendingNoteCap            int
	RescaleNotesOnTempoChange int
	SampleRate                int
}

// load settings from the config file over the defaults
func loadSettings(warn func(string)) *settings {
	s := &settings{
		AudioBufferSamples: 2048,
		CommandQueueSize:   1024,
		MidiOutPortNumber:  -1,
		PendingNoteCap:     defaultPendingCap,
		SampleRate:         44100,
	}
	if records, err := readCSV(settingsPath); err == nil {
		s.applyRecords(records, warn)
	}
	return s
}

// apply CSV records
func (s *settings) applyRecords(records [][]string, warn func(string)) {
	v := reflect.ValueOf(s).Elem()
	for _, rec := range records {
		success := false
		if len(rec) == 2 {
			if field := v.FieldByName(rec[0]); field.IsValid() && field.Kind() == reflect.Int {
				if i, err := strconv.Atoi(rec[1]); err == nil {
					field.SetInt(int64(i))
					success = true
				}
			}
		}
		if !success {
			warn(fmt.Sprintf("bad settings record: %v", rec))
		}
	}
}

// read records from a CSV file
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	return r.ReadAll()
}
