// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bdf

import (
	"fmt"
	"time"
)

const (
	// FormatTag is the first byte of every BioSemi data file.
	FormatTag byte = 0xFF

	// FormatID follows the format tag.
	FormatID = "BIOSEMI"

	// DataFormat24Bit is the data format descriptor written by BioSemi ActiView.
	DataFormat24Bit = "24BIT"

	// bytesPerSample is the width of every sample in a data record,
	// including the status channel.
	bytesPerSample = 3

	// headerBlockSize is the size of the fixed header and of each channel's
	// share of the variable header.
	headerBlockSize = 256
)

// Header represents the BDF file header.
//
// The status channel is kept apart from the data channels, it is always the
// last channel on disk and never appears in Channels.
type Header struct {
	Tag            byte      // Format tag (0xFF for BioSemi files)
	ID             string    // Format identification (usually "BIOSEMI")
	Subject        string    // Identification of the subject
	RecordingID    string    // Identification of the recording session
	Date           string    // Start date of the recording (dd.mm.yy)
	Time           string    // Start time of the recording (hh.mm.ss)
	HeaderBytes    int       // Number of bytes in the header
	DataFormat     string    // Version of the data format (usually "24BIT")
	DataRecords    int       // Number of data records
	RecordDuration int       // Duration of a single data record in seconds
	Channels       []Channel // Data channels, in file order
	Status         Channel   // The trailing status/trigger channel
}

// Channel represents the characteristics of each channel in the BDF file.
type Channel struct {
	Label             string // Label of the channel (e.g., A1, Status)
	TransducerType    string // Type of transducer used
	PhysicalDimension string // Physical dimension (e.g., uV, Boolean)
	PhysicalMin       int    // Minimum physical value
	PhysicalMax       int    // Maximum physical value
	DigitalMin        int    // Minimum digital value
	DigitalMax        int    // Maximum digital value
	Prefiltering      string // Pre-filtering information
	SamplesPerRecord  int    // Number of samples in each data record for this channel
	Reserved          string // Reserved for future use
}

// Scale returns the multiplier converting digital sample codes to physical units.
func (c Channel) Scale() float64 {
	if c.DigitalMax == c.DigitalMin {
		return 0 // Avoid division by zero
	}
	return float64(c.PhysicalMax-c.PhysicalMin) / float64(c.DigitalMax-c.DigitalMin)
}

// Frequency returns the sampling frequency of the channel in Hz.
func (c Channel) Frequency(recordDuration int) int {
	if recordDuration <= 0 {
		return 0
	}
	return c.SamplesPerRecord / recordDuration
}

// ChannelCount returns the number of channels including the status channel.
func (h *Header) ChannelCount() int {
	return len(h.Channels) + 1
}

// Labels returns the labels of all channels, the status label last.
func (h *Header) Labels() []string {
	labels := make([]string, 0, h.ChannelCount())
	for _, ch := range h.Channels {
		labels = append(labels, ch.Label)
	}
	return append(labels, h.Status.Label)
}

// Channel returns the channel at the zero based index i, where
// i == len(h.Channels) addresses the status channel.
func (h *Header) Channel(i int) (Channel, bool) {
	switch {
	case i >= 0 && i < len(h.Channels):
		return h.Channels[i], true
	case i == len(h.Channels):
		return h.Status, true
	default:
		return Channel{}, false
	}
}

// SamplesPerRecord returns the samples per record of the first channel. The
// format is assumed to carry the same number of samples for every channel.
func (h *Header) SamplesPerRecord() int {
	if len(h.Channels) > 0 {
		return h.Channels[0].SamplesPerRecord
	}
	return h.Status.SamplesPerRecord
}

// Frequency returns the sampling frequency of the first channel in Hz.
func (h *Header) Frequency() int {
	if len(h.Channels) > 0 {
		return h.Channels[0].Frequency(h.RecordDuration)
	}
	return h.Status.Frequency(h.RecordDuration)
}

// Samples returns the number of samples per channel in the whole recording.
func (h *Header) Samples() int {
	return h.DataRecords * h.SamplesPerRecord()
}

// StartTime parses the start date and time of the recording.
func (h *Header) StartTime() (time.Time, error) {
	startDate, err := time.Parse("02.01.06", h.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", h.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing start time: %w", err)
	}
	return time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC), nil
}

func (h *Header) updateHeaderBytes() {
	h.HeaderBytes = (h.ChannelCount() + 1) * headerBlockSize
}

func (h *Header) clone() Header {
	c := *h
	c.Channels = append([]Channel(nil), h.Channels...)
	return c
}
