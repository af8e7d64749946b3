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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field widths of the fixed part of the header.
const (
	widthID          = 7
	widthSubject     = 80
	widthRecording   = 80
	widthDate        = 8
	widthTime        = 8
	widthHeaderBytes = 8
	widthDataFormat  = 44
	widthRecords     = 8
	widthDuration    = 8
	widthChannels    = 4
)

// Field widths of the per-channel part of the header.
const (
	widthLabel          = 16
	widthTransducerType = 80
	widthDimension      = 8
	widthPhysical       = 8
	widthDigital        = 8
	widthPrefiltering   = 80
	widthSamples        = 8
	widthReserved       = 32
)

// ReadHeader decodes a BDF header from r. On success exactly HeaderBytes
// bytes have been consumed from r.
func ReadHeader(r io.Reader) (*Header, error) {
	d := &headerDecoder{r: r}

	hdr := &Header{}
	tag := d.read("format tag", 1)
	if d.err == nil {
		hdr.Tag = tag[0]
	}
	hdr.ID = d.text("format id", widthID)
	hdr.Subject = d.text("subject", widthSubject)
	hdr.RecordingID = d.text("recording id", widthRecording)
	hdr.Date = d.text("start date", widthDate)
	hdr.Time = d.text("start time", widthTime)
	hdr.HeaderBytes = d.int("header bytes", widthHeaderBytes)
	hdr.DataFormat = d.text("data format", widthDataFormat)
	hdr.DataRecords = d.int("number of data records", widthRecords)
	hdr.RecordDuration = d.int("data record duration", widthDuration)
	n := d.int("channel count", widthChannels)
	if d.err != nil {
		return nil, d.err
	}

	switch {
	case n < 1:
		return nil, &FormatError{Field: "channel count", Err: fmt.Errorf("%d channels, need at least the status channel", n)}
	case hdr.HeaderBytes != (n+1)*headerBlockSize:
		return nil, &FormatError{Field: "header bytes", Err: fmt.Errorf("%d bytes declared for %d channels", hdr.HeaderBytes, n)}
	case hdr.DataRecords < 0:
		return nil, &FormatError{Field: "number of data records", Err: fmt.Errorf("negative count %d", hdr.DataRecords)}
	case hdr.RecordDuration < 1:
		return nil, &FormatError{Field: "data record duration", Err: fmt.Errorf("non-positive duration %d", hdr.RecordDuration)}
	}

	channels := make([]Channel, n)
	for i := range channels {
		channels[i].Label = d.text("channel label", widthLabel)
	}
	for i := range channels {
		channels[i].TransducerType = d.text("transducer type", widthTransducerType)
	}
	for i := range channels {
		channels[i].PhysicalDimension = d.text("physical dimension", widthDimension)
	}
	for i := range channels {
		channels[i].PhysicalMin = d.int("physical minimum", widthPhysical)
	}
	for i := range channels {
		channels[i].PhysicalMax = d.int("physical maximum", widthPhysical)
	}
	for i := range channels {
		channels[i].DigitalMin = d.int("digital minimum", widthDigital)
	}
	for i := range channels {
		channels[i].DigitalMax = d.int("digital maximum", widthDigital)
	}
	for i := range channels {
		channels[i].Prefiltering = d.text("prefiltering", widthPrefiltering)
	}
	for i := range channels {
		channels[i].SamplesPerRecord = d.int("samples per record", widthSamples)
	}
	for i := range channels {
		channels[i].Reserved = d.text("reserved", widthReserved)
	}
	if d.err != nil {
		return nil, d.err
	}
	for _, ch := range channels {
		if ch.SamplesPerRecord < 1 {
			return nil, &FormatError{Field: "samples per record", Err: fmt.Errorf("channel %q has %d samples per record", ch.Label, ch.SamplesPerRecord)}
		}
	}

	hdr.Channels = channels[:n-1]
	hdr.Status = channels[n-1]

	return hdr, nil
}

// UnmarshalBinary decodes a header previously produced by MarshalBinary.
func (h *Header) UnmarshalBinary(data []byte) error {
	hdr, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*h = *hdr
	return nil
}

// MarshalBinary renders the header to its fixed-width on-disk layout. Text
// fields longer than their width are truncated.
func (h *Header) MarshalBinary() ([]byte, error) {
	if want := (h.ChannelCount() + 1) * headerBlockSize; h.HeaderBytes != want {
		return nil, fmt.Errorf("header declares %d bytes, %d channels need %d", h.HeaderBytes, h.ChannelCount(), want)
	}

	var buf bytes.Buffer
	buf.Grow(h.HeaderBytes)
	if err := h.writeTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (h *Header) writeTo(w io.Writer) error {
	e := &headerEncoder{w: bufio.NewWriterSize(w, h.HeaderBytes)}

	e.raw([]byte{h.Tag})
	e.text(h.ID, widthID)
	e.text(h.Subject, widthSubject)
	e.text(h.RecordingID, widthRecording)
	e.text(h.Date, widthDate)
	e.text(h.Time, widthTime)
	e.int("header bytes", h.HeaderBytes, widthHeaderBytes)
	e.text(h.DataFormat, widthDataFormat)
	e.int("number of data records", h.DataRecords, widthRecords)
	e.int("data record duration", h.RecordDuration, widthDuration)
	e.int("channel count", h.ChannelCount(), widthChannels)

	channels := append(append(make([]Channel, 0, h.ChannelCount()), h.Channels...), h.Status)

	for _, ch := range channels {
		e.text(ch.Label, widthLabel)
	}
	for _, ch := range channels {
		e.text(ch.TransducerType, widthTransducerType)
	}
	for _, ch := range channels {
		e.text(ch.PhysicalDimension, widthDimension)
	}
	for _, ch := range channels {
		e.int("physical minimum", ch.PhysicalMin, widthPhysical)
	}
	for _, ch := range channels {
		e.int("physical maximum", ch.PhysicalMax, widthPhysical)
	}
	for _, ch := range channels {
		e.int("digital minimum", ch.DigitalMin, widthDigital)
	}
	for _, ch := range channels {
		e.int("digital maximum", ch.DigitalMax, widthDigital)
	}
	for _, ch := range channels {
		e.text(ch.Prefiltering, widthPrefiltering)
	}
	for _, ch := range channels {
		e.int("samples per record", ch.SamplesPerRecord, widthSamples)
	}
	for _, ch := range channels {
		e.text(ch.Reserved, widthReserved)
	}

	if e.err != nil {
		return e.err
	}

	// Ensure all data is flushed to the underlying writer
	return e.w.Flush()
}

// headerDecoder reads consecutive fixed-width fields, remembering the first
// error so the field sequence can be written without checks in between.
type headerDecoder struct {
	r   io.Reader
	buf [widthTransducerType]byte
	err error
}

func (d *headerDecoder) read(field string, width int) []byte {
	if d.err != nil {
		return nil
	}
	b := d.buf[:width]
	if _, err := io.ReadFull(d.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = &FormatError{Field: field, Err: err}
		return nil
	}
	return b
}

func (d *headerDecoder) text(field string, width int) string {
	return strings.TrimSpace(string(d.read(field, width)))
}

func (d *headerDecoder) int(field string, width int) int {
	b := d.read(field, width)
	if d.err != nil {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		d.err = &FormatError{Field: field, Err: err}
		return 0
	}
	return i
}

type headerEncoder struct {
	w   *bufio.Writer
	err error
}

func (e *headerEncoder) raw(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

// text writes s left-justified in exactly width bytes. Overlong values are
// cut at the last rune boundary that fits.
func (e *headerEncoder) text(s string, width int) {
	if len(s) > width {
		cut := width
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s + strings.Repeat(" ", width-len(s)))
}

func (e *headerEncoder) int(field string, v, width int) {
	s := strconv.Itoa(v)
	if len(s) > width {
		if e.err == nil {
			e.err = fmt.Errorf("%s %d does not fit in %d characters", field, v, width)
		}
		return
	}
	e.text(s, width)
}
