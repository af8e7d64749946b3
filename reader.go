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
	"os"

	"github.com/sirupsen/logrus"
)

// maxPreallocation bounds the sample buffer reserved before any data has
// been read.
const maxPreallocation = 64 << 20

// Open reads a BDF file from r. Unless HeaderOnly is given the sample block
// is decoded as well.
func Open(r io.Reader, opts ...Option) (*Recording, error) {
	o := newOptions(opts)
	reader := bufio.NewReader(r)

	hdr, err := ReadHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	rec := newRecording(hdr, o)
	if o.headerOnly {
		return rec, nil
	}

	if err := rec.readData(reader, o.channels); err != nil {
		return nil, err
	}

	return rec, nil
}

// ReadFile opens and reads the named BDF file.
func ReadFile(name string, opts ...Option) (*Recording, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Open(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	rec.Name = name

	return rec, nil
}

// ReadData reads the sample block of a recording opened with HeaderOnly. r
// must hold the same file the header was read from.
func (r *Recording) ReadData(rs io.ReadSeeker, channels ...ChannelSpec) error {
	if r.Loaded() {
		return fmt.Errorf("sample data already read")
	}

	if _, err := rs.Seek(int64(r.Header.HeaderBytes), io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to data records: %w", err)
	}

	return r.readData(bufio.NewReader(rs), channels)
}

func (r *Recording) readData(rd io.Reader, channels []ChannelSpec) error {
	sel := r.Header.allChannels()
	if len(channels) > 0 {
		var err error
		if sel, err = r.Header.Resolve(channels); err != nil {
			return err
		}
		r.logIgnored(sel)
	}

	spr := r.Header.SamplesPerRecord()
	for _, ch := range r.Header.Channels {
		if ch.SamplesPerRecord != spr {
			r.log.WithField("channel", ch.Label).
				Warnf("Channel has %d samples per record, decoding with %d", ch.SamplesPerRecord, spr)
		}
	}

	layout := sampleLayout{
		channels:         r.Header.ChannelCount(),
		records:          r.Header.DataRecords,
		samplesPerRecord: spr,
	}
	size, ok := layout.checkedSize()
	if !ok {
		return &FormatError{
			Field: "data records",
			Err:   fmt.Errorf("%d records of %d samples on %d channels is too large", layout.records, spr, layout.channels),
		}
	}

	// Grows with the bytes actually read, not with the declared size.
	var data bytes.Buffer
	data.Grow(min(size, maxPreallocation))
	if n, err := io.CopyN(&data, rd, int64(size)); err != nil {
		if errors.Is(err, io.EOF) {
			return &FormatError{
				Field: "data records",
				Err:   fmt.Errorf("%d bytes available, header declares %d: %w", n, size, io.ErrUnexpectedEOF),
			}
		}
		return fmt.Errorf("error reading sample data: %w", err)
	}
	buf := data.Bytes()

	block, err := decodeSamples(buf, &r.Header, sel.Indices, r.workers)
	if err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"records":  layout.records,
		"channels": len(sel.Indices),
		"bytes":    len(buf),
	}).Debug("Decoded sample block")

	r.Header = r.Header.selected(sel.DataIndices())
	r.Data = block.data
	r.Status = block.status
	r.Trigger = AnalyzeTriggers(block.raw, r.Frequency())

	return nil
}

func (r *Recording) logIgnored(sel *Selection) {
	for _, spec := range sel.Ignored {
		r.log.WithField("channel", spec.String()).Info("Status channel is always selected, ignoring")
	}
}

// selected returns a copy of h keeping only the data channels at indices.
func (h *Header) selected(indices []int) Header {
	c := *h
	c.Channels = make([]Channel, len(indices))
	for i, idx := range indices {
		c.Channels[i] = h.Channels[idx]
	}
	c.updateHeaderBytes()
	return c
}
