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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// WriteTo writes the recording in BDF format to w.
func (r *Recording) WriteTo(w io.Writer) (int64, error) {
	if !r.Loaded() {
		return 0, fmt.Errorf("no sample data to write")
	}

	hdr, err := r.Header.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("error writing header: %w", err)
	}

	data, err := encodeSamples(&r.Header, &sampleBlock{data: r.Data, raw: r.Trigger.Raw, status: r.Status}, r.workers)
	if err != nil {
		return 0, fmt.Errorf("error writing data records: %w", err)
	}

	writer := bufio.NewWriter(w)

	var n int64
	for _, b := range [][]byte{hdr, data} {
		m, err := writer.Write(b)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}

	r.log.WithFields(logrus.Fields{
		"records":  r.Header.DataRecords,
		"channels": r.Header.ChannelCount(),
		"bytes":    n,
	}).Debug("Encoded recording")

	// Ensure all data is flushed to the underlying writer
	return n, writer.Flush()
}

// WriteFile writes the recording to the named file, creating or truncating it.
func (r *Recording) WriteFile(name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if _, err := r.WriteTo(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// Writer writes BDF files one data record at a time.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
	workers     int
}

// Create creates a new BDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr = hdr.clone()
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.updateHeaderBytes()

	bw := &Writer{w: w, hdr: &hdr}

	// Write the initial header
	if err := bw.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return bw, nil
}

// Close finalizes the BDF file by updating the header with the total number of data records.
func (bw *Writer) Close() error {
	// Finalize the header with the actual number of data records
	bw.hdr.DataRecords = bw.dataRecords
	if err := bw.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record. data holds one slice of physical
// values per data channel; trigger and status make up the status channel.
// Every slice must hold exactly one record worth of samples.
func (bw *Writer) WriteRecord(data [][]float64, trigger []uint16, status []uint8) error {
	if len(data) != len(bw.hdr.Channels) {
		return fmt.Errorf("expected %d channels, got %d", len(bw.hdr.Channels), len(data))
	}

	// Encode the record as a recording of its own.
	hdr := *bw.hdr
	hdr.DataRecords = 1
	buf, err := encodeSamples(&hdr, &sampleBlock{data: data, raw: trigger, status: status}, bw.workers)
	if err != nil {
		return err
	}

	if _, err := bw.w.Write(buf); err != nil {
		return err
	}

	bw.dataRecords++
	return nil
}

// writeHeader writes the BDF header at the start of the file and leaves the
// write position at the end of the data records written so far.
func (bw *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	if _, err := bw.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := bw.hdr.writeTo(bw.w); err != nil {
		return err
	}

	written := sampleLayout{
		channels:         bw.hdr.ChannelCount(),
		records:          bw.dataRecords,
		samplesPerRecord: bw.hdr.SamplesPerRecord(),
	}.size()
	_, err := bw.w.Seek(int64(bw.hdr.HeaderBytes+written), io.SeekStart)
	return err
}
