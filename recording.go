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
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Recording is a decoded BDF file: its header, the physical samples of the
// data channels and the trigger and status streams of the status channel.
//
// Data, Trigger and Status are nil until the sample block has been read.
// Row i of Data belongs to Header.Channels[i].
type Recording struct {
	Name    string
	Header  Header
	Data    [][]float64
	Trigger *Trigger
	Status  []uint8

	log       logrus.FieldLogger
	resampler Resampler
	workers   int
}

// Option configures how a recording is read.
type Option func(*options)

type options struct {
	channels   []ChannelSpec
	headerOnly bool
	log        logrus.FieldLogger
	resampler  Resampler
	workers    int
}

// WithChannels reads only the given channels. The status channel is always read.
func WithChannels(channels ...ChannelSpec) Option {
	return func(o *options) {
		o.channels = append(o.channels, channels...)
	}
}

// HeaderOnly skips the sample block, see Recording.ReadData.
func HeaderOnly() Option {
	return func(o *options) {
		o.headerOnly = true
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithResampler sets the resampler used by Decimate.
func WithResampler(r Resampler) Option {
	return func(o *options) {
		o.resampler = r
	}
}

// WithConcurrency limits the number of channels decoded or encoded in
// parallel. Zero or less means GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	if o.resampler == nil {
		o.resampler = FourierResampler{}
	}
	return o
}

func newRecording(hdr *Header, o *options) *Recording {
	return &Recording{
		Header:    *hdr,
		log:       o.log,
		resampler: o.resampler,
		workers:   o.workers,
	}
}

// Loaded reports whether the sample block has been read.
func (r *Recording) Loaded() bool {
	return r.Trigger != nil
}

// Frequency returns the sampling frequency in Hz.
func (r *Recording) Frequency() int {
	return r.Header.Frequency()
}

// Samples returns the number of samples per channel.
func (r *Recording) Samples() int {
	if r.Trigger != nil {
		return len(r.Trigger.Raw)
	}
	return r.Header.Samples()
}

// Time returns the time in seconds of every sample.
func (r *Recording) Time() []float64 {
	t := make([]float64, r.Samples())
	freq := float64(r.Frequency())
	if freq == 0 {
		return t
	}
	for i := range t {
		t[i] = float64(i) / freq
	}
	return t
}

// Matrix returns a channels by samples matrix backed by a copy of Data, or
// nil if there are no data samples.
func (r *Recording) Matrix() *mat.Dense {
	n := r.Samples()
	if len(r.Data) == 0 || n == 0 {
		return nil
	}
	m := mat.NewDense(len(r.Data), n, nil)
	for i, row := range r.Data {
		m.SetRow(i, row)
	}
	return m
}

// Events returns the trigger onsets, or nil if no samples were read.
func (r *Recording) Events() []Event {
	if r.Trigger == nil {
		return nil
	}
	return r.Trigger.Events()
}

// Clone returns a deep copy of the recording.
func (r *Recording) Clone() *Recording {
	c := *r
	c.Header = r.Header.clone()
	if r.Data != nil {
		c.Data = copyRows(r.Data, 0, r.Samples())
	}
	if r.Trigger != nil {
		c.Trigger = AnalyzeTriggers(append([]uint16(nil), r.Trigger.Raw...), r.Frequency())
	}
	if r.Status != nil {
		c.Status = append([]uint8(nil), r.Status...)
	}
	return &c
}

func (r *Recording) String() string {
	return fmt.Sprintf("Filename: %s\nNumber of Channels: %d\nChannel Labels: %s\nSampling Frequency: %d",
		r.Name, r.Header.ChannelCount(), strings.Join(r.Header.Labels(), ", "), r.Frequency())
}

// MergeFileName derives the name of a merged recording from the names of its
// sources, e.g. "a.bdf" and "dir/b.bdf" give "ab.bdf".
func MergeFileName(names ...string) string {
	var sb strings.Builder
	for _, name := range names {
		base := filepath.Base(name)
		sb.WriteString(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	sb.WriteString(".bdf")
	return sb.String()
}

// copyRows copies the sample range [from, to) of every row into one
// contiguous allocation.
func copyRows(rows [][]float64, from, to int) [][]float64 {
	n := to - from
	out := make([][]float64, len(rows))
	backing := make([]float64, len(rows)*n)
	for i, row := range rows {
		out[i] = backing[i*n : (i+1)*n : (i+1)*n]
		copy(out[i], row[from:to])
	}
	return out
}
