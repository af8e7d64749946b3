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
	"slices"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// DecimateFactors are the factors accepted by Decimate.
var DecimateFactors = []int{1, 2, 4, 8}

// All operations below either succeed or leave the recording untouched:
// arguments are validated before anything is modified.

// SelectChannels keeps only the given data channels, in file order. At least
// one channel must be given.
func (r *Recording) SelectChannels(channels ...ChannelSpec) error {
	const op = "select channels"

	if len(channels) == 0 {
		return validationErrorf(op, "no channels given")
	}
	sel, err := r.resolve(op, channels)
	if err != nil {
		return err
	}

	r.keep(sel.DataIndices())
	return nil
}

// DeleteChannels removes the given data channels. The status channel is
// never removed.
func (r *Recording) DeleteChannels(channels ...ChannelSpec) error {
	sel, err := r.resolve("delete channels", channels)
	if err != nil {
		return err
	}

	var kept []int
	for i := range r.Header.Channels {
		if !slices.Contains(sel.DataIndices(), i) {
			kept = append(kept, i)
		}
	}

	r.keep(kept)
	return nil
}

// ChannelDifference appends a new data channel holding a minus b. The new
// channel takes its header from a, with the given label, which must not be in
// use yet.
func (r *Recording) ChannelDifference(a, b ChannelSpec, label string) error {
	const op = "channel difference"

	if label == "" {
		return validationErrorf(op, "a label is required")
	}
	if slices.Contains(r.Header.Labels(), label) {
		return validationErrorf(op, "channel '%s' already exists", label)
	}

	ia, err := r.resolveOne(op, a)
	if err != nil {
		return err
	}
	ib, err := r.resolveOne(op, b)
	if err != nil {
		return err
	}

	row := make([]float64, r.Samples())
	floats.SubTo(row, r.Data[ia], r.Data[ib])

	ch := r.Header.Channels[ia]
	ch.Label = label

	r.Data = append(r.Data, row)
	r.Header.Channels = append(r.Header.Channels, ch)
	r.Header.updateHeaderBytes()

	r.log.WithFields(logrus.Fields{
		"channel": label,
		"plus":    a.String(),
		"minus":   b.String(),
	}).Debug("Appended channel difference")

	return nil
}

// Rereference subtracts the mean of the given data channels from every data
// channel.
func (r *Recording) Rereference(channels ...ChannelSpec) error {
	const op = "rereference"

	sel, err := r.resolve(op, channels)
	if err != nil {
		return err
	}
	ref := sel.DataIndices()
	if len(ref) == 0 {
		return validationErrorf(op, "no reference channels")
	}

	mean := make([]float64, r.Samples())
	for _, i := range ref {
		floats.Add(mean, r.Data[i])
	}
	floats.Scale(1/float64(len(ref)), mean)

	for _, row := range r.Data {
		floats.Sub(row, mean)
	}

	r.log.WithField("reference", len(ref)).Debug("Rereferenced recording")

	return nil
}

// Merge appends the samples of every donor to the recording. Donors must
// have the same channels and sampling frequency. Their samples are copied.
func (r *Recording) Merge(donors ...*Recording) error {
	const op = "merge"

	if err := r.requireLoaded(op); err != nil {
		return err
	}

	labels := r.Header.Labels()
	for _, d := range donors {
		switch {
		case !d.Loaded():
			return validationErrorf(op, "%s: no sample data loaded", d.Name)
		case d.Header.ChannelCount() != r.Header.ChannelCount():
			return validationErrorf(op, "%s: different numbers of channels (%d != %d)", d.Name, d.Header.ChannelCount(), r.Header.ChannelCount())
		case !slices.Equal(d.Header.Labels(), labels):
			return validationErrorf(op, "%s: different channel labels", d.Name)
		case d.Frequency() != r.Frequency():
			return validationErrorf(op, "%s: different sample rate (%d Hz != %d Hz)", d.Name, d.Frequency(), r.Frequency())
		case d.Header.SamplesPerRecord() != r.Header.SamplesPerRecord():
			return validationErrorf(op, "%s: different record size (%d != %d samples)", d.Name, d.Header.SamplesPerRecord(), r.Header.SamplesPerRecord())
		}
	}

	total := r.Samples()
	records := r.Header.DataRecords
	for _, d := range donors {
		total += d.Samples()
		records += d.Header.DataRecords
	}

	sources := append([]*Recording{r}, donors...)

	data := make([][]float64, len(r.Data))
	backing := make([]float64, len(r.Data)*total)
	for i := range data {
		data[i] = backing[i*total : i*total : (i+1)*total]
		for _, src := range sources {
			data[i] = append(data[i], src.Data[i]...)
		}
	}

	raw := make([]uint16, 0, total)
	status := make([]uint8, 0, total)
	for _, src := range sources {
		raw = append(raw, src.Trigger.Raw...)
		status = append(status, src.Status...)
	}

	r.Data = data
	r.Status = status
	r.Header.DataRecords = records
	r.Trigger = AnalyzeTriggers(raw, r.Frequency())

	r.log.WithFields(logrus.Fields{
		"donors":  len(donors),
		"records": records,
	}).Debug("Merged recordings")

	return nil
}

// CropRecords keeps the data records first to last, 1-based and inclusive.
func (r *Recording) CropRecords(first, last int) error {
	const op = "crop records"

	if err := r.requireLoaded(op); err != nil {
		return err
	}
	if first < 1 || last < first || last > r.Header.DataRecords {
		return validationErrorf(op, "record range %d-%d outside 1-%d", first, last, r.Header.DataRecords)
	}

	spr := r.Header.SamplesPerRecord()
	r.cropSamples((first-1)*spr, last*spr)
	return nil
}

// CropTriggers keeps the data records from the first onset of trigger code
// start to the last onset of trigger code end. A code of 0 stands for the
// start or the end of the recording. The range is widened to whole records.
func (r *Recording) CropTriggers(start, end uint16) error {
	const op = "crop triggers"

	if err := r.requireLoaded(op); err != nil {
		return err
	}
	spr := r.Header.SamplesPerRecord()
	n := r.Samples()
	if spr <= 0 || n == 0 {
		return validationErrorf(op, "recording holds no samples")
	}

	from, to := 0, n-1
	if start != 0 {
		i := slices.Index(r.Trigger.Values, start)
		if i < 0 {
			return validationErrorf(op, "no onset of trigger %d", start)
		}
		from = r.Trigger.Onsets[i]
	}
	if end != 0 {
		i := lastIndex(r.Trigger.Values, end)
		if i < 0 {
			return validationErrorf(op, "no onset of trigger %d", end)
		}
		to = r.Trigger.Onsets[i]
	}
	if to < from {
		return validationErrorf(op, "trigger %d (sample %d) precedes trigger %d (sample %d)", end, to, start, from)
	}

	r.cropSamples(from/spr*spr, (to/spr+1)*spr)
	return nil
}

// Decimate reduces the sampling rate by factor, one of DecimateFactors. The
// data channels are resampled with the recording's Resampler. Each trigger
// onset is moved to sample onset/factor; onsets falling on the same sample
// are lost.
func (r *Recording) Decimate(factor int) error {
	const op = "decimate"

	if !slices.Contains(DecimateFactors, factor) {
		return validationErrorf(op, "factor %d not in %v", factor, DecimateFactors)
	}
	if err := r.requireLoaded(op); err != nil {
		return err
	}
	spr := r.Header.SamplesPerRecord()
	if spr%factor != 0 {
		return validationErrorf(op, "%d samples per record not divisible by %d", spr, factor)
	}
	if factor == 1 {
		return nil
	}

	n := r.Samples() / factor
	data := make([][]float64, len(r.Data))

	var g errgroup.Group
	g.SetLimit(workerLimit(r.workers))
	for i, row := range r.Data {
		g.Go(func() error {
			data[i] = r.resampler.Decimate(row, factor)
			if len(data[i]) != n {
				return validationErrorf(op, "resampler returned %d samples, expected %d", len(data[i]), n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	raw := make([]uint16, n)
	lost := 0
	for i, idx := range r.Trigger.Onsets {
		if i > 0 && idx/factor == r.Trigger.Onsets[i-1]/factor {
			lost++
		}
		raw[idx/factor] = r.Trigger.Values[i]
	}
	if lost > 0 {
		r.log.WithFields(logrus.Fields{
			"factor": factor,
			"lost":   lost,
		}).Warn("Trigger onsets collided while decimating")
	}

	status := make([]uint8, n)
	for i := range status {
		status[i] = r.Status[i*factor]
	}

	for i := range r.Header.Channels {
		r.Header.Channels[i].SamplesPerRecord /= factor
	}
	r.Header.Status.SamplesPerRecord /= factor

	r.Data = data
	r.Status = status
	r.Trigger = AnalyzeTriggers(raw, r.Frequency())

	r.log.WithFields(logrus.Fields{
		"factor":    factor,
		"frequency": r.Frequency(),
	}).Debug("Decimated recording")

	return nil
}

func (r *Recording) requireLoaded(op string) error {
	if !r.Loaded() {
		return validationErrorf(op, "no sample data loaded")
	}
	return nil
}

func (r *Recording) resolve(op string, channels []ChannelSpec) (*Selection, error) {
	if err := r.requireLoaded(op); err != nil {
		return nil, err
	}

	sel, err := r.Header.Resolve(channels)
	if err != nil {
		return nil, err
	}
	r.logIgnored(sel)

	return sel, nil
}

// resolveOne resolves a single data channel.
func (r *Recording) resolveOne(op string, spec ChannelSpec) (int, error) {
	sel, err := r.resolve(op, []ChannelSpec{spec})
	if err != nil {
		return 0, err
	}
	if len(sel.DataIndices()) != 1 {
		return 0, validationErrorf(op, "channel '%s' is not a data channel", spec)
	}
	return sel.DataIndices()[0], nil
}

// keep retains the data channels at indices, in the given order.
func (r *Recording) keep(indices []int) {
	data := make([][]float64, len(indices))
	for i, idx := range indices {
		data[i] = r.Data[idx]
	}

	r.Data = data
	r.Header = r.Header.selected(indices)

	r.log.WithField("channels", r.Header.Labels()).Debug("Selected channels")
}

// cropSamples keeps the samples in [from, to), which must be record aligned.
func (r *Recording) cropSamples(from, to int) {
	r.Data = copyRows(r.Data, from, to)
	r.Status = append([]uint8(nil), r.Status[from:to]...)
	r.Header.DataRecords = (to - from) / r.Header.SamplesPerRecord()
	r.Trigger = AnalyzeTriggers(append([]uint16(nil), r.Trigger.Raw[from:to]...), r.Frequency())

	r.log.WithFields(logrus.Fields{
		"from":    from,
		"to":      to,
		"records": r.Header.DataRecords,
	}).Debug("Cropped recording")
}

func lastIndex[S ~[]E, E comparable](s S, v E) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == v {
			return i
		}
	}
	return -1
}
