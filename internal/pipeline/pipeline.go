// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package pipeline applies a sequence of record transforms, described in
// YAML, to a recording.
//
//	steps:
//	  - select: [A1, A2, 5]
//	  - difference: {plus: A1, minus: A2, label: A1-A2}
//	  - rereference: {average: true}
//	  - crop: {triggers: [255, 0]}
//	  - decimate: 4
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OpenPSG/bdf"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Pipeline is an ordered list of transform steps.
type Pipeline struct {
	Steps []Step `yaml:"steps"`
}

// Step holds exactly one transform.
type Step struct {
	Select      []string     `yaml:"select,omitempty"`
	Delete      []string     `yaml:"delete,omitempty"`
	Difference  *Difference  `yaml:"difference,omitempty"`
	Rereference *Rereference `yaml:"rereference,omitempty"`
	Crop        *Crop        `yaml:"crop,omitempty"`
	Decimate    int          `yaml:"decimate,omitempty"`
}

// Difference appends Plus minus Minus as a channel called Label.
type Difference struct {
	Plus  string `yaml:"plus"`
	Minus string `yaml:"minus"`
	Label string `yaml:"label"`
}

// Rereference subtracts the mean of Channels, or of every data channel if
// Average is set.
type Rereference struct {
	Channels []string `yaml:"channels,omitempty"`
	Average  bool     `yaml:"average,omitempty"`
}

// Crop gives either a 1-based inclusive record range or a pair of trigger
// codes, where 0 stands for the start or end of the recording.
type Crop struct {
	Records  []int    `yaml:"records,omitempty"`
	Triggers []uint16 `yaml:"triggers,omitempty"`
}

// Load decodes a pipeline from r. Unknown fields are rejected.
func Load(r io.Reader) (*Pipeline, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error decoding pipeline: %w", err)
	}

	for i, step := range p.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return &p, nil
}

// LoadFile decodes the named pipeline file.
func LoadFile(name string) (*Pipeline, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// Apply runs every step against rec, stopping at the first failure. Steps
// before the failing one remain applied.
func (p *Pipeline) Apply(rec *bdf.Recording, log logrus.FieldLogger) error {
	for i, step := range p.Steps {
		log.WithFields(logrus.Fields{
			"step": i + 1,
			"op":   step.name(),
		}).Info("Applying transform")

		if err := step.apply(rec); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.name(), err)
		}
	}
	return nil
}

func (s Step) name() string {
	switch {
	case s.Select != nil:
		return "select"
	case s.Delete != nil:
		return "delete"
	case s.Difference != nil:
		return "difference"
	case s.Rereference != nil:
		return "rereference"
	case s.Crop != nil:
		return "crop"
	case s.Decimate != 0:
		return "decimate"
	default:
		return ""
	}
}

func (s Step) validate() error {
	n := 0
	for _, set := range []bool{
		s.Select != nil, s.Delete != nil, s.Difference != nil,
		s.Rereference != nil, s.Crop != nil, s.Decimate != 0,
	} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("expected exactly one operation, got %d", n)
	}

	if s.Select != nil && len(s.Select) == 0 {
		return errors.New("select needs at least one channel")
	}
	if s.Delete != nil && len(s.Delete) == 0 {
		return errors.New("delete needs at least one channel")
	}
	if s.Crop != nil {
		switch {
		case s.Crop.Records != nil && s.Crop.Triggers != nil:
			return errors.New("crop by records and triggers at once")
		case s.Crop.Records != nil && len(s.Crop.Records) != 2:
			return errors.New("crop records needs a first and a last record")
		case s.Crop.Triggers != nil && len(s.Crop.Triggers) != 2:
			return errors.New("crop triggers needs a start and an end trigger")
		case s.Crop.Records == nil && s.Crop.Triggers == nil:
			return errors.New("crop needs records or triggers")
		}
	}
	if s.Difference != nil && (s.Difference.Plus == "" || s.Difference.Minus == "") {
		return errors.New("difference needs plus and minus channels")
	}
	if s.Rereference != nil && !s.Rereference.Average && len(s.Rereference.Channels) == 0 {
		return errors.New("rereference needs channels or average")
	}

	return nil
}

func (s Step) apply(rec *bdf.Recording) error {
	switch {
	case s.Select != nil:
		return rec.SelectChannels(ParseChannels(s.Select)...)
	case s.Delete != nil:
		return rec.DeleteChannels(ParseChannels(s.Delete)...)
	case s.Difference != nil:
		return rec.ChannelDifference(bdf.ParseChannelSpec(s.Difference.Plus),
			bdf.ParseChannelSpec(s.Difference.Minus), s.Difference.Label)
	case s.Rereference != nil:
		if s.Rereference.Average {
			return rec.Rereference(dataChannels(rec)...)
		}
		return rec.Rereference(ParseChannels(s.Rereference.Channels)...)
	case s.Crop != nil && s.Crop.Records != nil:
		return rec.CropRecords(s.Crop.Records[0], s.Crop.Records[1])
	case s.Crop != nil:
		return rec.CropTriggers(s.Crop.Triggers[0], s.Crop.Triggers[1])
	default:
		return rec.Decimate(s.Decimate)
	}
}

// ParseChannels converts labels and 1-based indices into channel specifiers.
func ParseChannels(channels []string) []bdf.ChannelSpec {
	specs := make([]bdf.ChannelSpec, len(channels))
	for i, ch := range channels {
		specs[i] = bdf.ParseChannelSpec(ch)
	}
	return specs
}

func dataChannels(rec *bdf.Recording) []bdf.ChannelSpec {
	specs := make([]bdf.ChannelSpec, len(rec.Header.Channels))
	for i := range specs {
		specs[i] = bdf.Index(i + 1)
	}
	return specs
}
