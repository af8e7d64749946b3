// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cli

import (
	"errors"

	"github.com/OpenPSG/bdf"
	"github.com/OpenPSG/bdf/internal/pipeline"
	"github.com/spf13/cobra"
)

// ApplyOptions holds the flags of the apply command.
type ApplyOptions struct {
	Pipeline string
	Output   string
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <file.bdf>...",
		Short: "Merge recordings, apply a transform pipeline and write the result",
		Long: `Read one or more recordings, merge them in the order given, apply the
transforms of an optional pipeline file and write the result as a new BDF file.

Without --output, merged recordings are written to the concatenation of the
input file names.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "YAML pipeline of transforms to apply")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file")

	return cmd
}

func runApply(rootOpts *RootOptions, opts *ApplyOptions, inputs []string) error {
	output := opts.Output
	if output == "" {
		if len(inputs) == 1 {
			return errors.New("--output is required for a single input")
		}
		output = bdf.MergeFileName(inputs...)
	}

	var p *pipeline.Pipeline
	if opts.Pipeline != "" {
		var err error
		if p, err = pipeline.LoadFile(opts.Pipeline); err != nil {
			return err
		}
	}

	recs := make([]*bdf.Recording, len(inputs))
	for i, name := range inputs {
		rootOpts.log.WithField("file", name).Info("Reading recording")

		var err error
		if recs[i], err = bdf.ReadFile(name, rootOpts.readOptions()...); err != nil {
			return err
		}
	}

	rec := recs[0]
	if err := rec.Merge(recs[1:]...); err != nil {
		return err
	}
	rec.Name = output

	if p != nil {
		if err := p.Apply(rec, rootOpts.log); err != nil {
			return err
		}
	}

	rootOpts.log.WithField("file", output).Info("Writing recording")
	return rec.WriteFile(output)
}
