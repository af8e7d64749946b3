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
	"fmt"
	"text/tabwriter"

	"github.com/OpenPSG/bdf"
	"github.com/spf13/cobra"
)

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "events <file.bdf>",
		Short: "List trigger onsets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(rootOpts, args[0], summary, cmd)
		},
	}

	cmd.Flags().BoolVarP(&summary, "summary", "s", false, "only print the number of onsets per trigger code")

	return cmd
}

func runEvents(opts *RootOptions, name string, summary bool, cmd *cobra.Command) error {
	// Only the status channel is needed.
	rec, err := bdf.ReadFile(name, opts.readOptions(bdf.WithChannels(bdf.StatusChannel))...)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)

	if summary {
		fmt.Fprintln(tw, "TRIGGER\tCOUNT")
		for _, code := range rec.Trigger.Codes() {
			fmt.Fprintf(tw, "%d\t%d\n", code, rec.Trigger.Count[code])
		}
		return tw.Flush()
	}

	freq := float64(rec.Frequency())
	fmt.Fprintln(tw, "SAMPLE\tTIME (s)\tTRIGGER\tINTERVAL (s)")
	for _, ev := range rec.Events() {
		fmt.Fprintf(tw, "%d\t%.3f\t%d\t%.3f\n", ev.Sample, float64(ev.Sample)/freq, ev.Value, ev.Interval)
	}

	return tw.Flush()
}
