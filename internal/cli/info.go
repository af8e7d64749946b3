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
	"os"

	"github.com/OpenPSG/bdf"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.bdf>",
		Short: "Print a summary of the header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
}

func runInfo(opts *RootOptions, name string, cmd *cobra.Command) error {
	fi, err := os.Stat(name)
	if err != nil {
		return err
	}

	rec, err := bdf.ReadFile(name, opts.readOptions(bdf.HeaderOnly())...)
	if err != nil {
		return err
	}
	hdr := &rec.Header

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, rec)
	fmt.Fprintf(w, "File Size: %s\n", humanize.IBytes(uint64(fi.Size())))
	if start, err := hdr.StartTime(); err == nil {
		fmt.Fprintf(w, "Start Time: %s\n", start.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Subject: %s\n", hdr.Subject)
	fmt.Fprintf(w, "Recording: %s\n", hdr.RecordingID)
	fmt.Fprintf(w, "Data Records: %s x %d s\n", humanize.Comma(int64(hdr.DataRecords)), hdr.RecordDuration)
	fmt.Fprintf(w, "Samples per Channel: %s\n", humanize.Comma(int64(hdr.Samples())))

	return nil
}
