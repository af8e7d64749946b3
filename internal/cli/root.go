// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package cli implements the bdftool command line.
package cli

import (
	"fmt"

	"github.com/OpenPSG/bdf"
	"github.com/OpenPSG/bdf/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel    string
	Channels    []string
	Concurrency int

	log *logrus.Logger
}

// NewRootCommand creates the root command for bdftool.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{log: logrus.New()}

	cmd := &cobra.Command{
		Use:           "bdftool",
		Short:         "Inspect and transform BioSemi BDF recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
			}
			opts.log.SetLevel(level)
			opts.log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringSliceVarP(&opts.Channels, "channels", "c", nil, "channels to read, by label or 1-based index")
	cmd.PersistentFlags().IntVar(&opts.Concurrency, "concurrency", 0, "channels decoded in parallel (0 = number of CPUs)")

	// Add subcommands
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))

	return cmd
}

func (o *RootOptions) readOptions(extra ...bdf.Option) []bdf.Option {
	opts := []bdf.Option{
		bdf.WithLogger(o.log),
		bdf.WithConcurrency(o.Concurrency),
	}
	if len(o.Channels) > 0 {
		opts = append(opts, bdf.WithChannels(pipeline.ParseChannels(o.Channels)...))
	}
	return append(opts, extra...)
}
