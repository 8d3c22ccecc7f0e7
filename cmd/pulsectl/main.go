/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Command pulsectl runs the delivery metrics engine against the database
// without the HTTP server: migrations, one-off burndowns, rollups and
// full recompute passes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var o rootOptions
	rootCmd := &cobra.Command{
		Use:           "pulsectl",
		Short:         "Sprint burndown and delivery metrics from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&o.output, "output", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&o.tz, "tz", "", "override APP_TZ for day bucketing")

	rootCmd.AddCommand(
		migrateCmd(&o),
		burndownCmd(&o),
		sprintMetricsCmd(&o),
		developerMetricsCmd(&o),
		recomputeCmd(&o),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
