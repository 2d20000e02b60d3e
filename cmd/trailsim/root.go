// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		configFile string
		verbose    bool
	)

	root := &cobra.Command{
		Use:          "trailsim",
		Short:        "Scenario simulator for the trailsync engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	run := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run one scenario, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)

			var recorder *promRecorder
			if cfg.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				recorder = newPromRecorder(reg)
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go func() {
					logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						logger.Warn("Metrics listener stopped", "error", err)
					}
				}()
			}

			names := scenarioNames()
			if len(args) == 1 && args[0] != "all" {
				if _, ok := scenarios[args[0]]; !ok {
					return fmt.Errorf("unknown scenario %q (see `trailsim scenarios`)", args[0])
				}
				names = []string{args[0]}
			}

			for _, name := range names {
				logger.Info("▶ Running scenario", "name", name)
				h := newHarness(cfg, logger, recorder)
				if err := scenarios[name].Run(cmd.Context(), h); err != nil {
					logger.Error("✗ Scenario failed", "name", name, "error", err)
					return err
				}
				logger.Info("✓ Scenario passed", "name", name)
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "scenarios",
		Short: "List available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenarioNames() {
				fmt.Printf("%-20s %s\n", name, scenarios[name].Description)
			}
			return nil
		},
	}

	root.AddCommand(run, list)
	return root
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
