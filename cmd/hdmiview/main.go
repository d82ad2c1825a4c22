// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command hdmiview shows a V4L2 HDMI capture stream.
//
// Usage:
//
//	hdmiview [run] [flags]
//	hdmiview probe --device /dev/video0
//	hdmiview config > hdmiview.yaml
//
// Every flag can also be set in hdmiview.yaml or through an HDMIVIEW_*
// environment variable (HDMIVIEW_UV_SWAP=1, HDMIVIEW_RANGE=full, ...).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "hdmiview",
	Short:         "HDMI capture viewer",
	Long:          `hdmiview - streams an HDMI capture device (V4L2) and draws it through the GPU or a software renderer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runE,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the viewer (default)",
	RunE:  runE,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print device capabilities and the current format",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFor(cmd)
		if err != nil {
			return err
		}
		return probe(cmd.OutOrStdout(), cfg.Device)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFor(cmd)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hdmiview v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is hdmiview.yaml in the user config dir, /etc/hdmiview or .)")
	registerFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "hdmiview:", err)
		os.Exit(1)
	}
}

// configFor loads the configuration for cmd, with its flags taking
// precedence over the environment and the config file.
func configFor(cmd *cobra.Command) (*Config, error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return loadConfig(v, cfgFile)
}

func runE(cmd *cobra.Command, args []string) error {
	cfg, err := configFor(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	return runViewer(cmd.Context(), cfg, logger)
}
