package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jasonKoogler/noc-lat/internal/config"
	"github.com/jasonKoogler/noc-lat/internal/estimator"
	"github.com/jasonKoogler/noc-lat/internal/recording"
	"github.com/jasonKoogler/noc-lat/internal/selector"
	"github.com/jasonKoogler/noc-lat/internal/topology"
)

const envPrefix = "NOCLAT"

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "noclat",
		Short: "Estimate NoC queueing delay of checked-core topologies",
		Long: `noclat turns gem5 traffic statistics into M/M/1 queueing delays
for a checked-core topology and prints, per benchmark, how many cycles
checking adds to a core's round trip to the LLC.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "op" {
			name = "topology"
		}
		return pflag.NormalizedName(name)
	})

	flags.String("topology", "", "topology to model: one of 1M2C, 1M4C, 1M12C, 1M16C, 2M, 4M, 4x4i, 4x4o (alias --op)")
	flags.String("csv", "", "comma separated input tables: cycles first, then the access counts of every main core")
	flags.Bool("slow-noc", false, "model the slower, narrower NoC")
	flags.String("slow-noc-estimate", "", "table of estimated checked cycle counts under slow NoC")
	flags.Bool("hashed", false, "log hashed load-store entries")
	flags.Int64("core-clock-rate", 0, "core clock rate in Hz")
	flags.Int64("noc-clock-rate", 0, "NoC clock rate in Hz")
	flags.Int("noc-width", 0, "NoC width in bits")
	flags.Int("num-mains", 0, "number of main cores (4x4i, 4x4o)")
	flags.Int("num-checkers-per-main", 0, "number of checker cores per main core (4x4o)")
	flags.String("config", "", "model parameter file")
	flags.String("record", "", "record results into <record>.sqlite3")
	flags.String("dump", "", "write detailed results as JSON to this file")
	flags.BoolP("verbose", "v", false, "log per-hop and per-core delays")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func newLogger(cmd *cobra.Command, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// loadParams reads the parameter file, if any, and applies the flags that
// were set on top of it.
func loadParams(v *viper.Viper) (*config.Config, error) {
	params := config.DefaultConfig()
	if path := v.GetString("config"); path != "" {
		var err error
		if params, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if v.IsSet("core-clock-rate") {
		params.CoreClockRate = v.GetInt64("core-clock-rate")
	}
	if v.IsSet("noc-clock-rate") {
		params.NoCClockRate = v.GetInt64("noc-clock-rate")
	}
	if v.IsSet("noc-width") {
		params.NoCWidth = v.GetInt("noc-width")
	}
	if v.IsSet("slow-noc") {
		params.UseSlowNoC = v.GetBool("slow-noc")
	}
	if v.IsSet("hashed") {
		params.Hashed = v.GetBool("hashed")
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return params, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	logger := newLogger(cmd, v.GetBool("verbose"))

	name := v.GetString("topology")
	if name == "" {
		return fmt.Errorf("--topology is required")
	}
	kind, err := topology.ParseKind(name)
	if err != nil {
		return err
	}

	params, err := loadParams(v)
	if err != nil {
		return err
	}

	tc, err := selector.Select(kind, selector.Options{
		NumMains:           v.GetInt("num-mains"),
		NumCheckersPerMain: v.GetInt("num-checkers-per-main"),
	}, params, logger)
	if err != nil {
		return err
	}

	est, err := estimator.New(tc, logger)
	if err != nil {
		return err
	}

	if v.IsSet("record") {
		rec, err := recording.New(v.GetString("record"), tc, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.WithError(err).Error("failed to close recording")
			}
		}()
		est.AddSink(rec)
	}

	results, err := est.Run(cmd.Context(), estimator.Inputs{
		Paths:        splitList(v.GetString("csv")),
		EstimatePath: v.GetString("slow-noc-estimate"),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintln(out, r.String())
	}

	if path := v.GetString("dump"); path != "" {
		if err := dumpResults(path, results); err != nil {
			return err
		}
	}

	summary := est.GetSummary()
	logger.WithFields(logrus.Fields{
		"benchmarks": summary.Benchmarks,
		"routes":     summary.Routes,
		"duration":   summary.Duration,
	}).Debug("estimation finished")

	return nil
}

func dumpResults(path string, results []estimator.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	if err := recording.Dump(f, results, recording.DefaultDumpDepth); err != nil {
		f.Close()
		return fmt.Errorf("failed to dump results: %w", err)
	}

	return f.Close()
}
