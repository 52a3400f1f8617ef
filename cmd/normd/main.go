package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/model"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normd"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/normopt"
	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/config"
	"github.com/GoSim-25-26J-441/norm-optimizer/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	httpAddr   string
	grpcAddr   string
	logLevel   string
	logFile    string
	// optimize overrides
	optimizerClass string
	seed           int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "normd",
		Short:         "value-alignment norm optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config/normd.yaml", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path, rotated; overrides config")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP and gRPC APIs",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address; overrides config")
	serveCmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address, empty disables gRPC; overrides config")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "run one optimization and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE:  runOptimize,
	}
	optimizeCmd.Flags().StringVar(&optimizerClass, "optimizer", "", "optimizer identifier; overrides config")
	optimizeCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 keeps the config value")

	optimizersCmd := &cobra.Command{
		Use:   "optimizers",
		Short: "list the available optimizers and their options",
		Args:  cobra.NoArgs,
		RunE:  listOptimizers,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list the registered models and values",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	rootCmd.AddCommand(serveCmd, optimizeCmd, optimizersCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the config file and installs the default logger. The returned
// function closes the log file.
func setup(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Logging.File = logFile
	}

	log, closer := logger.FromOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	logger.SetDefault(log)
	return cfg, func() { _ = closer.Close() }, nil
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	if optimizerClass != "" {
		cfg.Optimizer.Class = optimizerClass
	}
	if seed != 0 {
		cfg.Seed = seed
	}

	optimizers := search.DefaultRegistry()
	state, err := normd.BuildState(cfg, model.DefaultRegistry(), optimizers)
	if err != nil {
		return err
	}

	res, err := normopt.New(optimizers).Optimize(cmd.Context(), state.Problem())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func listOptimizers(cmd *cobra.Command, _ []string) error {
	registry := search.DefaultRegistry()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, id := range registry.IDs() {
		spec, err := registry.Spec(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", spec.ID, strings.Join(spec.Aliases, ","), spec.Doc)
		for _, opt := range spec.Schema {
			fmt.Fprintf(w, "  %s\t%s = %v\t%s\n", opt.Name, opt.Kind, opt.Default, opt.Doc)
		}
	}
	return w.Flush()
}

func listModels(cmd *cobra.Command, _ []string) error {
	registry := model.DefaultRegistry()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "models:", strings.Join(registry.Models(), ", "))
	fmt.Fprintln(out, "values:", strings.Join(registry.Values(), ", "))
	return nil
}
