// Package main provides ledgerctl, the operator CLI for the micropatrons
// ledger. It talks to the configured store directly, not to the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	app "micropatrons/internal"
	"micropatrons/internal/config"
	"micropatrons/internal/repository"
	"micropatrons/internal/seed"
	"micropatrons/internal/service"
	"micropatrons/internal/util"
)

const (
	Version = "0.1.0"
	appName = "ledgerctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		failColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is the store and service shared by every subcommand.
type session struct {
	store   repository.Store
	service service.LedgerService
}

func rootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
		sess     session
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate the micropatrons ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.LoadConfig(files...)
			if err != nil {
				return err
			}
			util.InitLogger(logLevel, "text")

			store, err := app.OpenStore(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			sess.store = store
			sess.service = service.NewLedgerService(store, service.WithLogger(util.GetLogger()))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if sess.store == nil {
				return nil
			}
			return sess.store.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		seedCmd(&sess),
		resetCmd(&sess),
		leaderboardCmd(&sess),
		victimsCmd(&sess),
		statsCmd(&sess),
		transferCmd(&sess),
		reportCmd(&sess),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	cmd.SetContext(context.Background())
	return cmd
}

func seedCmd(sess *session) *cobra.Command {
	var (
		file  string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the ledger from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(file)
			if err != nil {
				return err
			}
			apply := seed.Apply
			if reset {
				apply = seed.Reseed
			}
			result, err := apply(cmd.Context(), sess.store, fixture)
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Seeded %d users and %d transfers\n", result.Users, result.Transfers)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture file (defaults to the built-in population)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Wipe the ledger before seeding")
	return cmd
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return seed.Load(f)
}

func resetCmd(sess *session) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every account and activity record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			if err := sess.store.Reset(cmd.Context()); err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), "Ledger reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func leaderboardCmd(sess *session) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank accounts by balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := sess.service.Leaderboard(cmd.Context(), top)
			if err != nil {
				return err
			}
			renderLeaderboard(cmd.OutOrStdout(), board)
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of accounts to show (0 for all)")
	return cmd
}

func victimsCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "victims",
		Short: "Show who has paid OpSec penalties",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := sess.service.VictimStats(cmd.Context())
			if err != nil {
				return err
			}
			renderVictims(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func statsCmd(sess *session) *cobra.Command {
	var (
		days      int
		chartPath string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily transfer counts and volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := sess.service.ActivityStats(cmd.Context(), days)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), stats)

			if chartPath == "" {
				return nil
			}
			f, err := os.Create(chartPath)
			if err != nil {
				return fmt.Errorf("failed to create chart file: %w", err)
			}
			defer f.Close()
			if err := renderStatsChart(f, stats); err != nil {
				return fmt.Errorf("failed to render chart: %w", err)
			}
			dimColor.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chartPath)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", service.DefaultStatsDays, "Window size in days, today included")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Also write a PNG bar chart to this path")
	return cmd
}

func transferCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer SENDER RECEIVER AMOUNT",
		Short: "Move µPatrons between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return util.NewError(util.ErrInvalidInput, fmt.Sprintf("invalid amount %q", args[2]))
			}
			result, err := sess.service.Transfer(cmd.Context(), args[0], args[1], amount)
			if err != nil {
				return err
			}
			renderTransfer(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func reportCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "report VICTIM ATTACKER",
		Short: "Charge VICTIM the OpSec penalty in favour of ATTACKER",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := sess.service.ReportPenalty(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			renderTransfer(cmd.OutOrStdout(), result)
			return nil
		},
	}
}
