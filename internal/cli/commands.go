package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"EGXTicker/internal/api"
	"EGXTicker/internal/app"
	"EGXTicker/internal/config"
	"EGXTicker/internal/model"
	"EGXTicker/internal/notifier"
)

const defaultConfigPath = "configs/config.yaml"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "egxticker",
		Short: "EGXTicker - Egyptian Exchange price feed",
		Long: `EGXTicker scrapes the Egyptian Exchange price table, normalizes it and
serves it over HTTP, Redis and Telegram with fallback data when the exchange
is closed or unreachable.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newMarketCmd())

	cfgPath := defaultConfigPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	rootCmd.PersistentFlags().String("config", cfgPath, "Configuration file path")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before environment overrides")

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	var dotenv []string
	if envFile != "" {
		dotenv = append(dotenv, envFile)
	}
	cfg, err := config.Load(path, dotenv...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// newServeCmd creates the serve command
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the exchange and serve the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mock, _ := cmd.Flags().GetBool("mock")
			return runServe(cfg, mock)
		},
	}
	cmd.Flags().Bool("mock", false, "Serve built-in sample data instead of the exchange")
	return cmd
}

func runServe(cfg *config.Config, mock bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, tn, err := buildApp(ctx, cfg, mock)
	if err != nil {
		return err
	}
	defer a.Close()

	if tn != nil {
		go tn.StartPolling(ctx, notifier.NewCommands(a).Handle)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.Polling.RunOnStart {
		if err := a.Start(); err != nil {
			return err
		}
	}

	srv := api.NewServer(cfg.Server.Addr, api.NewHandlers(a, cfg.Server.RefreshEvery))
	log.Println("[INFO] EGXTicker is running. Press Ctrl+C to stop.")
	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Println("[INFO] EGXTicker stopped")
	return nil
}

// newFetchCmd creates the fetch command
func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one fetch cycle and print the result",
		Long: `Run one fetch cycle and print the result. Without --force a closed
market yields the fallback data without contacting the exchange.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			mock, _ := cmd.Flags().GetBool("mock")
			asJSON, _ := cmd.Flags().GetBool("json")

			col, err := newCollector(cfg, mock)
			if err != nil {
				return err
			}
			a := app.New(cmd.Context(), col, nil)
			defer a.Close()

			res := a.Fetch(cmd.Context(), force)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res.Snapshot.Filter(""))
			}
			return writeTable(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Bool("force", false, "Fetch even when the market is closed")
	cmd.Flags().Bool("mock", false, "Use built-in sample data instead of the exchange")
	cmd.Flags().Bool("json", false, "Print the records as a JSON array")
	return cmd
}

// newMarketCmd creates the market command
func newMarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show whether the market is open under the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			col, err := newCollector(cfg, true)
			if err != nil {
				return err
			}
			a := app.New(cmd.Context(), col, nil)
			defer a.Close()
			return writeJSON(cmd.OutOrStdout(), a.MarketStatus())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, res model.Result) error {
	fmt.Fprintf(w, "outcome: %s  stocks: %d", res.Outcome, len(res.Snapshot))
	if res.Reason != "" {
		fmt.Fprintf(w, "  reason: %s", res.Reason)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLAST\tCHANGE\tCHANGE %\tVOLUME")
	for _, r := range res.Snapshot {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ShortName, r.LastPrice, r.Change, r.ChangePercent, r.TradedVolume)
	}
	return tw.Flush()
}
