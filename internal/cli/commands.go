package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexTrader/config"
	"github.com/dyike/CortexTrader/consts"
	"github.com/dyike/CortexTrader/internal/audit"
	"github.com/dyike/CortexTrader/internal/display"
	"github.com/dyike/CortexTrader/internal/logger"
	"github.com/dyike/CortexTrader/internal/storage"
	"github.com/dyike/CortexTrader/internal/trading"
	"github.com/dyike/CortexTrader/models"
)

type rootOptions struct {
	configPath string
	debug      bool

	buyPercent    float64
	sellPercent   float64
	date          string
	broker        string
	dryRun        bool
	decisions     map[string]string
	decisionsFile string
	decisionURL   string
	sizing        string
	tradeLog      string
	yes           bool
	interactive   bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cortextrader [TICKERS...]",
		Short: "CortexTrader - turn trading decisions into broker orders",
		Long: `CortexTrader asks a decision source for a BUY/SELL/HOLD call on each ticker,
sizes an order from the account's cash or position, submits it to the broker and
appends every attempt to a CSV trade log.
Example: cortextrader NU AAPL --buy-percent 0.05 --decision NU=BUY`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrade(cmd, opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.Float64Var(&opts.buyPercent, "buy-percent", consts.DefaultBuyFraction, "Fraction of available cash to spend on each BUY")
	flags.Float64Var(&opts.sellPercent, "sell-percent", consts.DefaultSellFraction, "Fraction of the held position to sell on each SELL")
	flags.StringVar(&opts.date, "date", "", "Trade date in YYYY-MM-DD format (today if not provided)")
	flags.StringVar(&opts.broker, "broker", "", "Broker to trade with: alpaca or paper")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Trade against an in-memory paper account")
	flags.StringToStringVar(&opts.decisions, "decision", nil, "Fixed decision per ticker, e.g. --decision NU=BUY,AAPL=SELL")
	flags.StringVar(&opts.decisionsFile, "decisions-file", "", "YAML or JSON file of decisions keyed by ticker")
	flags.StringVar(&opts.decisionURL, "decision-url", "", "Base URL of the decision service")
	flags.StringVar(&opts.sizing, "sizing", "", "BUY sizing mode: notional or shares")
	flags.StringVar(&opts.tradeLog, "trade-log", "", "Path of the CSV trade log")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Do not ask before trading against a live account")
	flags.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for tickers and date")

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")

	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig layers command-line flags over the file and environment.
// Only flags the user actually set take effect.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("buy-percent") {
		cfg.BuyFraction = opts.buyPercent
	}
	if flags.Changed("sell-percent") {
		cfg.SellFraction = opts.sellPercent
	}
	if flags.Changed("broker") {
		cfg.Broker = strings.ToLower(opts.broker)
	}
	if opts.dryRun {
		cfg.Broker = consts.BrokerPaper
	}
	if flags.Changed("decisions-file") {
		cfg.DecisionsFile = opts.decisionsFile
	}
	if flags.Changed("decision-url") {
		cfg.DecisionURL = opts.decisionURL
	}
	if flags.Changed("sizing") {
		cfg.SizingMode = strings.ToLower(opts.sizing)
	}
	if flags.Changed("trade-log") {
		cfg.TradeLogPath = opts.tradeLog
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func runTrade(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, runID := logger.New(logger.Options{
		Level:    cfg.LogLevel,
		FileName: cfg.LogFile,
		Debug:    cfg.Debug,
	})
	defer func() { _ = log.Sync() }()

	tickers := args
	date := opts.date
	if opts.interactive {
		DisplayWelcomeBanner(cmd.OutOrStdout())
		if len(tickers) == 0 {
			if tickers, err = PromptForTickers(cfg.DefaultTickers); err != nil {
				return err
			}
		}
		if date == "" {
			if date, err = PromptForTradeDate(); err != nil {
				return err
			}
		}
	}
	if len(tickers) == 0 {
		tickers = cfg.DefaultTickers
	}
	if date == "" {
		date = time.Now().Format(consts.DateLayout)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	DisplayRunHeader(cmd.OutOrStdout(), cfg, tickers, date, runID)

	session := trading.NewTradingSession(cfg, tickers, date,
		trading.WithDecisions(opts.decisions),
		trading.WithAssumeYes(opts.yes),
		trading.WithConfirm(ConfirmLiveTrading),
		trading.WithSessionLogger(log),
		trading.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))

	// Per-ticker failures are in the summary and the trade log; they do not
	// change the exit status.
	if _, err := session.Execute(ctx); err != nil {
		return fmt.Errorf("trading run failed: %w", err)
	}
	return nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "CortexTrader %s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "Decision-to-order execution engine")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Show, validate and initialize CortexTrader configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return validateConfig(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			manager, err := config.NewManager(
				config.WithConfigPath(opts.configPath),
				config.WithInitialConfig(cfg))
			if err != nil {
				return fmt.Errorf("init config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration file: %s\n", manager.Path())
			fmt.Fprintln(cmd.OutOrStdout(), "💡 Credentials are read from the environment and never written to this file.")
			return nil
		},
	})

	return configCmd
}

// showConfig displays the current configuration with secrets masked.
func showConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "📋 Current CortexTrader Configuration:")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintln(w, string(data))
	fmt.Fprintln(w)
	if cfg.IsPaper() {
		fmt.Fprintln(w, "Account:              📝 Paper")
	} else {
		fmt.Fprintln(w, "Account:              ⚠️  LIVE")
	}
	if cfg.HasLongportCredentials() {
		fmt.Fprintln(w, "Longport API:         ✅ Configured")
	} else {
		fmt.Fprintln(w, "Longport API:         ❌ Not configured")
	}
	return nil
}

// validateConfig validates the configuration and credentials
func validateConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "🔍 Validating CortexTrader Configuration...")
	fmt.Fprintln(w, "═══════════════════════════════════════")

	fmt.Fprint(w, "⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "🔑 Checking broker credentials... ")
	if err := cfg.ValidateCredentials(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(w, "❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(w, "✅")

	warnings := cfg.Warnings()
	for _, warning := range warnings {
		fmt.Fprintf(w, "  ⚠️  %s\n", warning)
	}

	fmt.Fprintln(w)
	if len(warnings) == 0 {
		fmt.Fprintln(w, "✅ Configuration validation completed successfully!")
	} else {
		fmt.Fprintf(w, "⚠️  Configuration validation completed with %d warnings.\n", len(warnings))
	}
	return nil
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		dbPath string
		ticker string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded trade attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.TradeJournalDB
			}

			var records []models.TradeLogRecord
			if dbPath != "" {
				records, err = journalHistory(cmd, dbPath, ticker, limit)
			} else {
				records, err = csvHistory(cfg.TradeLogPath, ticker, limit)
			}
			if err != nil {
				return err
			}
			display.RenderHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records to show (0 for all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Read from this SQLite trade journal instead of the CSV log")
	cmd.Flags().StringVar(&ticker, "ticker", "", "Only show records for this ticker")
	return cmd
}

func journalHistory(cmd *cobra.Command, dbPath, ticker string, limit int) ([]models.TradeLogRecord, error) {
	store, err := storage.NewTradeStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	defer store.Close()
	return store.ListTrades(cmd.Context(), storage.TradeFilter{Ticker: ticker, Limit: limit})
}

func csvHistory(path, ticker string, limit int) ([]models.TradeLogRecord, error) {
	all, err := audit.ReadCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	var out []models.TradeLogRecord
	for i := len(all) - 1; i >= 0; i-- {
		if ticker != "" && all[i].Ticker != ticker {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
