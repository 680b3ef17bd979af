// ====================================
// File: cmd/counter/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/config"
	"github.com/rovshanmuradov/solana-counter/internal/logger"
	"github.com/rovshanmuradov/solana-counter/internal/runner"
	"github.com/rovshanmuradov/solana-counter/internal/storage"
	"github.com/rovshanmuradov/solana-counter/internal/storage/gormdb"
	"github.com/rovshanmuradov/solana-counter/internal/transaction"
	"github.com/rovshanmuradov/solana-counter/internal/ui"
	"github.com/rovshanmuradov/solana-counter/internal/wallet"
)

var (
	configPath string
	envFile    string
	debug      bool
	useTUI     bool
	keypair    string
	walletName string
)

var rootCmd = &cobra.Command{
	Use:   "counter",
	Short: "Submit transactions to the Solana counter program",
	Long: `counter builds, simulates, signs, sends and confirms transactions
against the counter program, and decodes the counter account afterwards.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with secrets")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "show pipeline progress in a terminal UI")
	rootCmd.PersistentFlags().StringVarP(&keypair, "keypair", "k", "", "payer keypair file (overrides keypair_path)")
	rootCmd.PersistentFlags().StringVarP(&walletName, "wallet", "w", "", "payer name from wallets_file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app is what every subcommand needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	logs    *logger.LogBuffer
	runner  *runner.Runner
	history storage.Storage
}

func setup(ctx context.Context) (*app, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if keypair != "" {
		cfg.KeypairPath = keypair
	}

	logCfg := &logger.Config{
		LogFile:     cfg.Logging.File,
		MaxSize:     cfg.Logging.MaxSizeMB,
		MaxAge:      cfg.Logging.MaxAgeDays,
		MaxBackups:  cfg.Logging.MaxBackups,
		Compress:    cfg.Logging.Compress,
		Development: debug || cfg.Logging.Debug,
		Pretty:      !(debug || cfg.Logging.Debug),
	}
	var logs *logger.LogBuffer
	if useTUI {
		logs = logger.NewLogBuffer(500)
		logCfg.Buffer = logs
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	masked := make([]string, len(cfg.RPCList))
	for i, u := range cfg.RPCList {
		masked[i] = config.MaskRPCForLogging(u)
	}
	log.Debug("Configuration loaded",
		zap.Strings("rpc", masked),
		zap.String("commitment", cfg.Commitment))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var opts []runner.Option
	var history storage.Storage
	if cfg.HistoryDSN != "" {
		if history, err = gormdb.NewStorage(cfg.HistoryDSN, log.Logger); err != nil {
			return nil, err
		}
		opts = append(opts, runner.WithHistory(history))
	}
	r, err := runner.Dial(cfg, log.Logger, reg, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		runner.ServeMetrics(ctx, cfg.MetricsAddr, reg, log.Logger)
	}
	return &app{cfg: cfg, log: log, logs: logs, runner: r, history: history}, nil
}

// payer resolves --wallet against wallets_file, or loads the keypair file.
func (a *app) payer() (*wallet.Wallet, error) {
	if walletName == "" {
		return wallet.FromKeypairFile(a.cfg.KeypairPath)
	}
	if a.cfg.WalletsFile == "" {
		return nil, fmt.Errorf("--wallet %q given but wallets_file is not configured", walletName)
	}
	wallets, err := wallet.LoadWallets(a.cfg.WalletsFile)
	if err != nil {
		return nil, err
	}
	w, ok := wallets[walletName]
	if !ok {
		return nil, fmt.Errorf("wallet %q not found in %s", walletName, a.cfg.WalletsFile)
	}
	return w, nil
}

// run executes work, behind the progress view when --tui is set.
func (a *app) run(ctx context.Context, title string, work func(ctx context.Context, observer transaction.Observer) (string, error)) error {
	defer func() {
		if a.history != nil {
			_ = a.history.Close()
		}
		runner.Shutdown(a.log)
	}()
	done := a.log.Track(title)

	var err error
	if useTUI {
		err = ui.Run(ctx, title, a.logs, work)
	} else {
		var summary string
		summary, err = work(ctx, nil)
		if summary != "" {
			fmt.Println(summary)
		}
	}
	done(err)
	return err
}
