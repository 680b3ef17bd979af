package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/export"
	"github.com/rovshanmuradov/solana-counter/internal/fees"
	"github.com/rovshanmuradov/solana-counter/internal/runner"
	"github.com/rovshanmuradov/solana-counter/internal/transaction"
	"github.com/rovshanmuradov/solana-counter/internal/wallet"
)

// SenderKeyEnv holds the transfer sender's secret key.
const SenderKeyEnv = "SENDER_PRIVATE_KEY"

var (
	priority   string
	autoUnits  bool
	airdropSOL string
	batchSize  int
	batchJobs  int
	exportFmt  string
	exportDir  string

	historyLimit int
)

var airdropCmd = &cobra.Command{
	Use:   "airdrop [address]",
	Short: "Request SOL from the faucet and wait for confirmation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		to, err := a.recipientOrPayer(args)
		if err != nil {
			return err
		}
		var lamports uint64
		if airdropSOL != "" {
			if lamports, err = fees.ParseSOL(airdropSOL); err != nil {
				return err
			}
		}
		return a.run(cmd.Context(), "airdrop", func(ctx context.Context, obs transaction.Observer) (string, error) {
			res, balance, err := a.runner.Airdrop(ctx, to, lamports, obs)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Airdrop confirmed: %s\nBalance: %s SOL", res.Signature, fees.LamportsToSOL(balance)), nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the SOL balance of an address or the payer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		owner, err := a.recipientOrPayer(args)
		if err != nil {
			return err
		}
		return a.run(cmd.Context(), "balance", func(ctx context.Context, _ transaction.Observer) (string, error) {
			lamports, err := a.runner.Balance(ctx, owner)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s: %s SOL", owner, fees.LamportsToSOL(lamports)), nil
		})
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new counter account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		payer, err := a.payer()
		if err != nil {
			return err
		}
		level, err := a.priority()
		if err != nil {
			return err
		}
		return a.run(cmd.Context(), "initialize counter", func(ctx context.Context, obs transaction.Observer) (string, error) {
			created, err := a.runner.Initialize(ctx, payer, level, obs)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Counter: %s\nSignature: %s\nCount: %d",
				created.Counter, created.Result.Signature, created.State.Value.Count), nil
		})
	},
}

var incrementCmd = &cobra.Command{
	Use:   "increment [counter]",
	Short: "Increment a counter",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		addr, err := a.runner.CounterAddress(firstArg(args))
		if err != nil {
			return err
		}
		payer, err := a.payer()
		if err != nil {
			return err
		}
		level, err := a.priority()
		if err != nil {
			return err
		}
		return a.run(cmd.Context(), "increment counter", func(ctx context.Context, obs transaction.Observer) (string, error) {
			inc, err := a.runner.Increment(ctx, payer, addr, level, autoUnits, obs)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Signature: %s\nCount: %d\nUnits consumed: %d\nEstimated fee: %d lamports",
				inc.Result.Signature, inc.Count, inc.Result.UnitsConsumed, inc.EstimatedFee), nil
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <recipient> <sol>",
	Short: "Transfer SOL through the submission engine",
	Long: `Transfer SOL from the sender to recipient. The sender key comes from
` + SenderKeyEnv + ` (base58 or JSON byte array, .env supported) and falls
back to the payer keypair.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		recipient, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid recipient: %w", err)
		}
		lamports, err := fees.ParseSOL(args[1])
		if err != nil {
			return err
		}
		sender, err := wallet.FromEnv(SenderKeyEnv)
		if err != nil {
			a.log.Debug("Sender key not in environment, using payer", zap.Error(err))
			if sender, err = a.payer(); err != nil {
				return err
			}
		}
		level, err := a.priority()
		if err != nil {
			return err
		}
		return a.run(cmd.Context(), "transfer", func(ctx context.Context, obs transaction.Observer) (string, error) {
			res, err := a.runner.Transfer(ctx, sender, recipient, lamports, level, obs)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Transferred %s SOL to %s\nSignature: %s",
				fees.LamportsToSOL(lamports), recipient, res.Signature), nil
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [counter]",
	Short: "Decode and print a counter account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		addr, err := a.runner.CounterAddress(firstArg(args))
		if err != nil {
			return err
		}
		return a.run(cmd.Context(), "fetch counter", func(ctx context.Context, _ transaction.Observer) (string, error) {
			view, err := a.runner.Fetch(ctx, addr)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Counter: %s\nCount: %d\nSlot: %d", view.Address, view.Value.Count, view.Slot), nil
		})
	},
}

var feesCmd = &cobra.Command{
	Use:   "fees [account...]",
	Short: "Estimate the compute unit price from recent prioritization fees",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		accounts := make([]solana.PublicKey, 0, len(args))
		for _, arg := range args {
			pk, err := solana.PublicKeyFromBase58(arg)
			if err != nil {
				return fmt.Errorf("invalid account %q: %w", arg, err)
			}
			accounts = append(accounts, pk)
		}
		return a.run(cmd.Context(), "fee estimate", func(ctx context.Context, _ transaction.Observer) (string, error) {
			price, err := a.runner.UnitPrice(ctx, accounts...)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Unit price: %d micro-lamports (%s)", price, a.cfg.ComputeBudget.FeeStrategy), nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [payer]",
	Short: "List recorded submissions, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		if a.history == nil {
			return fmt.Errorf("history is disabled: history_dsn is empty")
		}
		return a.run(cmd.Context(), "history", func(ctx context.Context, _ transaction.Observer) (string, error) {
			records, err := a.runner.History(ctx, firstArg(args), historyLimit)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			for _, rec := range records {
				fmt.Fprintf(&b, "%s  %-10s %-20s %-12s %s\n",
					rec.Started.Local().Format("2006-01-02 15:04:05"), rec.Operation, rec.Outcome, rec.Label, rec.Signature)
			}
			fmt.Fprintf(&b, "%d submissions", len(records))
			if exportFmt == "" || len(records) == 0 {
				return b.String(), nil
			}
			path, err := export.NewExporter(a.log.Logger).Export(records, export.ExportOptions{
				Format:    export.ExportFormat(strings.ToLower(exportFmt)),
				OutputDir: exportDir,
			})
			if err != nil {
				return b.String(), err
			}
			return b.String() + "\nReport: " + path, nil
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [counter]",
	Short: "Run concurrent increments and report every outcome",
	Long: `Run -n increments of one counter. With wallets_file configured, jobs
are spread over every wallet in it; otherwise the payer sends them all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		addr, err := a.runner.CounterAddress(firstArg(args))
		if err != nil {
			return err
		}
		payers, err := a.batchPayers()
		if err != nil {
			return err
		}
		level, err := a.priority()
		if err != nil {
			return err
		}
		jobs := runner.Jobs(batchSize, addr, payers)
		return a.run(cmd.Context(), fmt.Sprintf("batch of %d increments", len(jobs)), func(ctx context.Context, obs transaction.Observer) (string, error) {
			records, err := a.runner.Batch(ctx, jobs, runner.BatchOptions{
				Priority:  level,
				AutoUnits: autoUnits,
				Workers:   batchJobs,
			}, obs)
			if err != nil {
				return "", err
			}
			s := export.Summarize(records)
			out := fmt.Sprintf("Confirmed %d/%d (%.1f%%), avg %s, max %s",
				s.Confirmed, s.Total, s.SuccessRate, s.AvgDuration, s.MaxDuration)
			if exportFmt == "" {
				return out, nil
			}
			path, err := export.NewExporter(a.log.Logger).Export(records, export.ExportOptions{
				Format:    export.ExportFormat(strings.ToLower(exportFmt)),
				OutputDir: exportDir,
			})
			if err != nil {
				return out, err
			}
			return out + "\nReport: " + path, nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{initCmd, incrementCmd, transferCmd, batchCmd} {
		c.Flags().StringVarP(&priority, "priority", "p", "", "priority fee: low, medium, high, extreme or auto")
	}
	for _, c := range []*cobra.Command{incrementCmd, batchCmd} {
		c.Flags().BoolVar(&autoUnits, "auto-units", false, "size the unit limit from a simulation")
	}
	airdropCmd.Flags().StringVar(&airdropSOL, "sol", "", "amount in SOL (defaults to airdrop_sol)")
	batchCmd.Flags().IntVarP(&batchSize, "count", "n", 10, "number of increments")
	batchCmd.Flags().IntVarP(&batchJobs, "workers", "j", 0, "concurrent submissions (defaults to counter.batch_workers)")
	for _, c := range []*cobra.Command{batchCmd, historyCmd} {
		c.Flags().StringVar(&exportFmt, "export", "", "write a report: csv or json")
		c.Flags().StringVar(&exportDir, "out", "reports", "report directory")
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")

	rootCmd.AddCommand(airdropCmd, balanceCmd, initCmd, incrementCmd, transferCmd, fetchCmd, feesCmd, batchCmd, historyCmd)
}

// priority reads --priority, falling back to compute_budget.priority.
func (a *app) priority() (fees.PriorityLevel, error) {
	p := priority
	if p == "" {
		p = a.cfg.ComputeBudget.Priority
	}
	return fees.ParseLevel(p)
}

func (a *app) recipientOrPayer(args []string) (solana.PublicKey, error) {
	if len(args) == 1 {
		pk, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid address: %w", err)
		}
		return pk, nil
	}
	w, err := a.payer()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return w.PublicKey, nil
}

func (a *app) batchPayers() (map[string]*wallet.Wallet, error) {
	if a.cfg.WalletsFile != "" && walletName == "" {
		return wallet.LoadWallets(a.cfg.WalletsFile)
	}
	w, err := a.payer()
	if err != nil {
		return nil, err
	}
	name := walletName
	if name == "" {
		name = "payer"
	}
	return map[string]*wallet.Wallet{name: w}, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
