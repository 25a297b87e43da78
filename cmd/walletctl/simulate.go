package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"growth-wallet/internal/config"
	"growth-wallet/internal/domain"
	"growth-wallet/internal/reporting"
	"growth-wallet/internal/storage/memory"
	"growth-wallet/internal/strategy"
	"growth-wallet/internal/verification"
	"growth-wallet/internal/wallet"
)

// randomStrategy selects a strategy per week like the autopilot does.
const randomStrategy = "random"

type simulateOptions struct {
	productID string
	weeks     int
	strategy  string
	seed      int64
	format    string
	output    string
	verify    bool

	// sim holds the WALLET_* simulation overrides; zero fields use defaults.
	sim domain.Config
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a product simulation for a number of weeks and print a report",
		Example: `  walletctl simulate --product madhubani-painting --weeks 12
  walletctl simulate --strategy balanced --weeks 8 --format csv --output run.csv
  walletctl simulate --weeks 20 --format pretty --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := config.LoadCatalog(catalogFile)
			if err != nil {
				return err
			}
			opts.sim, err = config.LoadSimulation()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.output != "" {
				f, err := os.Create(opts.output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return runSimulate(cmd.Context(), products, opts, out)
		},
	}

	cmd.Flags().StringVarP(&opts.productID, "product", "p", "", "Product id (default: first catalog product)")
	cmd.Flags().IntVarP(&opts.weeks, "weeks", "n", 10, "Number of weeks to simulate")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", randomStrategy, "Strategy name, or \"random\" for the autopilot set")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (default: time based)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "md", "Report format: md, pretty, csv or text")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Replay the recorded history and fail on any divergence")

	return cmd
}

func runSimulate(ctx context.Context, products []domain.Product, opts simulateOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.weeks < 0 {
		return fmt.Errorf("weeks must be non-negative, got %d", opts.weeks)
	}
	switch opts.format {
	case "md", "pretty", "csv", "text":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if len(products) == 0 {
		return fmt.Errorf("empty catalog")
	}

	cfg := opts.sim.WithDefaults()
	pick, err := strategyPicker(opts, cfg)
	if err != nil {
		return err
	}

	history := memory.NewHistoryStore()
	outcomes := memory.NewOutcomeStore()
	svc, err := wallet.New(wallet.Options{
		Products: memory.NewProductStore(),
		History:  history,
		Outcomes: outcomes,
		Logger:   logger,
		Config:   cfg,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.SeedCatalog(ctx, products); err != nil {
		return err
	}

	productID := opts.productID
	if productID == "" {
		productID = products[0].ID
	}
	sess, err := svc.SelectProduct(ctx, productID)
	if err != nil {
		return err
	}

	for week := 1; week <= opts.weeks; week++ {
		res, err := svc.Step(ctx, pick())
		if err != nil {
			return err
		}
		if opts.format == "text" {
			fmt.Fprintf(w, "week %3d  %-20s price %10s  sales %3d  earnings %12s  profit %12s\n",
				week, res.Strategy,
				humanize.Commaf(res.After.Price), res.After.Sales,
				humanize.Commaf(res.After.Earnings), humanize.Commaf(res.After.TotalProfit))
		}
	}
	if opts.verify {
		report, err := verification.NewReplayVerifier(history, cfg).
			WithOutcomes(outcomes).
			VerifySession(ctx, sess.SessionID, sess.Product)
		if err != nil {
			return err
		}
		if !report.Match {
			d := report.Divergences[0]
			return fmt.Errorf("replay diverged in %d field(s), first at week %d %s: stored %v, replayed %v",
				len(report.Divergences), d.Week, d.Field, d.Expected, d.Actual)
		}
		logger.Debug("replay verified",
			zap.Int("weeks", report.WeeksVerified),
			zap.Int("outcomes", report.OutcomesVerified),
		)
	}
	if opts.format == "text" {
		return nil
	}

	state, err := svc.State()
	if err != nil {
		return err
	}
	report, err := reporting.NewGenerator(history, outcomes).Generate(ctx, sess.SessionID, sess.Product, state)
	if err != nil {
		return err
	}

	var doc string
	switch opts.format {
	case "csv":
		doc = reporting.RenderCSV(report)
	case "pretty":
		doc, err = renderPretty(reporting.RenderMarkdown(report))
		if err != nil {
			return err
		}
	default:
		doc = reporting.RenderMarkdown(report)
	}
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Debug("simulation finished", zap.String("product_id", productID), zap.Int("weeks", opts.weeks))
	return nil
}

// renderPretty renders Markdown for a terminal.
func renderPretty(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

// strategyPicker returns a function yielding the strategy name for each week.
func strategyPicker(opts simulateOptions, cfg domain.Config) (func() string, error) {
	if opts.strategy != randomStrategy {
		if _, err := strategy.Parse(opts.strategy); err != nil {
			return nil, err
		}
		name := opts.strategy
		return func() string { return name }, nil
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	names := cfg.AutopilotStrategies
	return func() string { return names[rng.Intn(len(names))] }, nil
}
