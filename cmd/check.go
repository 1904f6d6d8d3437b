package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/dedup"
	"github.com/JakeFAU/keywatch/internal/notify"
	"github.com/JakeFAU/keywatch/internal/watch"
)

type checkOptions struct {
	mode     string
	keywords string
	target   string
}

// newCheckCmd performs a single pass without notifying anyone.
func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Runs one pass and prints the messages that would be sent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "keyword mode: ranking, trend or manual (defaults to run.mode)")
	cmd.Flags().StringVar(&opts.keywords, "keywords", "", "comma separated keywords for manual mode (defaults to run.keywords)")
	cmd.Flags().StringVar(&opts.target, "target", "", "listing URL to fetch (defaults to target.url)")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	rawMode := cfg.Run.Mode
	if opts.mode != "" {
		rawMode = opts.mode
	}
	mode, err := watch.ParseMode(rawMode)
	if err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	manual := cfg.Run.Keywords
	if opts.keywords != "" {
		manual = opts.keywords
	}
	target := cfg.Target.URL
	if opts.target != "" {
		target = opts.target
	}

	comps := buildComponents(cfg, logger)
	defer comps.close(logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.HTTPTimeout())
	defer cancel()

	res := comps.keywords.Resolve(ctx, mode, watch.SplitKeywords(manual))
	if res.Fallback {
		logger.Warn("keyword source failed; using fallback list", zap.Error(res.Err))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "keywords (%s): %v\n", res.Mode, res.Keywords)

	candidates, err := comps.fetcher.Fetch(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	hits := dedup.Match(candidates, res.Keywords, dedup.NewSeenSet(0))
	fmt.Fprintf(out, "%d titles, %d hits\n", len(candidates), len(hits))
	for _, hit := range hits {
		fmt.Fprintf(out, "\n%s\n", notify.FormatHit(hit))
	}
	return nil
}
