package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/truffle/browser"
	"github.com/BaSui01/truffle/locator"
)

var listFlags struct {
	urls     []string
	stableID string
	force    bool
	hints    []string
	mode     string
	format   string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Detect the main list on one or more pages",
	Long: `Opens each URL in a pooled browser tab and detects its main list.
A cached marker is reused when the page has been seen before.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context())
	},
}

func init() {
	f := listCmd.Flags()
	f.StringSliceVar(&listFlags.urls, "url", nil, "Page URL (repeatable)")
	f.StringVar(&listFlags.stableID, "stable-id", "", "Also cache the marker under this id")
	f.BoolVar(&listFlags.force, "force", false, "Skip the cached marker")
	f.StringSliceVar(&listFlags.hints, "hints", nil, "Texts of a few list items")
	f.StringVar(&listFlags.mode, "mode", string(locator.ModeAuto), "Detection mode: auto, structural, inferred")
	f.StringVar(&listFlags.format, "format", formatText, "Output format: text, json, markdown")
	_ = listCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) error {
	mode, err := locator.ParseMode(listFlags.mode)
	if err != nil {
		return err
	}
	if err := checkFormat(listFlags.format); err != nil {
		return err
	}
	if listFlags.stableID != "" && len(listFlags.urls) > 1 {
		return fmt.Errorf("--stable-id needs exactly one --url")
	}

	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.close()

	opts := []locator.FindOption{locator.WithMode(mode)}
	if listFlags.stableID != "" {
		opts = append(opts, locator.WithStableID(listFlags.stableID))
	}
	if listFlags.force {
		opts = append(opts, locator.WithForceDetect())
	}
	if len(listFlags.hints) > 0 {
		opts = append(opts, locator.WithHints(listFlags.hints...))
	}

	launcher := browser.NewLauncher(rt.cfg.Browser, rt.logger)
	defer launcher.Close()
	pool := browser.NewPagePool(launcher.Factory(), rt.cfg.Browser.PoolSize, rt.logger)
	defer pool.Close()

	reports := make([]*listReport, len(listFlags.urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(rt.cfg.Browser.PoolSize, 1))
	for i, url := range listFlags.urls {
		g.Go(func() error {
			return pool.With(gctx, func(page browser.PooledPage) error {
				if err := page.Navigate(gctx, url); err != nil {
					return fmt.Errorf("open %s: %w", url, err)
				}
				res, err := rt.engine.FindList(gctx, page, opts...)
				if err != nil {
					return fmt.Errorf("%s: %w", url, err)
				}
				rt.logger.Info("list detected",
					zap.String("url", url),
					zap.String("source", string(res.Source)),
					zap.Int("items", len(res.Items)),
				)
				reports[i], err = newListReport(gctx, url, res)
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, r := range reports {
		if err := writeList(os.Stdout, listFlags.format, r); err != nil {
			return err
		}
	}
	return nil
}
