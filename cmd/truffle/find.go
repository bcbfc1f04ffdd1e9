package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/BaSui01/truffle/browser"
)

var findFlags struct {
	url    string
	prompt string
	format string
}

var errNoModel = errors.New("find needs oracle.model.base_url and oracle.model.model in the config")

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the elements a prompt describes",
	Long: `Searches the page's accessibility tree, asking the configured model
whether each subtree matches the prompt. Results are never cached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFind(cmd.Context())
	},
}

func init() {
	f := findCmd.Flags()
	f.StringVar(&findFlags.url, "url", "", "Page URL")
	f.StringVar(&findFlags.prompt, "prompt", "", "Description of the element to find")
	f.StringVar(&findFlags.format, "format", formatText, "Output format: text, json, markdown")
	_ = findCmd.MarkFlagRequired("url")
	_ = findCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(findCmd)
}

func runFind(ctx context.Context) error {
	if err := checkFormat(findFlags.format); err != nil {
		return err
	}
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.close()
	if !rt.cfg.Oracle.Configured() {
		return errNoModel
	}

	launcher := browser.NewLauncher(rt.cfg.Browser, rt.logger)
	defer launcher.Close()
	page, err := launcher.Open(ctx, findFlags.url)
	if err != nil {
		return err
	}
	defer page.Close()

	res, err := rt.engine.FindByPrompt(ctx, page, findFlags.prompt)
	if err != nil {
		return err
	}
	report, err := newFindReport(ctx, findFlags.url, findFlags.prompt, res)
	if err != nil {
		return err
	}
	return writeFind(os.Stdout, findFlags.format, report)
}
