package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Marker cache maintenance",
}

var cacheExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write every cached marker as JSON (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, rt *runtime, st store.Store) error {
			snap, err := st.Export(ctx)
			if err != nil {
				return err
			}
			w := io.Writer(os.Stdout)
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			rt.logger.Info("markers exported", zap.Int("entries", snap.Len()), zap.Int("stable_ids", len(snap.StableIDIndex)))
			return writeJSON(w, snap)
		})
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge markers from an exported JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		snap := store.NewSnapshot()
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("parse snapshot: %w", err)
		}
		return withStore(cmd.Context(), func(ctx context.Context, rt *runtime, st store.Store) error {
			if err := st.Import(ctx, snap); err != nil {
				return err
			}
			fmt.Printf("Imported %d markers.\n", snap.Len())
			return nil
		})
	},
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every cached marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, rt *runtime, _ store.Store) error {
			if err := rt.engine.Manager().Reset(ctx); err != nil {
				return err
			}
			fmt.Println("Marker cache cleared.")
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheExportCmd, cacheImportCmd, cacheResetCmd)
	rootCmd.AddCommand(cacheCmd)
}

func withStore(ctx context.Context, fn func(context.Context, *runtime, store.Store) error) error {
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.close()

	st, err := rt.engine.Manager().Store()
	if err != nil {
		return err
	}
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("marker store unavailable: %w", err)
	}
	return fn(ctx, rt, st)
}
