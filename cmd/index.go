package cmd

import (
	"fmt"
	"time"

	"dupfinder/database"
	"dupfinder/imageprocessor"
	"dupfinder/scanner"
	"dupfinder/signalhandler"
	"dupfinder/types"
	"dupfinder/utils"

	"github.com/spf13/cobra"
)

func (a *app) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Index the images under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			hasher, err := imageprocessor.HasherByName(a.cfg.Hasher)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := imageprocessor.NewEngine(hasher)
			reader, closeReader := imageprocessor.DefaultCaptureTimeReader()
			defer closeReader()
			engine.Metadata = reader

			s := scanner.New(store, engine)
			s.Workers = a.cfg.Parallel
			s.Progress = cmd.ErrOrStderr()
			s.Observer = a.metrics

			printTitle(out, "Indexing %d path%s with %d workers (%s)", len(args), utils.PluralS(len(args)), s.Workers, hasher.Name())
			stats, err := s.Add(ctx, args)
			if err != nil {
				return err
			}

			printOK(out, "Indexing finished in %v", stats.Elapsed.Round(time.Millisecond))
			fmt.Fprintln(out, "  "+field("Found", stats.Found))
			fmt.Fprintln(out, "  "+field("Indexed", stats.Indexed))
			fmt.Fprintln(out, "  "+field("Already indexed", stats.Skipped))
			fmt.Fprintln(out, "  "+field("Failed", stats.Failed))
			return nil
		},
	}
	cmd.Flags().Int("parallel", signalhandler.GetOptimalProcs(), "Number of images fingerprinted in parallel")
	cmd.Flags().String("hasher", "phash", "Perceptual hash: phash or dct")
	return cmd
}

func (a *app) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>...",
		Short: "Drop the records of the images under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := scanner.New(store, nil).Remove(ctx, args)
			if err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "Removed %d record%s", removed, utils.PluralS(int(removed)))
			return nil
		},
	}
}

func (a *app) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Drop(ctx); err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "Database cleared")
			return nil
		},
	}
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.Scan(ctx, func(rec types.FingerprintRecord) error {
				fmt.Fprintf(out, "%s\n  %s %s  %s %s  %s %s  %s %s\n",
					rec.Path,
					dimStyle.Render("hash"), rec.Fingerprint,
					dimStyle.Render("size"), utils.FormatSize(rec.FileSize),
					dimStyle.Render("image"), rec.ImageSize,
					dimStyle.Render("taken"), rec.CaptureTime)
				return nil
			})
			if err != nil {
				return err
			}

			stats, err := database.GetScanStats(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, field("Total", stats.TotalImages))
			fmt.Fprintln(out, field("Unique fingerprints", stats.UniqueHashes))
			fmt.Fprintln(out, field("Total size", utils.FormatSize(stats.TotalBytes)))
			return nil
		},
	}
}

func (a *app) newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Drop the records of files that no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := scanner.New(store, nil).Cleanup(ctx)
			if err != nil {
				return err
			}
			if removed > 0 {
				printWarn(cmd.OutOrStdout(), "Removed %d stale record%s", removed, utils.PluralS(int(removed)))
			} else {
				printOK(cmd.OutOrStdout(), "No stale records")
			}
			return nil
		},
	}
}
