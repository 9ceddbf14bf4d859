package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"dupfinder/database"
	"dupfinder/logging"
	"dupfinder/matcher"
	"dupfinder/resolver"
	"dupfinder/review"
	"dupfinder/types"
	"dupfinder/utils"

	"github.com/spf13/cobra"
)

type findOptions struct {
	threshold string
	chain     bool
	print     bool
	delete    bool
	matchTime bool
}

func (a *app) newFindCmd() *cobra.Command {
	var opts findOptions
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find duplicate images",
		Long: `Find groups of duplicate images.

Without --threshold only identical fingerprints match. With --threshold N,
fingerprints differing in at most N bits match; false positives are possible.
--delete moves every duplicate but one per group to the trash and takes
priority over --print. Without either, the groups are served for review.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.find(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.threshold, "threshold", "", "Hamming distance in bits for fuzzy matching")
	f.BoolVar(&opts.chain, "chain", false, "With --threshold, merge groups that share near-duplicates")
	f.BoolVar(&opts.print, "print", false, "Only print the duplicate groups")
	f.BoolVar(&opts.delete, "delete", false, "Move all found duplicates to the trash")
	f.BoolVar(&opts.matchTime, "match-time", false, "Require equal capture times within a group")
	f.String("trash", resolver.DefaultTrash, "Where deleted files are moved")
	f.String("keep", string(resolver.KeepFirst), "Which file of a group survives: first, largest or earliest")
	f.String("addr", review.DefaultAddr, "Listen address of the review server")
	return cmd
}

func (a *app) find(cmd *cobra.Command, opts findOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	keep, err := resolver.ParseKeepPolicy(a.cfg.Keep)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := a.findGroups(ctx, cmd, store, opts)
	if err != nil {
		return err
	}

	res := resolver.New(store, a.cfg.Trash)
	res.Keep = keep

	switch {
	case opts.delete:
		summary := res.DeleteDuplicates(ctx, groups)
		a.metrics.RecordRelocations(summary.Deleted, summary.Failed)
		printOK(out, "Deleted %d/%d files", summary.Deleted, summary.Total())
		for _, failure := range summary.Failures {
			printWarn(out, "%v", failure)
		}
		return nil
	case opts.print:
		printGroups(out, groups)
		return nil
	}

	if len(groups) == 0 {
		printOK(out, "No duplicates found")
		return nil
	}
	printTitle(out, "Reviewing %d duplicate group%s at http://%s/groups (Ctrl+C to stop)",
		len(groups), utils.PluralS(len(groups)), a.cfg.Addr)
	return review.NewServer(groups, res, logging.Logger()).ListenAndServe(ctx, a.cfg.Addr)
}

func (a *app) findGroups(ctx context.Context, cmd *cobra.Command, store database.Store, opts findOptions) ([]types.DuplicateGroup, error) {
	if opts.threshold == "" {
		groups, err := matcher.FindExact(ctx, store, matcher.ExactOptions{MatchTime: opts.matchTime})
		if err != nil {
			return nil, err
		}
		a.metrics.RecordGroups("exact", len(groups))
		return groups, nil
	}

	threshold, err := utils.ParseThreshold(opts.threshold)
	if err != nil {
		return nil, err
	}
	if opts.matchTime {
		printWarn(cmd.ErrOrStderr(), "--match-time only applies to exact matching")
	}

	stderr := cmd.ErrOrStderr()
	groups, err := matcher.FindFuzzy(ctx, store, matcher.FuzzyOptions{
		Threshold: threshold,
		Chain:     opts.chain,
		Progress: func(scanned, total int) {
			if scanned%100 == 0 || scanned == total {
				fmt.Fprintf(stderr, "\rMatching: %d/%d", scanned, total)
				if scanned == total {
					fmt.Fprintln(stderr)
				}
			}
		},
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordGroups("fuzzy", len(groups))
	return groups, nil
}

// printGroups lists every group and its members, flagging missing files
func printGroups(w io.Writer, groups []types.DuplicateGroup) {
	for i, g := range groups {
		printTitle(w, "Group %d (%d files) %s", i+1, len(g.Items), dimStyle.Render(g.Key))
		for _, item := range g.Items {
			line := fmt.Sprintf("  %s  %s  %s  %s", item.FileName, utils.FormatSize(item.FileSize), item.ImageSize, item.CaptureTime)
			if !fileExists(item.FileName) {
				line += " " + warnStyle.Render("(missing)")
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, field("Number of duplicates", len(groups)))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
