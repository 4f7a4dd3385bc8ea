package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/format"
)

func newRankCmd(a *app) *cobra.Command {
	var numReviews, topN int
	cmd := &cobra.Command{
		Use:     "rank <title> <title>...",
		Short:   "Rank two or more festivals by visitor satisfaction",
		GroupID: "discover",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			courses, err := a.courses()
			if err != nil {
				return err
			}
			ranking, err := courses.Rank(ctx, args, numReviews, topN)
			if err != nil {
				return err
			}
			if a.flags.jsonOutput {
				return a.printJSON(ranking)
			}
			t := newTable("Ranking", "Rank", "Festival", "Score")
			for i, f := range ranking.Festivals {
				rank := f.Rank
				if rank == 0 {
					rank = i + 1
				}
				t.add(strconv.Itoa(rank), f.Title, format.Score(f.Score))
			}
			t.render(a.opts.Out)
			if ranking.Analysis != "" {
				fmt.Fprintln(a.opts.Out)
				return markdown(a.opts.Out, ranking.Analysis)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numReviews, "num-reviews", 5, "reviews analysed per festival (1-10)")
	cmd.Flags().IntVar(&topN, "top", 3, fmt.Sprintf("festivals to return (1-%d)", course.MaxTopN))
	return cmd
}
