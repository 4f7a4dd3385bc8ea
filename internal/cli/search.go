package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericyum/tour-agent-frontend/internal/format"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/richtext"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

func newSearchCmd(a *app) *cobra.Command {
	values := map[search.Field]*string{}
	var page int

	cmd := &cobra.Command{
		Use:     "search",
		Short:   "Search festivals by region, category and status",
		GroupID: "discover",
		Args:    cobra.NoArgs,
		Example: "  festmoment search --area 경상남도 --status ONGOING",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}

			c := search.NewCoordinator(search.DefaultFilters(), svc.Search)
			// parents first, so their reset does not wipe an explicit child
			for _, field := range searchFields {
				if !cmd.Flags().Changed(flagName(field)) {
					continue
				}
				if err := c.Update(field, *values[field]); err != nil {
					return err
				}
			}
			c.SetPage(page)

			res, err := c.Search(ctx)
			if err != nil {
				return err
			}
			if a.flags.jsonOutput {
				return a.printJSON(res)
			}
			if len(res.Festivals) == 0 {
				fmt.Fprintln(a.opts.Out, "No festivals match.")
				return nil
			}
			t := newTable(fmt.Sprintf("%d festivals (page %d/%d)", res.Total, res.Page, max(res.TotalPages, 1)),
				"#", "Title", "Dates", "Status")
			today := a.opts.Now()
			for i, f := range res.Festivals {
				badge := format.FestivalStatus(f.StartDate, f.EndDate, today, a.flags.lang)
				t.add(strconv.Itoa(i+1), f.Title, format.FmtDateRange(f.StartDate, f.EndDate, a.flags.lang), badge.Label)
			}
			t.render(a.opts.Out)
			return nil
		},
	}
	for _, field := range searchFields {
		values[field] = new(string)
		cmd.Flags().StringVar(values[field], flagName(field), search.All, fmt.Sprintf("%s filter", field))
	}
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	return cmd
}

var searchFields = []search.Field{
	search.FieldArea,
	search.FieldSubArea,
	search.FieldMainCategory,
	search.FieldMediumCategory,
	search.FieldSmallCategory,
	search.FieldStatus,
}

func flagName(f search.Field) string {
	switch f {
	case search.FieldSubArea:
		return "sub-area"
	case search.FieldMainCategory:
		return "main-category"
	case search.FieldMediumCategory:
		return "medium-category"
	case search.FieldSmallCategory:
		return "small-category"
	default:
		return string(f)
	}
}

func newShowCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:     "show <title>",
		Short:   "Show a festival, course or facility",
		GroupID: "discover",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			k, err := itinerary.ParseKind(kind)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			d, err := svc.Details(ctx, k, args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonOutput {
				return a.printJSON(d)
			}

			t := newTable(d.Title(), "Field", "Value")
			for _, key := range []string{"addr1", "tel", "eventplace", "eventstartdate", "eventenddate", "mapx", "mapy"} {
				v := d.String(key)
				if v == "" {
					continue
				}
				if key == "eventstartdate" || key == "eventenddate" {
					v = format.FmtDate(v, a.flags.lang)
				}
				t.add(key, v)
			}
			t.render(a.opts.Out)
			if overview := richtext.PlainText(d.String("overview")); overview != "" {
				fmt.Fprintln(a.opts.Out)
				fmt.Fprintln(a.opts.Out, format.Truncate(overview, 400))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(itinerary.KindFestival), "festival, course or facility")
	return cmd
}
