package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/format"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	"github.com/ericyum/tour-agent-frontend/internal/observability"
)

func newCourseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "course",
		Short:   "Build and review a travel course",
		GroupID: "plan",
	}
	cmd.AddCommand(
		newCourseLsCmd(a),
		newCourseAddCmd(a),
		newCourseRmCmd(a),
		newCourseMvCmd(a),
		newCourseClearCmd(a),
		newCourseValidateCmd(a),
		newCourseNearbyCmd(a),
	)
	return cmd
}

func (a *app) printCourse(items []itinerary.Item) error {
	if a.flags.jsonOutput {
		if items == nil {
			items = []itinerary.Item{}
		}
		return a.printJSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.opts.Out, "The course is empty.")
		return nil
	}
	t := newTable(fmt.Sprintf("Course (%d)", len(items)), "#", "Title", "Kind", "Address")
	for i, it := range items {
		t.add(strconv.Itoa(i+1), it.Title, string(it.Kind), it.Attr("addr1"))
	}
	t.render(a.opts.Out)
	return nil
}

func newCourseLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the course",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			return a.printCourse(st.Items())
		},
	}
}

func newCourseAddCmd(a *app) *cobra.Command {
	var kind string
	var offline bool
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a place to the end of the course",
		Long:  "Add a place to the end of the course. Details are copied from the backend;\na title already in the course is left as it is.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			k, err := itinerary.ParseKind(kind)
			if err != nil {
				return err
			}
			title := strings.TrimSpace(args[0])
			item, err := itinerary.NewItem(k, title)
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			if st.Contains(title) {
				fmt.Fprintf(a.opts.Out, "%q is already in the course.\n", title)
				return nil
			}
			if !offline {
				svc, err := a.service()
				if err != nil {
					return err
				}
				item = withDetails(ctx, svc, item)
			}
			st.Add(item)
			fmt.Fprintf(a.opts.Out, "Added %q (%d in course).\n", title, st.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(itinerary.KindFestival), "festival, course or facility")
	cmd.Flags().BoolVar(&offline, "offline", false, "add the title alone without asking the backend")
	return cmd
}

// withDetails copies the entity's attributes into item. A lookup failure keeps
// the bare item.
func withDetails(ctx context.Context, svc backend.Service, item itinerary.Item) itinerary.Item {
	d, err := svc.Details(ctx, item.Kind, item.Title)
	if err != nil {
		observability.FromContext(ctx).Warn("details lookup failed; adding title only",
			zap.String("title", item.Title), zap.Error(err))
		return item
	}
	if d.Title() != item.Title {
		return item
	}
	full, err := itinerary.FromDetails(item.Kind, d)
	if err != nil {
		return item
	}
	return full
}

func newCourseRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <title>",
		Aliases: []string{"remove"},
		Short:   "Remove a place from the course",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			if !st.Remove(args[0]) {
				fmt.Fprintf(a.opts.Out, "%q is not in the course.\n", args[0])
				return nil
			}
			fmt.Fprintf(a.opts.Out, "Removed %q (%d in course).\n", args[0], st.Len())
			return nil
		},
	}
}

func newCourseMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Move the place at position from to position to (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[0])
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[1])
			}
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			if !st.Reorder(from-1, to-1) {
				fmt.Fprintln(a.opts.Out, "Nothing moved.")
				return nil
			}
			return a.printCourse(st.Items())
		},
	}
}

func newCourseClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every place from the course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			st.Clear()
			fmt.Fprintln(a.opts.Out, "Course cleared.")
			return nil
		},
	}
}

func newCourseValidateCmd(a *app) *cobra.Command {
	var duration string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Ask the backend to review the course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			courses, err := a.courses()
			if err != nil {
				return err
			}
			report, err := courses.Validate(ctx, st.Items(), duration)
			if err != nil {
				return describe(err)
			}
			if a.flags.jsonOutput {
				return a.printJSON(map[string]string{"duration": duration, "report": report})
			}
			return markdown(a.opts.Out, report)
		},
	}
	cmd.Flags().StringVar(&duration, "duration", course.DefaultDuration,
		fmt.Sprintf("trip length, one of %s", strings.Join(course.Durations, ", ")))
	return cmd
}

func newCourseNearbyCmd(a *app) *cobra.Command {
	var radius int
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Recommend places near the first stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.context(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.itinerary(ctx)
			if err != nil {
				return err
			}
			courses, err := a.courses()
			if err != nil {
				return err
			}
			nearby, err := courses.Nearby(ctx, st.Items(), radius)
			if err != nil {
				return describe(err)
			}
			if a.flags.jsonOutput {
				return a.printJSON(nearby)
			}
			if nearby.Empty() {
				fmt.Fprintf(a.opts.Out, "Nothing within %d km.\n", course.ClampRadiusKm(radius))
				return nil
			}
			t := newTable(fmt.Sprintf("Within %d km of %s", course.ClampRadiusKm(radius), st.Items()[0].Title),
				"Kind", "Title", "Distance")
			groups := []struct {
				kind    itinerary.Kind
				entries []backend.Details
			}{
				{itinerary.KindFestival, nearby.Festivals},
				{itinerary.KindCourse, nearby.Courses},
				{itinerary.KindFacility, nearby.Facilities},
			}
			for _, g := range groups {
				for _, d := range g.entries {
					dist, _ := d.Float("dist")
					t.add(string(g.kind), d.Title(), format.Distance(dist))
				}
			}
			t.render(a.opts.Out)
			return nil
		},
	}
	cmd.Flags().IntVar(&radius, "radius", course.DefaultRadiusKm, "search radius in km (1-20)")
	return cmd
}

// describe rewords precondition failures for the terminal.
func describe(err error) error {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, course.ErrEmptyItinerary):
		return errors.New("the course is empty; add a place with `festmoment course add`")
	case errors.Is(err, course.ErrInvalidDuration):
		return fmt.Errorf("unknown duration; use one of %s", strings.Join(course.Durations, ", "))
	case errors.Is(err, course.ErrMissingLocation):
		return errors.New("the first stop has no coordinates; move a place with a location to the top")
	case errors.As(err, &apiErr):
		return fmt.Errorf("backend: %s", backend.Message(err))
	}
	return err
}
