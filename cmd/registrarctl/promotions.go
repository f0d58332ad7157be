package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-registrar-api/internal/app"
)

func promotionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promotions",
		Short: "Waitlist promotion maintenance",
	}

	replay := &cobra.Command{
		Use:   "replay [section-id]",
		Short: "Promote waitlisted students into free seats",
		Long: `Replays waitlist promotion synchronously. With a section id only that
section is drained; otherwise every section with a free seat and a waiting
student is processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				sections := args
				if len(sections) == 0 {
					ids, err := c.Sections.ListPromotable(ctx)
					if err != nil {
						return fmt.Errorf("list promotable sections: %w", err)
					}
					sections = ids
				}

				total := 0
				for _, id := range sections {
					n, err := c.Promotions.Drain(ctx, id)
					if err != nil {
						return fmt.Errorf("drain section %s: %w", id, err)
					}
					if n > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: promoted %d\n", id, n)
					}
					total += n
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d sections checked, %d students promoted\n", len(sections), total)
				return nil
			})
		},
	}

	cmd.AddCommand(replay)
	return cmd
}
