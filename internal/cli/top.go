package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/catalog"
	"github.com/ramonehamilton/mtga-synergy/internal/pipeline"
)

func (a *app) topCmd() *cobra.Command {
	var (
		cardsPath string
		limit     int
		chart     string
	)

	cmd := &cobra.Command{
		Use:   "top <card name>",
		Short: "List the best partners of a card from stored labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")

			cat, err := catalog.Load(cardsPath)
			if err != nil {
				return err
			}
			store, err := pipeline.OpenStore(a.cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			partners, err := pipeline.TopPartners(cmd.Context(), store.Labels, cat, name, limit)
			if err != nil {
				return err
			}
			if len(partners) == 0 {
				printf(cmd, "no stored labels for %s\n", name)
				return nil
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%-32s %8s %8s %10s\n", "partner", "games", "p11", "syn_delta")
			for _, p := range partners {
				_, _ = fmt.Fprintf(w, "%-32s %8d %8.4f %+10.6f\n", p.DisplayName(), p.Games, p.P11, p.SynDelta)
			}

			if chart != "" {
				return pipeline.PartnerChart(name, partners, chart)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cardsPath, "cards", "", "cards CSV used to resolve names")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of partners to show")
	cmd.Flags().StringVar(&chart, "chart", "", "write an HTML bar chart to this file")
	_ = cmd.MarkFlagRequired("cards")
	return cmd
}
