package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ramonehamilton/mtga-synergy/internal/catalog"
	"github.com/ramonehamilton/mtga-synergy/internal/charts"
	"github.com/ramonehamilton/mtga-synergy/internal/storage/repository"
)

// Partner is a card paired with the queried card in stored labels.
type Partner struct {
	ID       uint64
	Name     string // empty if the catalog does not know the id
	Games    int64  // games with both cards
	P11      float64
	SynDelta float64
}

// DisplayName returns the card name, or its id when unnamed.
func (p Partner) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strconv.FormatUint(p.ID, 10)
}

// TopPartners returns the best partners of the named card from the latest
// stored label run.
func TopPartners(ctx context.Context, labels repository.LabelRepository, cat *catalog.Catalog, name string, limit int) ([]Partner, error) {
	id, ok := cat.ResolveID(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCard, name)
	}

	rows, err := labels.TopSynergies(ctx, int64(id), limit)
	if err != nil {
		return nil, err
	}

	partners := make([]Partner, 0, len(rows))
	for _, row := range rows {
		pid := uint64(row.Partner(int64(id)))
		pname, _ := cat.ResolveName(pid)
		partners = append(partners, Partner{
			ID:       pid,
			Name:     pname,
			Games:    row.N11,
			P11:      row.P11,
			SynDelta: row.SynDelta,
		})
	}
	return partners, nil
}

// PartnerChart renders partners as a horizontal bar chart of synergy deltas.
func PartnerChart(card string, partners []Partner, path string) error {
	data := make([]charts.DataPoint, len(partners))
	for i, p := range partners {
		data[i] = charts.DataPoint{Label: p.DisplayName(), Value: p.SynDelta}
	}
	cfg := charts.DefaultChartConfig()
	cfg.Title = "Top partners of " + card
	cfg.Subtitle = "synergy delta from stored labels"
	return charts.RenderFile(charts.SynergyChart(data, cfg), path)
}
