package sponsors

import (
	"context"
	"fmt"
)

// Querier defines what the repository needs from the campaign store
type Querier interface {
	ListActiveCampaigns(ctx context.Context) ([]Campaign, error)
}

type Repository struct {
	queries Querier
}

func NewRepository(querier Querier) *Repository {
	return &Repository{queries: querier}
}

// ActiveSponsors maps every slot to its sponsor. The earliest active campaign
// for a slot wins; slots without one are returned disabled.
func (r *Repository) ActiveSponsors(ctx context.Context) (map[Slot]Sponsor, error) {
	campaigns, err := r.queries.ListActiveCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active campaigns: %w", err)
	}

	out := make(map[Slot]Sponsor, len(Slots))
	for _, s := range Slots {
		out[s] = Sponsor{}
	}
	for _, c := range campaigns {
		current, known := out[c.Slot]
		if !known || current.Enabled {
			continue
		}
		out[c.Slot] = Sponsor{
			Enabled: true,
			Name:    c.Name,
			Logo:    c.Logo,
			URL:     c.URL,
			Callout: c.Callout,
		}
	}
	return out, nil
}
