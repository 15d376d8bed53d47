package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// Lookup adapts a VenueProvider to outing.VenueLookup.
type Lookup struct {
	provider VenueProvider
}

func NewLookup(provider VenueProvider) *Lookup {
	return &Lookup{provider: provider}
}

// ResolveVenue returns the provider's best match for query. The RPC call has
// no deadline of its own, so a cancelled ctx abandons the wait.
func (l *Lookup) ResolveVenue(ctx context.Context, query string) (outing.Venue, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return outing.Venue{}, fmt.Errorf("%w: venue query is required", outing.ErrInvalidInput)
	}

	type result struct {
		venues []outing.Venue
		err    error
	}
	done := make(chan result, 1)
	go func() {
		venues, err := l.provider.Search(query, 1)
		done <- result{venues: venues, err: err}
	}()

	select {
	case <-ctx.Done():
		return outing.Venue{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return outing.Venue{}, fmt.Errorf("venue plugin: %w", r.err)
		}
		if len(r.venues) == 0 {
			return outing.Venue{}, fmt.Errorf("venue %q: %w", query, outing.ErrNotFound)
		}
		return r.venues[0], nil
	}
}
