// Package contract provides contract test assertions for venue provider
// plugins.
package contract

import (
	"fmt"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/plugin"
)

// unknownQuery is assumed to match nothing in any real catalog.
const unknownQuery = "zz-no-such-venue-zz"

// Result captures the outcome of a single contract assertion.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

// Probe configures the provider under test and names a query it is known to
// resolve.
type Probe struct {
	Config     map[string]string
	KnownQuery string
}

// AssertInitSuccess verifies that Init accepts the probe config.
func AssertInitSuccess(p plugin.VenueProvider, probe Probe) Result {
	if err := p.Init(probe.Config); err != nil {
		return Result{Name: "InitSuccess", Passed: false, Message: fmt.Sprintf("Init failed: %v", err)}
	}
	return Result{Name: "InitSuccess", Passed: true, Message: "Init succeeded"}
}

// AssertSearchKnownVenue verifies the known query resolves to complete venues.
func AssertSearchKnownVenue(p plugin.VenueProvider, probe Probe) Result {
	venues, err := p.Search(probe.KnownQuery, 5)
	if err != nil {
		return Result{Name: "SearchKnownVenue", Passed: false, Message: fmt.Sprintf("Search failed: %v", err)}
	}
	if len(venues) == 0 {
		return Result{Name: "SearchKnownVenue", Passed: false, Message: fmt.Sprintf("no venue for %q", probe.KnownQuery)}
	}
	for _, v := range venues {
		if v.ID == "" || v.Name == "" {
			return Result{Name: "SearchKnownVenue", Passed: false, Message: fmt.Sprintf("venue missing id or name: %+v", v)}
		}
	}
	return Result{Name: "SearchKnownVenue", Passed: true, Message: fmt.Sprintf("Search returned %d venues", len(venues))}
}

// AssertSearchRespectsLimit verifies a limit of one returns at most one venue.
func AssertSearchRespectsLimit(p plugin.VenueProvider, probe Probe) Result {
	venues, err := p.Search(probe.KnownQuery, 1)
	if err != nil {
		return Result{Name: "SearchRespectsLimit", Passed: false, Message: fmt.Sprintf("Search failed: %v", err)}
	}
	if len(venues) > 1 {
		return Result{Name: "SearchRespectsLimit", Passed: false, Message: fmt.Sprintf("limit 1 returned %d venues", len(venues))}
	}
	return Result{Name: "SearchRespectsLimit", Passed: true, Message: "limit honoured"}
}

// AssertSearchUnknownVenue verifies a miss is an empty result, not an error.
func AssertSearchUnknownVenue(p plugin.VenueProvider, _ Probe) Result {
	venues, err := p.Search(unknownQuery, 5)
	if err != nil {
		return Result{Name: "SearchUnknownVenue", Passed: false, Message: fmt.Sprintf("miss reported as error: %v", err)}
	}
	if len(venues) != 0 {
		return Result{Name: "SearchUnknownVenue", Passed: false, Message: fmt.Sprintf("unexpected matches: %+v", venues)}
	}
	return Result{Name: "SearchUnknownVenue", Passed: true, Message: "no matches"}
}
