package contract

import (
	"fmt"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/plugin"
)

// ContractSuite runs all contract assertions against a plugin binary.
type ContractSuite struct {
	loader *plugin.Loader
	probe  Probe
}

// NewContractSuite creates a new contract suite.
func NewContractSuite(probe Probe) *ContractSuite {
	return &ContractSuite{
		loader: plugin.NewLoader(),
		probe:  probe,
	}
}

// SuiteResult aggregates results from running the full contract suite.
type SuiteResult struct {
	Results []Result
	Passed  int
	Failed  int
}

// RunWithProvider runs the contract suite against an already-loaded provider.
func (s *ContractSuite) RunWithProvider(p plugin.VenueProvider) *SuiteResult {
	assertions := []func(plugin.VenueProvider, Probe) Result{
		AssertInitSuccess,
		AssertSearchKnownVenue,
		AssertSearchRespectsLimit,
		AssertSearchUnknownVenue,
	}

	sr := &SuiteResult{}
	for _, assert := range assertions {
		result := assert(p, s.probe)
		sr.Results = append(sr.Results, result)
		if result.Passed {
			sr.Passed++
		} else {
			sr.Failed++
		}
	}
	return sr
}

// RunBinary loads a plugin binary and runs the full contract suite.
func (s *ContractSuite) RunBinary(path string) (*SuiteResult, error) {
	defer s.loader.Cleanup()

	p, err := s.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load plugin: %w", err)
	}
	return s.RunWithProvider(p), nil
}
