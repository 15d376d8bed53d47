// Package plugin loads venue providers that run as separate processes over
// hashicorp/go-plugin's net/rpc protocol.
package plugin

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// VenueProvider is the interface that venue plugins must implement.
type VenueProvider interface {
	// Init configures the provider, e.g. with a catalog path or API key.
	Init(config map[string]string) error

	// Search returns up to limit venues matching query, best match first.
	Search(query string, limit int) ([]outing.Venue, error)
}

// VenueProviderPlugin is the implementation of plugin.Plugin so we can
// serve/consume a VenueProvider.
type VenueProviderPlugin struct {
	Impl VenueProvider
}

func (p *VenueProviderPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &VenueRPCServer{Impl: p.Impl}, nil
}

func (p *VenueProviderPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &VenueRPCClient{Client: c}, nil
}

// SearchArgs is the RPC request for Search.
type SearchArgs struct {
	Query string
	Limit int
}

// SearchResult is the RPC response for Search.
type SearchResult struct {
	Venues []outing.Venue
}

type VenueRPCClient struct{ Client *rpc.Client }

func (c *VenueRPCClient) Init(config map[string]string) error {
	var resp interface{}
	return c.Client.Call("Plugin.Init", config, &resp)
}

func (c *VenueRPCClient) Search(query string, limit int) ([]outing.Venue, error) {
	var resp SearchResult
	if err := c.Client.Call("Plugin.Search", &SearchArgs{Query: query, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Venues, nil
}

type VenueRPCServer struct{ Impl VenueProvider }

func (s *VenueRPCServer) Init(config map[string]string, resp *interface{}) error {
	return s.Impl.Init(config)
}

func (s *VenueRPCServer) Search(args *SearchArgs, resp *SearchResult) error {
	venues, err := s.Impl.Search(args.Query, args.Limit)
	if err != nil {
		return err
	}
	resp.Venues = venues
	return nil
}
