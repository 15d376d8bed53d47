// Command comesocial-venue-catalog is a venue provider plugin that serves
// searches from a YAML catalog file.
package main

import (
	"fmt"
	"log"
	"sync"

	"github.com/hashicorp/go-plugin"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/venue"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
	venueplugin "github.com/kevinbrodzinski/comesocial-sub003/pkg/plugin"
)

// CatalogProvider answers Search from the catalog named by the "catalog"
// config key.
type CatalogProvider struct {
	mu      sync.RWMutex
	catalog *venue.Catalog
}

func (p *CatalogProvider) Init(config map[string]string) error {
	path := config["catalog"]
	if path == "" {
		return fmt.Errorf("catalog path is required")
	}
	catalog, err := venue.LoadCatalog(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.catalog = catalog
	p.mu.Unlock()
	log.Printf("Loaded %d venues from %s", catalog.Len(), path)
	return nil
}

func (p *CatalogProvider) Search(query string, limit int) ([]outing.Venue, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.catalog == nil {
		return nil, fmt.Errorf("provider not initialized")
	}
	return p.catalog.Search(query, limit), nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: venueplugin.HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			venueplugin.PluginName: &venueplugin.VenueProviderPlugin{Impl: &CatalogProvider{}},
		},
	})
}
