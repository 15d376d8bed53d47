package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	goplugin "github.com/hashicorp/go-plugin"
)

// PluginName is the key venue providers are served and dispensed under.
const PluginName = "venues"

var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "COMESOCIAL_PLUGIN",
	MagicCookieValue: "venues",
}

var PluginMap = map[string]goplugin.Plugin{
	PluginName: &VenueProviderPlugin{},
}

type Loader struct {
	mu      sync.Mutex
	plugins map[string]*goplugin.Client
}

func NewLoader() *Loader {
	return &Loader{
		plugins: make(map[string]*goplugin.Client),
	}
}

// Load starts the plugin binary at path and dispenses its venue provider.
func (l *Loader) Load(path string) (VenueProvider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid plugin path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plugin not found: %s", absPath)
		}
		return nil, fmt.Errorf("cannot access plugin: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin path is a directory: %s", absPath)
	}
	if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("plugin is not executable: %s", absPath)
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(absPath),
		AllowedProtocols: []goplugin.Protocol{
			goplugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to create plugin client: %w", err)
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}
	provider, ok := raw.(VenueProvider)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not provide venues", absPath)
	}

	l.mu.Lock()
	l.plugins[absPath] = client
	l.mu.Unlock()
	return provider, nil
}

// Cleanup kills every plugin process started by the loader.
func (l *Loader) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for path, client := range l.plugins {
		client.Kill()
		delete(l.plugins, path)
	}
}
