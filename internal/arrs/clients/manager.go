package clients

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golift.io/starr"
	"golift.io/starr/sonarr"
)

// Manager keeps one Sonarr client per instance name.
type Manager struct {
	mu            sync.RWMutex
	httpClient    *http.Client
	sonarrClients map[string]*sonarr.Sonarr // key: instance name
	sonarrConfigs map[string]string         // key: instance name, value: url+key the client was built with
}

// NewManager creates a client manager. httpClient carries timeouts and extra
// headers and is shared by every client; nil uses the starr default.
func NewManager(httpClient *http.Client) *Manager {
	return &Manager{
		httpClient:    httpClient,
		sonarrClients: make(map[string]*sonarr.Sonarr),
		sonarrConfigs: make(map[string]string),
	}
}

// GetOrCreateSonarrClient gets or creates a Sonarr client for an instance.
// The client is rebuilt when the URL or API key of the instance changed.
func (m *Manager) GetOrCreateSonarrClient(instanceName, url, apiKey string) (*sonarr.Sonarr, error) {
	if url == "" {
		return nil, fmt.Errorf("sonarr instance %s has no url", instanceName)
	}

	fingerprint := url + "\x00" + apiKey

	m.mu.RLock()
	client, exists := m.sonarrClients[instanceName]
	current := m.sonarrConfigs[instanceName]
	m.mu.RUnlock()
	if exists && current == fingerprint {
		return client, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.sonarrClients[instanceName]; exists && m.sonarrConfigs[instanceName] == fingerprint {
		return client, nil
	}

	client = sonarr.New(m.starrConfig(url, apiKey))
	m.sonarrClients[instanceName] = client
	m.sonarrConfigs[instanceName] = fingerprint
	return client, nil
}

// TestConnection tests the connection to a Sonarr instance
func (m *Manager) TestConnection(ctx context.Context, url, apiKey string) error {
	client := sonarr.New(m.starrConfig(url, apiKey))
	if _, err := client.GetSystemStatusContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to Sonarr: %w", err)
	}
	return nil
}

func (m *Manager) starrConfig(url, apiKey string) *starr.Config {
	return &starr.Config{URL: url, APIKey: apiKey, Client: m.httpClient}
}
