package docstore

import (
	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// DocstoreProvider bundles the document-platform capability clients.
type DocstoreProvider struct {
	auth    *AuthClient
	data    *DataClient
	storage *StorageClient
	log     logging.Logger
}

var _ provider.Provider = (*DocstoreProvider)(nil)

// New builds the document-platform adapter from the configured endpoint and
// API key. Construction performs no network calls.
func New(cfg *config.Config, log logging.Logger) *DocstoreProvider {
	client := NewClient(cfg.DocstoreBaseURL, cfg.DocstoreAPIKey, nil)
	data := NewDataClient(client)
	return &DocstoreProvider{
		auth:    NewAuthClient(client, data),
		data:    data,
		storage: NewStorageClient(client),
		log:     log,
	}
}

func (p *DocstoreProvider) Name() string              { return provider.NameDocstore }
func (p *DocstoreProvider) Auth() provider.Auth       { return p.auth }
func (p *DocstoreProvider) Data() provider.Data       { return p.data }
func (p *DocstoreProvider) Storage() provider.Storage { return p.storage }
