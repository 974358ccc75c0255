package core

import (
	"log/slog"
	"sync"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/internal/staticdata"
)

// EngineProvider hands long-running servers an Engine over the current static tables.
// The Engine is rebuilt only when the static cache hands out a new snapshot.
type EngineProvider struct {
	static *staticdata.Cache
	ledger contract.PartitionTransport
	logger *slog.Logger

	mu     sync.Mutex
	tables *staticdata.Tables
	engine *Engine
}

// NewEngineProvider creates a provider over a static cache and an override transport.
func NewEngineProvider(static *staticdata.Cache, ledger contract.PartitionTransport, logger *slog.Logger) *EngineProvider {
	return &EngineProvider{static: static, ledger: ledger, logger: contract.LoggerOrDefault(logger)}
}

// Engine returns the engine for the current static tables.
func (p *EngineProvider) Engine() (*Engine, error) {
	tables, err := p.static.Get()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil && p.tables == tables {
		return p.engine, nil
	}
	e, err := NewEngine(tables, p.ledger, WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	p.tables, p.engine = tables, e
	return e, nil
}

// Reload drops the cached static tables so the next Engine call reads them from disk.
func (p *EngineProvider) Reload() error {
	p.static.Invalidate()
	_, err := p.Engine()
	return err
}
