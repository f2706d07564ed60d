package chain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dialer constructs a Client.
type Dialer func(ctx context.Context) (Client, error)

// Provider hands out a single shared client, constructed on first use. A
// failed construction is not cached; the next caller tries again.
type Provider struct {
	mu     sync.Mutex
	dial   Dialer
	client Client
	logger *zap.Logger
}

func NewProvider(dial Dialer, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{dial: dial, logger: logger}
}

// StaticProvider wraps an already constructed client.
func StaticProvider(client Client) *Provider {
	return &Provider{client: client, logger: zap.NewNop()}
}

func (p *Provider) Client(ctx context.Context) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.dial == nil {
		return nil, fmt.Errorf("no chain client configured")
	}

	client, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect chain client: %w", err)
	}
	p.logger.Debug("Chain client connected")
	p.client = client
	return client, nil
}

// Ping checks the node through the shared client when it supports it.
func (p *Provider) Ping(ctx context.Context) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	if pinger, ok := client.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	_, err = client.Height(ctx)
	return err
}

func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
