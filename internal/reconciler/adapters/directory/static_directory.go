package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/reconciler/domain"
)

// StaticDirectory is an in-memory ClientDirectory for development and tests.
type StaticDirectory struct {
	mu        sync.RWMutex
	clients   map[uuid.UUID]string
	sitters   map[uuid.UUID]string
	frontDesk map[uuid.UUID]string
}

// NewStaticDirectory creates an empty StaticDirectory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		clients:   make(map[uuid.UUID]string),
		sitters:   make(map[uuid.UUID]string),
		frontDesk: make(map[uuid.UUID]string),
	}
}

// AddClient registers a client phone number.
func (d *StaticDirectory) AddClient(id uuid.UUID, phone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[id] = phone
}

// AddSitter registers a sitter phone number.
func (d *StaticDirectory) AddSitter(id uuid.UUID, phone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sitters[id] = phone
}

// AddFrontDesk registers an org's front desk number.
func (d *StaticDirectory) AddFrontDesk(orgID uuid.UUID, phone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frontDesk[orgID] = phone
}

// ClientPhone implements ClientDirectory.
func (d *StaticDirectory) ClientPhone(_ context.Context, clientID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	phone, ok := d.clients[clientID]
	if !ok {
		return "", domain.ErrClientNotFound
	}
	return phone, nil
}

// SitterPhone implements ClientDirectory.
func (d *StaticDirectory) SitterPhone(_ context.Context, sitterID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	phone, ok := d.sitters[sitterID]
	if !ok {
		return "", domain.ErrClientNotFound
	}
	return phone, nil
}

// FrontDeskPhone implements ClientDirectory.
func (d *StaticDirectory) FrontDeskPhone(_ context.Context, orgID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	phone, ok := d.frontDesk[orgID]
	if !ok {
		return "", domain.ErrClientNotFound
	}
	return phone, nil
}
