// Package memstore implementa central.Store en memoria para el servidor de desarrollo sin PostgreSQL
// y para las pruebas.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/preventa/internal/application/central"
	"github.com/jhoicas/preventa/internal/application/dto"
)

var _ central.Store = (*Store)(nil)

type docKey struct{ tenant, resource string }

type orderKey struct {
	tenant string
	doc    int64
}

// Notification aviso registrado.
type Notification struct {
	Tenant  string
	Request dto.NotificationRequest
	At      time.Time
}

// Store almacén en memoria, seguro para uso concurrente.
type Store struct {
	mu            sync.RWMutex
	docs          map[docKey]map[string][]byte
	orders        map[orderKey]central.StoredOrder
	notifications []Notification
}

// New construye un almacén vacío.
func New() *Store {
	return &Store{
		docs:   make(map[docKey]map[string][]byte),
		orders: make(map[orderKey]central.StoredOrder),
	}
}

func (s *Store) PutDocuments(ctx context.Context, tenant, resource string, docs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := docKey{tenant, resource}
	bucket := s.docs[k]
	if bucket == nil {
		bucket = make(map[string][]byte, len(docs))
		s.docs[k] = bucket
	}
	for key, raw := range docs {
		bucket[key] = slices.Clone(raw)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, tenant, resource, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[docKey{tenant, resource}][key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(raw), nil
}

func (s *Store) ListDocuments(ctx context.Context, tenant, resource string, offset, limit int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.docs[docKey{tenant, resource}]
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if offset >= len(keys) {
		return [][]byte{}, nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = slices.Clone(bucket[k])
	}
	return out, nil
}

func (s *Store) CountDocuments(ctx context.Context, tenant, resource string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[docKey{tenant, resource}]), nil
}

func (s *Store) InsertOrder(ctx context.Context, tenant string, o central.StoredOrder) (*central.StoredOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := orderKey{tenant, o.DocumentNumber}
	if existing, ok := s.orders[k]; ok {
		return &existing, nil
	}
	o.Payload = slices.Clone(o.Payload)
	o.SyncKey = strings.Clone(o.SyncKey)
	s.orders[k] = o
	return nil, nil
}

func (s *Store) GetOrder(ctx context.Context, tenant string, documentNumber int64) (*central.StoredOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderKey{tenant, documentNumber}]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *Store) AddNotification(ctx context.Context, tenant string, n dto.NotificationRequest, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, Notification{Tenant: tenant, Request: n, At: at})
	return nil
}

// Notifications copia de los avisos registrados.
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notifications)
}

// Orders cantidad de pedidos recibidos.
func (s *Store) Orders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
