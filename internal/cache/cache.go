package cache

// cache.go — cache TTL en memoria con colapso single-flight.
//
// La frescura se comprueba perezosamente en cada lectura: no hay sweeping
// activo. Un miss (o una entrada caducada) dispara como máximo UN fetch
// upstream por key; los lectores concurrentes esperan ese mismo resultado.
// Un fetch fallido no se cachea y propaga el error a todos los esperantes.

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

// Cache es un cache TTL genérico compartido entre scans concurrentes.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group

	now func() time.Time // inyectable en tests
}

// New crea un Cache vacío.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// GetOrFetch devuelve la entrada si sigue fresca (now − insertedAt < ttl).
// Si no, garantiza un único fetch en vuelo por key; el resultado exitoso se
// guarda con timestamp de inserción nuevo.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// Otro caller pudo refrescar la entrada mientras esperábamos el lock
		// del grupo; releer antes de ir a la red.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Get devuelve la entrada fresca si existe, sin disparar ningún fetch.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lookup(key)
}

// Clear vacía el cache. Invalidación administrativa.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len devuelve el número de entradas almacenadas, frescas o no.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.insertedAt) >= e.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) store(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, insertedAt: c.now(), ttl: ttl}
}
