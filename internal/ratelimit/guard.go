package ratelimit

// guard.go — presupuesto de llamadas y cooldown compartidos a nivel proceso.
//
// El límite externo se aplica por credencial/IP, no por scan lógico, así que
// el Guard se construye una vez en main y se inyecta por referencia en todos
// los sitios que tocan la red. Dos limiters independientes:
//   - budget: tasa máxima de llamadas sostenida (límite documentado)
//   - floor:  delay mínimo entre llamadas, suelo defensivo contra límites
//     no documentados del upstream
//
// Sobre una señal explícita de rate limit, el cooldown suprime TODAS las
// llamadas durante una ventana exponencial (inicial → ×2 → cap). Un éxito
// tras expirar la ventana la resetea al valor inicial.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/flipbot/internal/domain"
)

const (
	defaultInitialCooldown = 60 * time.Second
	defaultMaxCooldown     = 600 * time.Second
	defaultCallsPerSecond  = 10
	defaultMinInterval     = 250 * time.Millisecond
)

// Config parametriza el Guard.
type Config struct {
	CallsPerSecond  float64       // presupuesto sostenido de llamadas
	Burst           int           // burst del presupuesto
	MinInterval     time.Duration // delay mínimo entre llamadas
	InitialCooldown time.Duration // ventana inicial tras un rate limit
	MaxCooldown     time.Duration // cap de la ventana exponencial
}

// DefaultConfig devuelve un presupuesto conservador.
func DefaultConfig() Config {
	return Config{
		CallsPerSecond:  defaultCallsPerSecond,
		Burst:           5,
		MinInterval:     defaultMinInterval,
		InitialCooldown: defaultInitialCooldown,
		MaxCooldown:     defaultMaxCooldown,
	}
}

// Guard es el estado compartido de rate limiting del proceso.
type Guard struct {
	budget *rate.Limiter
	floor  *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time
	window        time.Duration
	initial       time.Duration
	max           time.Duration
	calls         int64 // contador de llamadas admitidas (vida del proceso)

	now func() time.Time // inyectable en tests
}

// NewGuard crea un Guard con la configuración dada.
func NewGuard(cfg Config) *Guard {
	if cfg.CallsPerSecond <= 0 {
		cfg.CallsPerSecond = defaultCallsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.InitialCooldown <= 0 {
		cfg.InitialCooldown = defaultInitialCooldown
	}
	if cfg.MaxCooldown < cfg.InitialCooldown {
		cfg.MaxCooldown = defaultMaxCooldown
	}
	return &Guard{
		budget:  rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), cfg.Burst),
		floor:   rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		window:  cfg.InitialCooldown,
		initial: cfg.InitialCooldown,
		max:     cfg.MaxCooldown,
		now:     time.Now,
	}
}

// Acquire reserva permiso para una llamada externa. Si el cooldown sigue
// activo devuelve domain.ErrCoolingDown sin esperar ni tocar la red.
func (g *Guard) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if until := g.cooldownUntil; g.now().Before(until) {
		g.mu.Unlock()
		return fmt.Errorf("ratelimit.Acquire: until %s: %w",
			until.Format(time.RFC3339), domain.ErrCoolingDown)
	}
	g.calls++
	g.mu.Unlock()

	if err := g.budget.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit.Acquire: budget: %w", err)
	}
	if err := g.floor.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit.Acquire: floor: %w", err)
	}
	return nil
}

// ReportRateLimited registra una señal de rate limit del upstream: activa el
// cooldown con la ventana actual y la duplica hasta el cap para la próxima.
// Devuelve la ventana aplicada.
func (g *Guard) ReportRateLimited() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	applied := g.window
	g.cooldownUntil = g.now().Add(applied)
	g.window *= 2
	if g.window > g.max {
		g.window = g.max
	}
	return applied
}

// ReportSuccess registra una llamada exitosa. Si el cooldown ya expiró, la
// ventana vuelve al valor inicial.
func (g *Guard) ReportSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.now().Before(g.cooldownUntil) {
		g.window = g.initial
	}
}

// CoolingDown devuelve true si el cooldown compartido sigue activo.
func (g *Guard) CoolingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.cooldownUntil)
}

// Calls devuelve el número de llamadas admitidas en la vida del proceso.
func (g *Guard) Calls() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
