package domain

import (
	"errors"
	"fmt"
)

// Errores sentinel del pipeline. Los adapters los envuelven con contexto;
// los consumidores los detectan con errors.Is.
var (
	// ErrRateLimited indica que la fuente externa devolvió una señal de
	// rate limit. Nunca se reintenta inline: activa el cooldown compartido.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrCoolingDown indica que una llamada se descartó sin tocar la red
	// porque el cooldown compartido sigue activo.
	ErrCoolingDown = errors.New("cooldown active")

	// ErrInsufficientData indica que el listing no pudo cross-referenciarse
	// en este ciclo (cooldown o fallo upstream). No es un rechazo de filtro.
	ErrInsufficientData = errors.New("insufficient data")
)

// MalformedDataError señala un registro individual que falló la
// normalización. Se loguea y se salta; nunca aborta el batch.
type MalformedDataError struct {
	Source string
	Field  string
	Err    error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed record from %s (field %q): %v", e.Source, e.Field, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// ConfigurationError señala umbrales inválidos o ausentes detectados antes
// de cualquier llamada de red. Fatal para esa invocación de scan.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
