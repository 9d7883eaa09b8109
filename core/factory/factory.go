package factory

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnknownType is returned by Create for a type nobody registered.
var ErrUnknownType = errors.New("unknown module type")

// ModuleConfig selects one pluggable module. Disabled entries stay in the
// file but are not built.
type ModuleConfig struct {
	Type     string         `json:"type"`
	Disabled bool           `json:"disabled,omitempty"`
	Conf     map[string]any `json:"conf,omitempty"`
}

// Factory builds a T from the raw conf map of a ModuleConfig.
type Factory[T any] func(conf map[string]any) (T, error)

// Registry maps type names to factories. It is safe for concurrent use.
type Registry[T any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry returns an empty registry. kind names the modules in errors,
// e.g. "metrics sink".
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, factories: make(map[string]Factory[T])}
}

// Register adds f under name.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if name == "" || f == nil {
		return fmt.Errorf("%s: empty name or nil factory", r.kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("%s %q registered twice", r.kind, name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register for init functions.
func (r *Registry[T]) MustRegister(name string, f Factory[T]) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Create builds the module selected by cfg.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w (have %v)", r.kind, cfg.Type, ErrUnknownType, r.Names())
	}
	v, err := f(cfg.Conf)
	if err != nil {
		return v, fmt.Errorf("%s %q: %w", r.kind, cfg.Type, err)
	}
	return v, nil
}

// Names lists the registered types, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Decode fills out from a conf map using json tags. Strings coming from
// environment overrides are converted to numbers, bools and durations.
// Keys out does not declare are an error so that typos surface at startup.
func Decode(conf map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(conf)
}
