// Package secrets provides the process secret vault (environment-level
// credentials with hot reload) and at-rest sealing of secrets that end up
// in persisted state.
package secrets

import (
	"fmt"
	"slices"
	"sync"
)

// Well-known secret names.
const (
	// CloudAPIKey is the environment-level credential for the cloud provider.
	CloudAPIKey = "OPENAI_API_KEY"
	// SealingKey keys the sealer that protects the API key stored in settings.
	SealingKey = "FOCUSTODO_SECRET_KEY"
)

// Loader produces the current secret values keyed by name.
type Loader func() (map[string]string, error)

// Vault holds the process secrets. Reads never block on a reload.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault populates a vault from loader.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the named secret or "".
func (v *Vault) Get(name string) string {
	if v == nil {
		return ""
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[name]
}

// CloudAPIKey returns the environment-level cloud provider key.
func (v *Vault) CloudAPIKey() string { return v.Get(CloudAPIKey) }

// SealingPassphrase returns the passphrase for the settings sealer.
func (v *Vault) SealingPassphrase() string { return v.Get(SealingKey) }

// Reload re-runs the loader and returns the sorted names whose value was
// added, removed or changed. On error the previous values stay in place.
func (v *Vault) Reload() ([]string, error) {
	next, err := v.loader()
	if err != nil {
		return nil, fmt.Errorf("reload secrets: %w", err)
	}

	v.mu.Lock()
	prev := v.values
	v.values = next
	v.mu.Unlock()

	var changed []string
	for name, val := range next {
		if old, ok := prev[name]; !ok || old != val {
			changed = append(changed, name)
		}
	}
	for name := range prev {
		if _, ok := next[name]; !ok {
			changed = append(changed, name)
		}
	}
	slices.Sort(changed)
	return changed, nil
}
