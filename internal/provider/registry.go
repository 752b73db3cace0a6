package provider

import (
	"context"
	"fmt"

	"github.com/waabox/gitpulse/internal/domain"
)

// Registry holds the configured run providers in the order they were
// registered. Reports and inspections visit providers in that order.
type Registry struct {
	providers []domain.RunProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a provider.
func (r *Registry) Register(p domain.RunProvider) {
	r.providers = append(r.providers, p)
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []domain.RunProvider {
	return append([]domain.RunProvider(nil), r.providers...)
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (domain.RunProvider, error) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no provider named %q", name)
}

// AuthResult is the authentication outcome of one provider.
type AuthResult struct {
	Provider string
	User     string
	Err      error
}

// OK reports whether the provider can be used.
func (a AuthResult) OK() bool {
	return a.Err == nil
}

// AuthStatus is a snapshot of which providers are usable, taken once per
// report and passed to whoever needs it.
type AuthStatus struct {
	Results []AuthResult
}

// For returns the result of the named provider.
func (s AuthStatus) For(name string) (AuthResult, bool) {
	for _, r := range s.Results {
		if r.Provider == name {
			return r, true
		}
	}
	return AuthResult{}, false
}

// OK reports whether the named provider authenticated.
func (s AuthStatus) OK(name string) bool {
	r, found := s.For(name)
	return found && r.OK()
}

// Any reports whether at least one provider authenticated.
func (s AuthStatus) Any() bool {
	for _, r := range s.Results {
		if r.OK() {
			return true
		}
	}
	return false
}

// CheckAuth asks every provider whether it is usable right now.
func (r *Registry) CheckAuth(ctx context.Context) AuthStatus {
	var s AuthStatus
	for _, p := range r.providers {
		user, err := p.Authenticate(ctx)
		s.Results = append(s.Results, AuthResult{Provider: p.Name(), User: user, Err: err})
	}
	return s
}

// Authenticated returns the providers that passed s, in registration order.
func (r *Registry) Authenticated(s AuthStatus) []domain.RunProvider {
	var out []domain.RunProvider
	for _, p := range r.providers {
		if s.OK(p.Name()) {
			out = append(out, p)
		}
	}
	return out
}
