package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/provider"
)

type fakeProvider struct {
	name    string
	user    string
	authErr error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Authenticate(_ context.Context) (string, error) {
	return f.user, f.authErr
}
func (f *fakeProvider) ListRuns(_ context.Context, _ domain.RunFilter) ([]domain.RunRecord, error) {
	return nil, nil
}
func (f *fakeProvider) ListJobs(_ context.Context, _ string) ([]domain.JobRecord, error) {
	return nil, nil
}
func (f *fakeProvider) DownloadLog(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func TestRegistry_LookupByName(t *testing.T) {
	gh := &fakeProvider{name: "github"}
	gl := &fakeProvider{name: "gitlab"}

	reg := provider.NewRegistry()
	reg.Register(gh)
	reg.Register(gl)

	p, err := reg.Lookup("gitlab")
	require.NoError(t, err)
	assert.Same(t, gl, p)
}

func TestRegistry_ErrorOnUnknownName(t *testing.T) {
	reg := provider.NewRegistry()

	_, err := reg.Lookup("bitbucket")
	assert.Error(t, err)
}

func TestRegistry_CheckAuthSkipsUnauthenticated(t *testing.T) {
	gh := &fakeProvider{name: "github", authErr: domain.ErrUnauthorized}
	gl := &fakeProvider{name: "gitlab", user: "octo"}

	reg := provider.NewRegistry()
	reg.Register(gh)
	reg.Register(gl)

	status := reg.CheckAuth(context.Background())
	require.True(t, status.Any(), "at least one provider is authenticated")
	assert.False(t, status.OK("github"))

	r, found := status.For("github")
	require.True(t, found)
	assert.ErrorIs(t, r.Err, domain.ErrUnauthorized)

	r, _ = status.For("gitlab")
	assert.Equal(t, "octo", r.User)

	usable := reg.Authenticated(status)
	require.Len(t, usable, 1)
	assert.Same(t, gl, usable[0])
}

func TestRegistry_NoProviderAuthenticated(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(&fakeProvider{name: "github", authErr: errors.New("no token")})

	assert.False(t, reg.CheckAuth(context.Background()).Any())
}

func TestRegistry_ProvidersKeepsOrder(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(&fakeProvider{name: "b"})
	reg.Register(&fakeProvider{name: "a"})

	got := reg.Providers()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name())
	assert.Equal(t, "a", got[1].Name())
}
