package secret

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(map[string]string{"api_token": "s3cr3t"})

	value, ok := p.GetSecret("api_token")
	require.True(t, ok)
	require.Equal(t, "s3cr3t", value)

	_, ok = p.GetSecret("missing")
	require.False(t, ok)
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("CONVEYOR_SECRET_DEPLOY_KEY", "k3y")
	p := NewEnvProvider()

	value, ok := p.GetSecret("deploy_key")
	require.True(t, ok)
	require.Equal(t, "k3y", value)

	_, ok = p.GetSecret("absent")
	require.False(t, ok)
}
