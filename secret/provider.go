package secret

import (
	"os"
	"strings"
)

// Provider resolves named secrets at step execution time. Resolved values
// are injected into the step environment and never persisted beyond the
// step's execution scope.
type Provider interface {
	GetSecret(name string) (string, bool)
}

// StaticProvider serves secrets from a fixed map.
type StaticProvider struct {
	secrets map[string]string
}

func NewStaticProvider(secrets map[string]string) *StaticProvider {
	return &StaticProvider{secrets: secrets}
}

func (p *StaticProvider) GetSecret(name string) (string, bool) {
	value, ok := p.secrets[name]
	return value, ok
}

// EnvProvider reads secrets from process environment variables named
// CONVEYOR_SECRET_<NAME>.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{prefix: "CONVEYOR_SECRET_"}
}

func (p *EnvProvider) GetSecret(name string) (string, bool) {
	return os.LookupEnv(p.prefix + strings.ToUpper(name))
}
