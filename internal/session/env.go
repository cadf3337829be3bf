package session

import (
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/envutil"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/namespace"
)

// BuildEnv derives the command environment from base: the variables in
// unset are removed and displayEnv is set to the slot's display name.
func BuildEnv(base []string, displayEnv string, s namespace.Slot, unset []string) []string {
	env := envutil.Remove(base, unset...)
	return envutil.Upsert(env, displayEnv, s.Display())
}
