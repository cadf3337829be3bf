// Package envutil edits environment lists in the KEY=VALUE form used by
// os.Environ and exec.Cmd.Env.
package envutil

import "strings"

// Lookup returns the value of key in env. When key appears more than once
// the last entry wins, matching exec.Cmd.
func Lookup(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return strings.TrimPrefix(env[i], prefix), true
		}
	}
	return "", false
}

// Upsert sets key to value, replacing every existing entry for key.
func Upsert(env []string, key, value string) []string {
	return append(Remove(env, key), key+"="+value)
}

// Remove returns env without any entry for the given keys. env is not modified.
func Remove(env []string, keys ...string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if !hasKey(kv, keys) {
			out = append(out, kv)
		}
	}
	return out
}

func hasKey(kv string, keys []string) bool {
	for _, key := range keys {
		if strings.HasPrefix(kv, key+"=") {
			return true
		}
	}
	return false
}
