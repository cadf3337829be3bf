package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	env := []string{"HOME=/home/me", "DISPLAY=:0", "DISPLAY=:7", "EMPTY="}

	v, ok := Lookup(env, "DISPLAY")
	assert.True(t, ok)
	assert.Equal(t, ":7", v, "last entry wins")

	v, ok = Lookup(env, "EMPTY")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = Lookup(env, "DISP")
	assert.False(t, ok, "prefix of a key is not a match")
}

func TestUpsert(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		want []string
	}{
		{"absent", []string{"A=1"}, []string{"A=1", "DISPLAY=:3"}},
		{"present", []string{"DISPLAY=:0", "A=1"}, []string{"A=1", "DISPLAY=:3"}},
		{"duplicated", []string{"DISPLAY=:0", "A=1", "DISPLAY=:1"}, []string{"A=1", "DISPLAY=:3"}},
		{"empty", nil, []string{"DISPLAY=:3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Upsert(tt.env, "DISPLAY", ":3"))
		})
	}
}

func TestRemove(t *testing.T) {
	env := []string{"WAYLAND_DISPLAY=wayland-0", "PATH=/bin", "WAYLAND_SOCKET=5", "WAYLAND_DISPLAY_X=keep"}

	got := Remove(env, "WAYLAND_DISPLAY", "WAYLAND_SOCKET")
	assert.Equal(t, []string{"PATH=/bin", "WAYLAND_DISPLAY_X=keep"}, got)
	assert.Len(t, env, 4, "input must not be modified")
}
