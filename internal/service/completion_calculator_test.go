package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionPercentage(t *testing.T) {
	cases := []struct {
		name      string
		total     int
		completed int
		want      int
	}{
		{"no steps", 0, 0, 0},
		{"no steps but completions", 0, 3, 0},
		{"quarter", 4, 1, 25},
		{"two thirds rounds up", 3, 2, 67},
		{"one third rounds down", 3, 1, 33},
		{"half rounds up", 8, 1, 13},
		{"all", 5, 5, 100},
		{"none", 5, 0, 0},
		{"over complete is clamped", 2, 3, 100},
		{"negative is clamped", 4, -1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompletionPercentage(tc.total, tc.completed))
		})
	}
}

func TestIsModuleFullyComplete(t *testing.T) {
	set := func(ids ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			m[id] = struct{}{}
		}
		return m
	}

	assert.False(t, IsModuleFullyComplete(0, set()), "empty module is never complete")
	assert.False(t, IsModuleFullyComplete(0, nil))
	assert.False(t, IsModuleFullyComplete(3, set("s1", "s2")))
	assert.True(t, IsModuleFullyComplete(3, set("s1", "s2", "s3")))
	assert.False(t, IsModuleFullyComplete(2, set("s1", "s2", "s3")), "count must match exactly")
	assert.True(t, IsModuleFullyComplete(1, set("s1")))
}
