// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "apiai-go/"+Version, UserAgent())
}

func TestString(t *testing.T) {
	old := Commit
	Commit = "abc1234"
	t.Cleanup(func() { Commit = old })

	s := String()
	assert.True(t, strings.HasPrefix(s, "apiai "+Version))
	assert.Contains(t, s, "commit abc1234")
}
