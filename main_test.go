package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReturnsExitCodeOnBadConfig(t *testing.T) {
	assert.Equal(t, 1, run("bogus"))

	t.Setenv("SHARE_BACKEND", "nope")
	assert.Equal(t, 1, run(modeServe))
}
