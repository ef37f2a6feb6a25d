package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCommandHasMonitorSubcommand(t *testing.T) {
	root := newRootCommand()
	found := false
	for _, c := range root.Commands() {
		if c.Name() == "monitor" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNewRootCommandFlagDefaults(t *testing.T) {
	root := newRootCommand()
	sampleRate, err := root.Flags().GetInt("sample-rate")
	assert.NoError(t, err)
	assert.Equal(t, 48000, sampleRate)

	oscPort, err := root.Flags().GetInt("osc-port")
	assert.NoError(t, err)
	assert.Equal(t, 9000, oscPort)
}

func TestMaxInt(t *testing.T) {
	assert.Equal(t, 5, maxInt(5, 1))
	assert.Equal(t, 5, maxInt(1, 5))
}
