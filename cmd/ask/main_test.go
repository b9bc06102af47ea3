package main

import (
	"testing"

	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
	"github.com/stretchr/testify/assert"
)

func TestSystemRole(t *testing.T) {
	assert.Equal(t, "system", systemRole(&config.Provider{Client: config.ClientOpenAI, Model: "gpt-4o-mini"}))
	assert.Equal(t, "system", systemRole(&config.Provider{Client: config.ClientAnthropic, Model: "claude-sonnet-4-20250514"}))
	assert.Equal(t, "user", systemRole(&config.Provider{Client: config.ClientGemini, Model: "gemini-1.5-flash-latest"}))
	assert.Equal(t, "user", systemRole(&config.Provider{Client: config.ClientOpenAI, Model: "o1-mini"}))
	assert.Equal(t, "user", systemRole(&config.Provider{Client: config.ClientOpenAI, Model: "o3"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errors.Mark(errors.KindConfig, errors.New("x"))))
	assert.Equal(t, 3, exitCode(errors.Mark(errors.KindTransport, errors.New("x"))))
	assert.Equal(t, 4, exitCode(errors.Mark(errors.KindAdapter, errors.New("x"))))
	assert.Equal(t, 5, exitCode(errors.Mark(errors.KindTool, errors.New("x"))))
	assert.Equal(t, 6, exitCode(errors.Mark(errors.KindStore, errors.New("x"))))
	assert.Equal(t, 1, exitCode(errors.New("unclassified")))
}
