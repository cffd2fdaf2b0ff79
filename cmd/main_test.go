package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestListenAddr(t *testing.T) {
	t.Setenv("PORT", "")
	assert.Equal(t, ":8080", listenAddr())

	t.Setenv("PORT", "9090")
	assert.Equal(t, ":9090", listenAddr())
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	logger := newLogger()
	assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())

	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_LEVEL", "nonsense")
	logger = newLogger()
	assert.IsType(t, &log.TextFormatter{}, logger.Formatter)
}
