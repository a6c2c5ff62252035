// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu         sync.RWMutex
	baseLogger *zap.Logger
	log        *zap.SugaredLogger
)

// Init initializes the package-level logger. Debug selects zap's development
// configuration (console encoding, debug level).
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	mu.Lock()
	baseLogger = zapLogger
	log = zapLogger.Sugar()
	mu.Unlock()
	return nil
}

// Use replaces the package-level logger, mainly for tests (zap.NewNop,
// zaptest/observer).
func Use(l *zap.Logger) {
	mu.Lock()
	baseLogger = l
	log = l.Sugar()
	mu.Unlock()
}

// GetZapLogger returns the base zap logger.
func GetZapLogger() *zap.Logger {
	mu.RLock()
	l := baseLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	// Fallback logger if not initialized
	fallback, err := zap.NewProduction()
	if err != nil {
		fallback = zap.NewNop()
	}
	Use(fallback)
	return fallback
}

// GetSugaredLogger returns the sugared logger instance.
func GetSugaredLogger() *zap.SugaredLogger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	return GetZapLogger().Sugar()
}

// Named returns a sugared child logger tagged with the component name.
func Named(component string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(component)
}

// Sync flushes any buffered log entries.
func Sync() {
	mu.RLock()
	l := baseLogger
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}
