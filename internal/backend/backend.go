// Package backend selects and wires a storage backend: the native
// sqlite store or the web-style kv store. The sqlite backend
// optionally carries an AMQP client so budget writes enqueue sheet
// syncs; the kv backend has no sync pipeline.
package backend

import (
	"fmt"

	"finanzapp/internal/config"
)

type Type string

const (
	SQLiteBackend Type = "sqlite"
	KVBackend     Type = "kv"
)

func (t Type) IsValid() bool {
	return t == SQLiteBackend || t == KVBackend
}

func (t Type) String() string { return string(t) }

// Config is the subset of application config a backend needs.
type Config struct {
	Type Type

	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	DataDirectory string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		DataDirectory: appConfig.DataDirectory,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional.

	case KVBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for kv backend")
		}
	}

	return nil
}
