package backend

import (
	"fmt"

	"finanzapp/internal/amqp"
	"finanzapp/internal/log"
	"finanzapp/internal/storage"
	"finanzapp/internal/storage/kv"
	"finanzapp/internal/storage/sqlite"
)

// Result is what a factory hands back: the opened store, the AMQP
// client when sync is enabled (nil otherwise), and a cleanup to run at
// shutdown.
type Result struct {
	Store   storage.Store
	Queue   *amqp.Client
	Cleanup func() error
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

func (f *Factory) Create(config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLite(config)
	case KVBackend:
		return f.createKV(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createSQLite(config Config) (*Result, error) {
	store, err := sqlite.New(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	// AMQP is optional: without it budget writes still persist, they
	// just never reach the backup sheet until the worker's catch-up
	// scan runs.
	var queue *amqp.Client
	if config.AMQPURL != "" {
		queue, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync",
				log.FieldError, err)
			queue = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", queue != nil)

	cleanup := func() error {
		if queue != nil {
			queue.Close()
		}
		return store.Close()
	}

	return &Result{Store: store, Queue: queue, Cleanup: cleanup}, nil
}

func (f *Factory) createKV(config Config) (*Result, error) {
	store, err := kv.Open(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kv store: %w", err)
	}

	f.logger.Info("Initialized kv backend", "data_directory", config.DataDirectory)

	return &Result{Store: store, Cleanup: store.Close}, nil
}
