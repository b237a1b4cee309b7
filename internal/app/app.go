package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/core/config"
	"factoryops.app/assistant/core/db"
	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/factory"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/queue"
	"factoryops.app/assistant/internal/service"
	"factoryops.app/assistant/internal/store"
)

// DefaultSeed seeds the dataset generated when no data file exists yet.
const DefaultSeed = 42

// App holds the wired dependencies shared by the server and factoryctl.
type App struct {
	Config    config.Config
	Inventory factory.Inventory
	Data      *data.FileSource
	Stores    *store.Stores
	Memory    *memory.Repository
	Engine    *metrics.Engine
	Redis     *redis.Client // nil without REDIS_URL
	Events    *queue.RedisReader
	Services  *service.Services

	closers []func()
}

// New wires the application from cfg. Callers must Close the result.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	inv, err := factory.Load(cfg.Factory.InventoryFile, cfg.Factory.Name)
	if err != nil {
		return err
	}
	a.Inventory = inv

	if a.Data, err = openData(ctx, cfg.Factory.DataFile, inv); err != nil {
		return err
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		a.closers = append(a.closers, func() { _ = a.Redis.Close() })
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		slog.InfoContext(ctx, "redis connected")
	}

	if a.Stores, err = a.openStores(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = a.Stores.Close() })
	slog.InfoContext(ctx, "memory backend ready", "backend", a.Stores.Backend())

	a.Memory = memory.NewRepository(a.Stores)
	a.Engine = metrics.NewEngine(cfg.Chat.PerformanceFactor)

	client, err := newAgentClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	producer := queue.NopProducer()
	if a.Redis != nil {
		producer = queue.NewRedisProducer(a.Redis, queue.ProducerConfig{
			StreamPrefix: cfg.Redis.EventStreamPrefix,
			MaxLen:       cfg.Redis.EventStreamMaxLen,
		}, slog.Default())
		a.Events = queue.NewRedisReader(a.Redis, queue.ReaderConfig{StreamPrefix: cfg.Redis.EventStreamPrefix})
	}

	mode, err := brain.ParseSanitizerMode(cfg.Chat.SanitizerMode)
	if err != nil {
		return err
	}
	orchestrator := brain.NewOrchestrator(
		brain.OrchestratorConfig{
			MaxIterations: cfg.Chat.MaxIterations,
			MaxTokens:     cfg.LLM.MaxTokens,
		},
		client,
		brain.NewDispatcher(a.Engine, a.Memory),
		brain.NewSanitizer(mode),
		a.Data,
	)

	a.Services = service.NewServices(orchestrator, a.Engine, a.Data, a.Memory, producer, inv.Name)
	return nil
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// openData loads the production data file, generating and saving a seeded
// dataset first when the file does not exist.
func openData(ctx context.Context, path string, inv factory.Inventory) (*data.FileSource, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		snap := data.Generate(inv, data.GenerateOptions{Days: 30, Seed: DefaultSeed})
		if err := data.SaveFile(path, snap); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "generated production data", "path", path, "start_date", snap.StartDate, "end_date", snap.EndDate)
	}

	src, err := data.OpenFile(path)
	if err != nil {
		return nil, err
	}
	snap := src.Snapshot()
	slog.InfoContext(ctx, "production data loaded",
		"path", path,
		"start_date", snap.StartDate,
		"end_date", snap.EndDate,
		"machines", len(snap.Machines),
		"days", len(snap.Production))
	return src, nil
}

func (a *App) openStores(ctx context.Context) (*store.Stores, error) {
	cfg := a.Config
	switch cfg.Memory.Backend {
	case config.MemoryBackendSQLite:
		if cfg.Memory.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Memory.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating sqlite directory: %w", err)
			}
		}
		return store.NewSQLiteStores(ctx, cfg.Memory.SQLitePath)

	case config.MemoryBackendPostgres:
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return store.NewPostgresStores(database), nil

	case config.MemoryBackendRedis:
		if a.Redis == nil {
			return nil, fmt.Errorf("memory backend redis needs REDIS_URL")
		}
		return store.NewRedisStores(a.Redis, cfg.Redis.KeyPrefix), nil

	default:
		return store.NewMemoryStores(), nil
	}
}

func newAgentClient(ctx context.Context, cfg config.LLMConfig) (llm.AgentClient, error) {
	if !cfg.Enabled() {
		slog.WarnContext(ctx, "no language model configured, chat turns will fail", "provider", cfg.Provider)
		return nil, nil
	}

	client, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	slog.InfoContext(ctx, "language model configured", "provider", cfg.Provider, "model", client.Model(), "timeout", cfg.Timeout.String())
	return llm.WithTimeout(client, cfg.Timeout), nil
}
