// ABOUTME: Bot host wiring the store, platform client, event bus, queue, router, and modules
// ABOUTME: Run loads modules, pushes commands, and serves until the context ends

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-clan/internal/activity"
	"github.com/2389/coven-clan/internal/config"
	"github.com/2389/coven-clan/internal/dispatch"
	"github.com/2389/coven-clan/internal/eventbus"
	"github.com/2389/coven-clan/internal/modules"
	"github.com/2389/coven-clan/internal/platform"
	"github.com/2389/coven-clan/internal/platform/discord"
	"github.com/2389/coven-clan/internal/platform/matrix"
	"github.com/2389/coven-clan/internal/roster"
	"github.com/2389/coven-clan/internal/store"
)

// storeOpenTimeout bounds connecting to the database at startup.
const storeOpenTimeout = 30 * time.Second

// DefaultCatalog lists the built-in modules. The original module names are
// accepted as aliases.
func DefaultCatalog() modules.Catalog {
	return modules.Catalog{
		roster.Name:      roster.New,
		activity.Name:    activity.New,
		"igc":            roster.New,
		"messageCounter": activity.New,
	}
}

// Bot is a running coven-clan instance.
type Bot struct {
	cfg    *config.Config
	logger *slog.Logger

	store  store.Store
	client platform.Client
	bus    *eventbus.Bus
	queue  *eventbus.Queue
	table  *dispatch.Table
	router *dispatch.Router
	loader *modules.Loader
}

type options struct {
	store   store.Store
	client  platform.Client
	catalog modules.Catalog
	now     func() time.Time
}

// Option customizes New.
type Option func(*options)

// WithStore uses s instead of opening the configured database.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithClient uses c instead of connecting to the configured platform.
func WithClient(c platform.Client) Option {
	return func(o *options) { o.client = c }
}

// WithCatalog replaces the module catalog.
func WithCatalog(c modules.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithClock replaces time.Now for modules.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a Bot from cfg. Nothing connects until Run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := options{catalog: DefaultCatalog()}
	for _, opt := range opts {
		opt(&o)
	}

	s := o.store
	if s == nil {
		var err error
		if s, err = OpenStore(cfg.Database); err != nil {
			return nil, err
		}
	}

	client := o.client
	if client == nil {
		var err error
		if client, err = NewClient(cfg, logger); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	queueSize := cfg.Activity.QueueSize
	if queueSize <= 0 {
		queueSize = config.DefaultQueueSize
	}
	workers := cfg.Activity.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}

	b := &Bot{
		cfg:    cfg,
		logger: logger.With("component", "bot"),
		store:  s,
		client: client,
		bus:    eventbus.New(client, logger),
		queue:  eventbus.NewQueue(eventbus.QueueConfig{Size: queueSize, Workers: workers, Logger: logger}),
		table:  dispatch.NewTable(),
	}
	b.router = dispatch.NewRouter(dispatch.RouterConfig{Table: b.table, Client: client, Logger: logger})
	b.loader = modules.NewLoader(modules.LoaderConfig{
		Catalog: o.catalog,
		Table:   b.table,
		Bus:     b.bus,
		Logger:  logger,
		Deps: &modules.Deps{
			Client: client,
			Store:  s,
			Bus:    b.bus,
			Queue:  b.queue,
			Config: cfg,
			Logger: logger,
			Now:    o.now,
		},
	})
	return b, nil
}

// OpenStore opens the configured database driver.
func OpenStore(db config.DatabaseConfig) (store.Store, error) {
	switch db.Driver {
	case config.DriverSQLite, "":
		s, err := store.NewSQLiteStore(db.Path)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		return s, nil
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
		defer cancel()
		name := db.Name
		if name == "" {
			name = config.DefaultMongoDatabase
		}
		s, err := store.NewMongoStore(ctx, db.URI, name)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// NewClient creates the configured platform client.
func NewClient(cfg *config.Config, logger *slog.Logger) (platform.Client, error) {
	switch cfg.Platform {
	case config.PlatformDiscord, "":
		return discord.New(discord.Config{
			Token:         cfg.Discord.Token,
			ApplicationID: cfg.Discord.ApplicationID,
			GuildID:       cfg.Discord.GuildID,
			Logger:        logger,
		})
	case config.PlatformMatrix:
		return matrix.New(matrix.Config{
			Homeserver:    cfg.Matrix.Homeserver,
			UserID:        cfg.Matrix.UserID,
			AccessToken:   cfg.Matrix.AccessToken,
			CommandPrefix: cfg.Matrix.CommandPrefix,
			ScopeID:       cfg.Matrix.ScopeID,
			AllowedRooms:  cfg.Matrix.AllowedRooms,
			IgnoredUsers:  cfg.Matrix.IgnoredUsers,
			Roles:         cfg.Matrix.Roles,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}
}

// Start loads the enabled modules, freezes the command table, pushes the
// schemas to the platform, and attaches the router. A failed push is logged
// and startup continues.
func (b *Bot) Start(ctx context.Context) error {
	names := b.cfg.Modules.Enabled
	if len(names) == 0 {
		names = config.DefaultModules
	}

	schemas, err := b.loader.Load(ctx, names)
	if err != nil {
		return fmt.Errorf("loading modules: %w", err)
	}
	b.table.Freeze()

	if err := b.client.RegisterCommands(ctx, schemas); err != nil {
		b.logger.Error("❌ failed to register commands", "error", err)
	} else {
		b.logger.Info("✅ registered commands", "count", len(schemas))
	}

	b.bus.On(platform.EventInteractionCreate, b.router.HandleEvent)
	b.logger.Info("bot started", "modules", b.loader.Loaded(), "commands", b.table.Len())
	return nil
}

// Run starts the bot and serves until ctx is cancelled or the platform
// connection fails, then shuts everything down.
func (b *Bot) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := b.Start(runCtx); err != nil {
		return errors.Join(err, b.Close())
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return b.client.Run(gctx) })
	g.Go(func() error { return b.queue.Run(gctx) })

	runErr := g.Wait()
	b.logger.Info("shutting down")
	return errors.Join(runErr, b.Close())
}

// Close detaches the bus and waits for running dispatches before closing the
// client and the store.
func (b *Bot) Close() error {
	b.bus.Close()

	var errs []error
	if err := b.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("client close: %w", err))
	}
	if err := b.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	return errors.Join(errs...)
}

// Loaded lists the loaded module names.
func (b *Bot) Loaded() []string {
	return b.loader.Loaded()
}
