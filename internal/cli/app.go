package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/membercare/memberboard/internal/config"
	"github.com/membercare/memberboard/internal/engine"
	"github.com/membercare/memberboard/internal/engine/cache"
	"github.com/membercare/memberboard/internal/logging"
	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// app bundles the query stack every network command needs: warehouse
// client, result cache, and the coordinator on top of both.
type app struct {
	cfg    config.Config
	client *warehouse.RESTClient
	store  *cache.Store
	coord  *engine.Coordinator
	logger zerolog.Logger
}

// newApp builds the query stack from the loaded configuration.
// It fails when the warehouse is not configured, so offline commands
// (views, version) must not call it.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireWarehouse(); err != nil {
		return nil, err
	}

	log := zerolog.Ctx(cmd.Context())

	client, err := warehouse.NewRESTClient(warehouse.Options{
		Host:        cfg.Warehouse.Host,
		Token:       cfg.Warehouse.Token,
		WarehouseID: cfg.Warehouse.WarehouseID,
		Catalog:     cfg.Warehouse.Catalog,
		Schema:      cfg.Warehouse.Schema,
	}, logging.ComponentLogger(*log, "warehouse"))
	if err != nil {
		return nil, err
	}

	scope := query.Scope{Catalog: cfg.Warehouse.Catalog, Schema: cfg.Warehouse.Schema}
	exec := engine.NewStatementExecutor(
		client,
		scope,
		cfg.Request.Timeout(),
		logging.ComponentLogger(*log, "executor"),
	)

	store := cache.NewStore(cfg.Cache.Enabled, cfg.Cache.TTL())
	coord := engine.New(store, exec, engine.Config{
		MaxRetries:     cfg.Request.MaxRetries,
		RetryBaseDelay: cfg.Request.RetryBaseDelay(),
		RetryMaxDelay:  cfg.Request.RetryMaxDelay(),
	}, logging.ComponentLogger(*log, "engine"))

	return &app{
		cfg:    cfg,
		client: client,
		store:  store,
		coord:  coord,
		logger: *log,
	}, nil
}
