// Package main provides the Weft API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"
	"github.com/weftwork/weft/pkg/engine"
	"github.com/weftwork/weft/pkg/eventbus"
	"github.com/weftwork/weft/pkg/otelhelper"
	"github.com/weftwork/weft/pkg/registry"
	"github.com/weftwork/weft/pkg/store"
	"github.com/weftwork/weft/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger   *slog.Logger
	store    store.Store
	registry *registry.Registry
	engine   *engine.Engine
}

func NewAPI(ctx context.Context, logger *slog.Logger, st store.Store, bus eventbus.EventBus, tracing bool) (*API, error) {
	var tracer trace.Tracer

	if tracing {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "weft-api")
		if err != nil {
			return nil, err
		}
	}

	reg := registry.NewRegistry(logger)
	eng := engine.NewEngine(engine.Config{
		Registry:   reg,
		Flows:      st,
		Executions: st,
		Approvals:  st,
		Bus:        bus,
		Tracer:     tracer,
		Logger:     logger,
		WorkerID:   "api-" + uuid.New().String()[:8],
	})

	err := reg.RegisterDefaults(registry.Dependencies{
		Approvals:  st,
		Forms:      st,
		Executions: eng,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &API{logger: logger, store: st, registry: reg, engine: eng}, nil
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Weft API")
	})

	web.NewAPIHandlers(a.store, a.engine, a.registry).Register(app)

	return app
}

func (a *API) Start(port int) error {
	a.logger.Info("Starting Weft API", "port", port)

	return a.App().Listen(":" + strconv.Itoa(port))
}
