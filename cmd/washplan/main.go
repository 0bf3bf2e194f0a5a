package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/washplan/washplan/app/controllers"
	"github.com/washplan/washplan/app/repository"
	"github.com/washplan/washplan/internal/pkg/cache"
	"github.com/washplan/washplan/internal/pkg/database"
	"github.com/washplan/washplan/internal/pkg/env"
	"github.com/washplan/washplan/internal/pkg/jobqueue"
	"github.com/washplan/washplan/internal/pkg/payments"
	"github.com/washplan/washplan/internal/pkg/reservation"
	"github.com/washplan/washplan/internal/pkg/router"
	"github.com/washplan/washplan/internal/pkg/wizard"
	"github.com/washplan/washplan/internal/pkg/worker"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	holdDuration := env.GetEnvDuration("SLOT_HOLD_DURATION_MINUTES", time.Minute, reservation.DefaultHoldDuration)

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	scheduler := worker.NewScheduler(queue)

	engine := reservation.NewEngine(db, holdDuration)
	orchestrator := wizard.NewOrchestrator(db, engine, scheduler)
	provider := payments.NewProviderFromEnv()
	paymentService := payments.NewService(db, provider, scheduler)

	worker.Register(queue, worker.Deps{
		DB:       db,
		Engine:   engine,
		Payments: paymentService,
	})
	manager.RegisterTask(jobqueue.BackgroundTask{
		Name:     "sweep_overdue_holds",
		Interval: time.Minute,
		Run: func() error {
			return worker.SweepOverdueHolds(db, scheduler)
		},
	})
	manager.RegisterTask(jobqueue.BackgroundTask{
		Name:     "sweep_unprocessed_events",
		Interval: 2 * time.Minute,
		Run: func() error {
			return worker.SweepUnprocessedEvents(db, scheduler)
		},
	})
	manager.Start()

	controllers.SetServices(controllers.Services{
		Orchestrator: orchestrator,
		Engine:       engine,
		Payments:     paymentService,
		Scheduler:    scheduler,
		Provider:     provider,
	})

	// Locate the project root so the OpenAPI document is found both when
	// running from the repo root and from cmd/washplan.
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		AppName:   "washplan",
		BodyLimit: 1048576, // 1 MiB, JSON API only
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
