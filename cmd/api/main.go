package main

import (
	"os"
	"strconv"

	"bookline/cmd/internal/domain/sqlite"
	"bookline/cmd/internal/domain/sqlite/repository"
	"bookline/cmd/internal/ivr"
	"bookline/cmd/internal/routes"
	"bookline/cmd/internal/service"
	"bookline/cmd/internal/utils"
	"bookline/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type config struct {
	Port          string
	DBPath        string
	HorizonDays   int
	CommitRetries int
	IVRSecret     string
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	validate := validator.New()
	validators.Register(validate)

	// Init SQLite
	db, err := sqlite.Init(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}

	// Getting repositories
	apptRepo := repository.NewAppointmentRepository(db)

	// Getting services
	bookingService := service.NewBookingService(apptRepo, validate, cfg.HorizonDays, cfg.CommitRetries)

	// Getting routes
	apptRoutes := routes.NewAppointmentDefault(bookingService)
	ivrRoutes := routes.NewIVRDefault(ivr.NewDispatcher(bookingService), utils.NewTokenParser(cfg.IVRSecret))

	e := echo.New()
	e.Use(middleware.CORS())

	// Appointments
	e.POST("/appointment", apptRoutes.CreateAppointment)
	e.GET("/appointment/:user_id", apptRoutes.GetAppointment)

	// Voice layer entry point
	e.POST("/ivr/intent", ivrRoutes.HandleIntent)

	// Operational
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	err = e.Start(":" + cfg.Port)
	if err != nil {
		e.Logger.Fatal(err)
	}
}

func loadConfig() config {
	cfg := config{
		Port:          env("PORT", "6060"),
		DBPath:        env("DB_PATH", "./database.db"),
		HorizonDays:   envInt("BOOKING_SEARCH_HORIZON_DAYS", 365),
		CommitRetries: envInt("BOOKING_COMMIT_RETRIES", 16),
		IVRSecret:     os.Getenv("IVR_TOKEN_SECRET"),
	}
	if cfg.IVRSecret == "" {
		log.Fatal("IVR_TOKEN_SECRET is required")
	}
	return cfg
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("%s must be a positive integer, got %q", key, v)
	}
	return n
}
