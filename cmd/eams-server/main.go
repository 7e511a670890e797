package main

import (
	"flag"
	"log/slog"

	"eamsassist-backend/internal/api"
	"eamsassist-backend/internal/calendar"
	"eamsassist-backend/internal/components/chrono"
	"eamsassist-backend/internal/config"
	"eamsassist-backend/internal/eams/auth"
	"eamsassist-backend/internal/eams/scraper"
	"eamsassist-backend/internal/eams/transport"
	"eamsassist-backend/lib/serviceutil"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the json5 config file.")
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	if err := config.LoadEnv(); err != nil {
		serviceutil.Fatal("load env", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if *verbose {
		cfg.Server.Debug = true
	}

	tel := InitTelemetry(ctx, cfg)

	clock, err := chrono.NewStandardImpl(cfg.Calendar.TimeZone)
	if err != nil {
		serviceutil.Fatal("load time zone", err)
	}
	transportOpts, err := cfg.TransportOptions()
	if err != nil {
		serviceutil.Fatal("init transport", err)
	}
	client := transport.NewClient(transportOpts, tel)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(
		auth.NewFlow(client, cfg.Endpoints, tel),
		scraper.NewScraper(client, cfg.Endpoints, clock, tel),
		clock,
		tel,
		api.Options{
			SessionMaxAge: cfg.SessionMaxAge(),
			SecureCookies: cfg.Server.SecureCookies,
			Calendar:      calendar.Options{MaxWeeks: cfg.Calendar.MaxWeeks},
			Encode: calendar.EncodeOptions{
				CalendarName: cfg.Calendar.Name,
				TimeZone:     cfg.Calendar.TimeZone,
			},
		},
	)

	slog.Info("upstream", "login", cfg.Endpoints.Login, "eams", cfg.Endpoints.EAMS)
	serviceutil.StartHttpServer(ctx, cfg.Server.Port, api.NewRouter(handler))
}
