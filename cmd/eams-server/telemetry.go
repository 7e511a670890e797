package main

import (
	"context"
	"log/slog"
	"time"

	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/config"
	"eamsassist-backend/lib/serviceutil"
)

func InitTelemetry(ctx context.Context, cfg config.Config) telemetry.API {
	telemetry.InitSlog(cfg.Server.Debug, cfg.Server.JSONLogs)

	if cfg.Server.Debug {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	providers, err := telemetry.Setup(ctx, "eams-server", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	}()

	tel := telemetry.SlogAPI{}
	err = telemetry.InstrumentPerfStats(ctx, 30*time.Second, tel)
	if err != nil {
		serviceutil.Fatal("instrument perf stats", err)
	}
	return tel
}
