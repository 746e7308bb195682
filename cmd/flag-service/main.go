package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joseaugf/cop320-cw/pkg/api"
	"github.com/joseaugf/cop320-cw/pkg/environment"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/joseaugf/cop320-cw/pkg/flags/store"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/joseaugf/cop320-cw/pkg/telemetry"
	"github.com/joseaugf/cop320-cw/pkg/utils/retry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

func main() {
	cmd := &cobra.Command{
		Use:           "flag-service",
		Short:         "Feature flag control plane for the fault injection engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := cmd.Execute(); err != nil {
		log.Fatalf("flag-service exited: %v", err)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	details := environment.ServiceDetails{}
	environment.GetENV(&details, "flag-service", ":8090")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitOTelSDK(ctx, details.ServiceName, details.OTELEndpoint)
	if err != nil {
		return errors.Wrap(err, "unable to initialize tracing")
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warnf("tracing shutdown failed: %v", err)
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     details.RedisAddr,
		Password: details.RedisPassword,
	})
	defer rdb.Close()

	if err := retry.Times(30).Wait(time.Second).Try(func(attempt uint) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}); err != nil {
		return errors.Wrapf(err, "redis at %s is not reachable", details.RedisAddr)
	}

	catalog, err := flags.Catalog(details.FlagDefaultsFile)
	if err != nil {
		return err
	}
	st := store.New(rdb, catalog)
	if err := st.InitializeDefaults(ctx); err != nil {
		return errors.Wrap(err, "unable to seed default flags")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(details.ServiceName))
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.NewFlagHandler(st).Register(router)

	srv := &http.Server{Addr: details.ListenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("[Start]: flag-service listening on %v", details.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
