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
	"github.com/joseaugf/cop320-cw/pkg/chaos/failure"
	"github.com/joseaugf/cop320-cw/pkg/chaos/infra"
	"github.com/joseaugf/cop320-cw/pkg/environment"
	"github.com/joseaugf/cop320-cw/pkg/flags/client"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/joseaugf/cop320-cw/pkg/storefront"
	"github.com/joseaugf/cop320-cw/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		Use:           "storefront",
		Short:         "Demo storefront with flag-driven fault injection",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	if err := cmd.Execute(); err != nil {
		log.Fatalf("storefront exited: %v", err)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	details := environment.ServiceDetails{}
	environment.GetENV(&details, "storefront", ":8080")

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

	flagClient := client.New(details.FlagServiceURL)
	chaosSim := infra.NewSimulator(infra.NewOSTerminator())
	defer chaosSim.Stop()
	failureSim := failure.NewSimulator(flagClient)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(details.ServiceName))
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	storefront.NewHandler(details.ServiceName, flagClient, chaosSim, failureSim).Register(router)
	api.NewChaosMetricsHandler(details.ServiceName, chaosSim).Register(router)

	srv := &http.Server{Addr: details.ListenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("[Start]: storefront listening on %v, flag service at %v", details.ListenAddr, details.FlagServiceURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
