package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	rocket "github.com/IsaiahDupree/two-stage-steam-rocket"
	"github.com/IsaiahDupree/two-stage-steam-rocket/metrics"
	"github.com/IsaiahDupree/two-stage-steam-rocket/store"
)

// This service exposes the design engine over HTTP and keeps the run history in SQLite.

var (
	settings string
	verbose  bool
)

func init() {
	flag.StringVar(&settings, "settings", "", "optional server TOML file (server.addr, server.db)")
	flag.BoolVar(&verbose, "verbose", false, "log every request")
}

func main() {
	flag.Parse()
	viper.SetDefault("server.addr", ":8087")
	viper.SetDefault("server.db", "runs.db")
	viper.SetDefault("server.shutdown", "10s")
	viper.SetEnvPrefix("rocket")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if settings != "" {
		viper.SetConfigFile(settings)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("%s: Error %s", settings, err)
		}
	}

	conf, err := rocket.ConfigFromEnv()
	if err != nil {
		log.Fatalf("engine configuration: %s", err)
	}
	logger := kitlog.NewNopLogger()
	if verbose {
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
		logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	}

	runs, err := store.Open(viper.GetString("server.db"), logger)
	if err != nil {
		log.Fatal(err)
	}
	defer runs.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s := &server{conf: conf, runs: runs, metrics: metrics.NewCollector(reg), logger: logger}

	srv := &http.Server{
		Addr:              viper.GetString("server.addr"),
		Handler:           newRouter(s, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("server.shutdown"))
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[info] REST API server running on %s (run history in %s)", srv.Addr, viper.GetString("server.db"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
