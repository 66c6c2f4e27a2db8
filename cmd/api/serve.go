package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/data/store"
	"github.com/akolanti/LayoutAPI/internal/domain/jobModel"
	"github.com/akolanti/LayoutAPI/internal/handlers"
	"github.com/akolanti/LayoutAPI/internal/job"
	"github.com/akolanti/LayoutAPI/internal/layout"
	"github.com/akolanti/LayoutAPI/internal/middleware"
	"github.com/akolanti/LayoutAPI/internal/server"
	"github.com/akolanti/LayoutAPI/internal/worker"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the layout analysis server",
	Long: `Start the HTTP API and the worker pool that runs queued analyses.

Endpoints:
  POST /analyze              analyse a PDF and wait for the segments
  POST /analyze/async        queue a PDF, poll /status/{id}
  GET  /status/{id}          job status and segments
  GET  /xml/{xml_file_name}  text layer saved by a previous analysis
  GET  /health               liveness and model readiness
  GET  /metrics              prometheus metrics
  GET  /swagger              API documentation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(configManager)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides server.listen_addr)")
}

func runServer(cm *config.Manager) error {
	var logger = logger_i.NewLogger("main")
	cfg := cm.Get()
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	cm.OnChange(func(c *config.Config) {
		logger_i.SetLevel(c.Log.Level)
		logger.Info("Config reloaded", "logLevel", c.Log.Level)
	})
	cm.Watch()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	//init buffered job channel
	bufferLimit := cfg.Workers.BufferLimit
	if bufferLimit < 1 {
		bufferLimit = config.BufferLimit
	}
	jobChannel := make(chan jobModel.Job, bufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	jobStore, resultStore, err := store.NewStores(serviceContext, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
		ResultStore:       resultStore,
	})

	layoutService, models := newLayoutService(cfg)

	middleware.Init(cfg.Server)
	handlers.InitJobHandler(service, cfg.Workers)
	handlers.InitAnalyzeHandler(handlers.AnalyzeDependencies{
		Layout:     layoutService,
		Config:     cfg,
		ModelReady: models.Ready,
	})

	//init worker pool
	worker.InitServices(service, layoutService, cfg.Workers)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	layout.StartSweeper(serviceContext, cfg)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(cfg.Server)

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}
