package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/internal/middleware"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
)

var (
	server     *http.Server
	_logger    = logger_i.NewLogger("Server")
	routesOnce sync.Once
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// Routes returns the router with every API endpoint registered.
func Routes() http.Handler {
	r := utils.GetRouter()
	routesOnce.Do(func() {
		r.Router.Post("/analyze", middleware.AnalyzeHandler)
		r.Router.Post("/analyze/async", middleware.AnalyzeAsyncHandler)
		r.Router.Options("/analyze", middleware.AnalyzeHandler)
		r.Router.Options("/analyze/async", middleware.AnalyzeAsyncHandler)
		r.Router.Get("/status/{id}", middleware.GetStatusHandler)
		r.Router.Get("/xml/{xml_file_name}", middleware.GetXmlHandler)
		r.Router.Get("/health", middleware.HealthHandler)
	})
	return r.Router
}

func CreateServer(cfg config.ServerConfig) {
	_logger = logger_i.NewLogger("Server")

	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = config.ServerListenAddr
	}
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force shut down")
		os.Exit(1)
	}
}
