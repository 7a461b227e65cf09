package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gen-gallery/internal/bloburl"
	"gen-gallery/internal/breaker"
	"gen-gallery/internal/gallery"
	"gen-gallery/internal/generate"
	"gen-gallery/internal/handlers"
	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/startup"
	"gen-gallery/internal/store"
	"gen-gallery/internal/thumbnail"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize the media store
	storeStart := time.Now()
	st, err := store.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize media store: %v", err)
	}
	defer st.Close()
	startup.LogStoreInit(time.Since(storeStart))

	// Refresh connection pool gauges periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		for range ticker.C {
			st.UpdateConnMetrics()
		}
	}()

	// Native thumbnail acceleration is optional; the pure-Go path covers
	// hosts without libvips.
	if err := thumbnail.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure-Go thumbnailer: %v", err)
	}
	defer thumbnail.ShutdownVips()

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	breakers := breaker.NewRegistry(config.BreakerThreshold, config.BreakerCooldown)
	blobs := bloburl.NewCache("/api/blob/")

	client := generate.NewClient(
		config.ImageEndpoint,
		config.VideoSubmitEndpoint,
		config.VideoStatusEndpoint,
		config.GenerationAPIKey,
	)

	startup.LogOrchestratorInit(config.PollInterval, config.PollTimeout)
	orch := generate.New(generate.Options{
		Remote:       client,
		Store:        st,
		Thumbnails:   thumbnail.NewPipeline(0, 0),
		Breakers:     breakers,
		PollInterval: config.PollInterval,
		PollTimeout:  config.PollTimeout,
	})

	gal := gallery.New(st, orch, blobs)

	// Initialize handlers
	h := handlers.New(st, orch, gal, blobs, breakers)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogBlobRequests = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply metrics and compression middleware
	metered := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)
	handler := middleware.Compression()(metered)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics are served on their own port so the scrape endpoint is never
	// exposed with the application API.
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, orch)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.Livez).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Generation
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate", h.Generate).Methods("POST")
	api.HandleFunc("/generate/{id}", h.GetGeneration).Methods("GET")
	api.HandleFunc("/generate/{id}/cancel", h.CancelGeneration).Methods("POST")

	// Gallery
	api.HandleFunc("/gallery", h.GetGallery).Methods("GET")
	api.HandleFunc("/blob/{token}", h.GetBlob).Methods("GET")
	api.HandleFunc("/image/{id}/full", h.GetFullImage).Methods("GET")
	api.HandleFunc("/image/{id}/url", h.GetFullImageURL).Methods("GET")
	api.HandleFunc("/image/{id}/folder", h.MoveArtifact).Methods("POST")
	api.HandleFunc("/image/{id}", h.DeleteArtifact).Methods("DELETE")
	api.HandleFunc("/clear", h.ClearGallery).Methods("POST")

	// Folders
	api.HandleFunc("/folders", h.ListFolders).Methods("GET")
	api.HandleFunc("/folders", h.CreateFolder).Methods("POST")
	api.HandleFunc("/folders/reorder", h.ReorderFolders).Methods("POST")
	api.HandleFunc("/folders/{id}", h.RenameFolder).Methods("PUT")
	api.HandleFunc("/folders/{id}", h.DeleteFolder).Methods("DELETE")

	// Storage
	api.HandleFunc("/storage", h.GetStorage).Methods("GET")

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, orch *generate.Orchestrator) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Cancelling generation jobs")
	orch.Close()
	startup.LogShutdownStepComplete("Generation jobs stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
