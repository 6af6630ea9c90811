package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Teddy2289/backtime/docs" // connecting generated Swagger files
	"github.com/Teddy2289/backtime/internal/apiservice"
	authz "github.com/Teddy2289/backtime/internal/authorization"
	"github.com/Teddy2289/backtime/internal/bdkeeper"
	"github.com/Teddy2289/backtime/internal/config"
	"github.com/Teddy2289/backtime/internal/controllers"
	"github.com/Teddy2289/backtime/internal/logger"
	"github.com/Teddy2289/backtime/internal/middleware"
	"github.com/Teddy2289/backtime/internal/storage"
	"github.com/Teddy2289/backtime/internal/tasktimer"
	"github.com/Teddy2289/backtime/internal/workcalendar"
	"github.com/Teddy2289/backtime/internal/workday"
	"github.com/Teddy2289/backtime/internal/workerpool"
)

type Server struct {
	srv *http.Server
	ctx context.Context
}

// NewServer creates a new Server instance with the provided context
func NewServer(ctx context.Context) *Server {
	server := new(Server)
	server.ctx = ctx
	return server
}

// Serve starts the server and handles signal interruption for graceful shutdown
func (server *Server) Serve() {
	// create and initialize a new option instance
	option := config.NewOptions()
	option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Fatalln(err)
	}

	// initialize the keeper instance
	keeper := initializeKeeper(option.DataBaseDSN, nLogger)

	// initialize the storage instance
	var memoryStorage *storage.MemoryStorage
	if keeper == nil {
		nLogger.Debug("Failed to initialize keeper")

		memoryStorage = initializeStorage(nil, nLogger)
	} else {
		defer keeper.Close()

		memoryStorage = initializeStorage(keeper, nLogger)
	}

	// work-calendar policy for starting days and daily targets
	calendar := workcalendar.NewPolicy(option.DailyTarget, option.SaturdayTarget, nLogger)

	// the two trackers holding the transition logic
	dayTracker := workday.NewTracker(memoryStorage, calendar, nLogger)
	taskTimer := tasktimer.NewTimer(memoryStorage, nLogger)

	// create a new workerpool for background task processing
	var allTask []*workerpool.Task
	pool := initializeWorkerPool(allTask, option, nLogger)

	// create a new NewJWTAuthz for user authorization
	authz := initializeAuthz(memoryStorage, option, nLogger)

	// create a new controller to process incoming requests
	basecontr := initializeBaseController(memoryStorage, dayTracker, taskTimer, nLogger, authz, option)

	// get a middleware for logging requests
	reqLog := middleware.NewReqLog(nLogger)

	// start the worker pool in the background
	go pool.RunBackground()

	// start the background closer for stale work days
	apiService := initializeApiService(dayTracker, pool, memoryStorage, nLogger, option)
	apiService.Start()
	defer apiService.Stop()

	// create router and mount routes
	r := chi.NewRouter()
	r.Use(reqLog.RequestLogger)
	r.Mount("/", basecontr.Route())

	// Add route for Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// configure and start the server
	server.srv = startServer(r, option.RunAddr())

	// Create a channel to receive interrupt signals (e.g., CTRL+C)
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)

	// Block execution until a signal is received
	<-stopChan

	// Perform graceful server shutdown
	server.Shutdown()
}

// initializeKeeper initializes a BDKeeper instance
func initializeKeeper(dataBaseDSN func() string, logger *logger.Logger) *bdkeeper.BDKeeper {
	if dataBaseDSN() == "" {
		logger.Warn("DataBaseDSN is empty")
		return nil
	}

	return bdkeeper.NewBDKeeper(dataBaseDSN, logger)
}

// initializeStorage initializes a MemoryStorage instance
func initializeStorage(keeper storage.Keeper, logger *logger.Logger) *storage.MemoryStorage {
	if keeper == nil {
		logger.Warn("Keeper is nil, storage runs in memory only")

		return storage.NewMemoryStorage(nil, logger)
	}

	return storage.NewMemoryStorage(keeper, logger)
}

// initializeBaseController initializes a BaseController instance
func initializeBaseController(storage *storage.MemoryStorage, tracker *workday.Tracker,
	timer *tasktimer.Timer, logger *logger.Logger, authz *authz.JWTAuthz, option *config.Options,
) *controllers.BaseController {
	return controllers.NewBaseController(storage, tracker, timer, logger, authz, option.DefaultEndTime)
}

// initializeWorkerPool initializes a worker pool with the provided tasks and options
func initializeWorkerPool(allTask []*workerpool.Task, option *config.Options, logger *logger.Logger) *workerpool.Pool {
	return workerpool.NewPool(allTask, option.Concurrency, logger)
}

// initializeAuthz initializes a JWTAuthz instance for user authorization
func initializeAuthz(storage *storage.MemoryStorage, option *config.Options, logger *logger.Logger) *authz.JWTAuthz {
	return authz.NewJWTAuthz(storage, option.JWTSigningKey(), logger)
}

// initializeApiService initializes an ApiService instance
func initializeApiService(tracker *workday.Tracker, pool *workerpool.Pool, memoryStorage *storage.MemoryStorage, logger *logger.Logger, option *config.Options) *apiservice.ApiService {
	return apiservice.NewApiService(tracker, pool, memoryStorage, logger, option.TaskExecutionInterval)
}

// startServer configures and starts an HTTP server with the provided router and address
func startServer(router chi.Router, address string) *http.Server {
	const (
		oneMegabyte = 1 << 20
		readTimeout = 3 * time.Second
	)

	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      readTimeout,
		IdleTimeout:       readTimeout,
		ReadTimeout:       readTimeout,
		MaxHeaderBytes:    oneMegabyte, // 1 MB
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalln(err)
		}
	}()

	return server
}

// Shutdown gracefully shuts down the server
func (server *Server) Shutdown() {
	log.Printf("server stopped")

	const shutdownTimeout = 5 * time.Second
	ctxShutDown, cancel := context.WithTimeout(server.ctx, shutdownTimeout)

	defer cancel()

	if server.srv != nil {
		if err := server.srv.Shutdown(ctxShutDown); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("server Shutdown Failed:%s", err)
			}
		}
	}

	log.Println("server exited properly")
}
