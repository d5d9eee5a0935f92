package fakeapi

import (
	"context"
	"net/http"
	"time"

	"railctl/internal/config"
	"railctl/internal/errors"
	"railctl/internal/log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options configure a Server.
type Options struct {
	Secret       []byte
	TokenTTL     time.Duration
	AllowOrigins []string
	Logger       *log.Logger
}

// OptionsFromConfig takes the mock section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Secret:       []byte(cfg.Mock.Secret),
		TokenTTL:     cfg.Mock.TokenTTL,
		AllowOrigins: cfg.Mock.AllowOrigins,
	}
}

// Server serves a Store over HTTP.
type Server struct {
	store   *Store
	opts    Options
	metrics *metrics
	engine  *gin.Engine
}

// New builds the router over store.
func New(store *Store, opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = tokenTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	srv := &Server{store: store, opts: opts, metrics: newMetrics()}
	srv.engine = srv.router()
	return srv
}

// Handler returns the HTTP handler.
func (srv *Server) Handler() http.Handler {
	return srv.engine
}

func (srv *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(srv.opts.Logger), gin.Recovery(), srv.metrics.middleware())
	if len(srv.opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     srv.opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies(nil)

	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "no route for "+c.Request.Method+" "+c.Request.URL.Path)
	})

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(srv.metrics.handler()))

	auth := r.Group("/api/auth")
	auth.POST("/login", srv.login)
	auth.POST("/register", srv.register)

	signedIn := r.Group("/", srv.requireToken())
	admin := signedIn.Group("/", requireRole(RoleAdmin))

	// Booking endpoints open to every signed-in user.
	signedIn.GET("/schedules/search", srv.searchSchedules)
	signedIn.GET("/schedules/:id/available-seats", srv.availableSeats)
	user := signedIn.Group("/user")
	user.GET("/passengers", srv.myPassengers)
	user.POST("/passengers", srv.addMyPassenger)
	user.GET("/tickets", srv.myTickets)

	admin.GET("/tickets/returned/count", srv.returnedCount)
	admin.GET("/trains/:id/personnel", srv.trainPersonnel)

	s := srv.store
	std := routes{read: admin, write: admin}
	mount(srv, std, s.departments)
	mount(srv, std, s.positions)
	mount(srv, std, s.employees)
	mount(srv, std, s.brigades)
	mount(srv, std, s.medicalExaminations)
	mount(srv, std, s.stations)
	mount(srv, std, s.routeCategories)
	mount(srv, std, s.routes)
	mount(srv, std, s.routeStops)
	mount(srv, std, s.trainTypes)
	mount(srv, std, s.trains)
	mount(srv, std, s.cars)
	mount(srv, std, s.seats)
	mount(srv, std, s.maintenances)
	mount(srv, std, s.schedules)
	mount(srv, std, s.passengers)
	mount(srv, std, s.luggage)
	mount(srv, routes{read: admin, write: admin, create: signedIn.Group("/", srv.ticketOwner())}, s.tickets)

	return r
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (srv *Server) Run(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		srv.opts.Logger.Infof("railmock listening on http://%s", addr)
		if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-ctx.Done():
	}

	srv.opts.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	srv.opts.Logger.Info("server stopped")
	return nil
}
