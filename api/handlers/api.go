package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/api/live"
	"github.com/Rhejna/missing-person-app/api/scheduler"
	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/databases"
	"github.com/Rhejna/missing-person-app/media"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
	"github.com/Rhejna/missing-person-app/notify"
	"github.com/Rhejna/missing-person-app/proximity"
	"github.com/Rhejna/missing-person-app/service"
	"github.com/Rhejna/missing-person-app/store"
)

// App stores the router and every collaborator of the handlers, so it can
// be reused
type App struct {
	Router  *mux.Router
	Config  config.Config
	Service *service.Service

	Auth    *api.Authenticator
	Proxies *api.ProxyTrust
	Metrics *api.MetricsCollector
	Limiter *api.RateLimiter
	Hub     *live.Hub
	Photos  PhotoResolver
	Signer  UploadSigner
	Locator proximity.Locator

	scheduler *scheduler.Scheduler
	client    databases.ClientHelper
	closers   []func() error
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	v := api.NewValidator()
	fallback := models.Coordinate{Lat: a.Config.FallbackLat, Lng: a.Config.FallbackLng}

	c := Case{Svc: a.Service, Photos: a.Photos, Validate: v, Hub: a.Hub}
	if a.Auth != nil {
		c.Tokens = a.Auth
	}
	cm := Comment{Svc: a.Service, Validate: v}
	auth := Authority{Svc: a.Service, Locator: a.Locator, Fallback: fallback}
	md := Media{Signer: a.Signer}
	adm := Admin{Svc: a.Service, Photos: a.Photos, Validate: v}
	m := MetricsHandler{Collector: a.Metrics}

	r := mux.NewRouter()
	r.Use(api.RealIPMiddleware(a.Proxies))
	r.Use(api.RequestIDMiddleware)
	if a.Metrics != nil {
		r.Use(api.MetricsMiddleware(a.Metrics))
	}
	if a.Auth != nil {
		r.Use(a.Auth.Authenticate)
	}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.Handle("/cases", a.timed(a.limited(http.HandlerFunc(c.CreateCaseHandler)))).Methods("POST")
	v1.Handle("/cases", a.timed(http.HandlerFunc(c.CasesHandler))).Methods("GET")
	v1.Handle("/cases/{case_id}", a.timed(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	v1.Handle("/cases/{case_id}/attest", a.timed(http.HandlerFunc(c.AttestHandler))).Methods("POST")
	v1.Handle("/cases/{case_id}/report", a.timed(a.limited(http.HandlerFunc(c.ReportCaseHandler)))).Methods("POST")
	v1.Handle("/cases/{case_id}/sightings", a.timed(a.limited(http.HandlerFunc(c.SightingHandler)))).Methods("POST")
	v1.Handle("/cases/{case_id}/comments", a.timed(a.limited(http.HandlerFunc(cm.CreateCommentHandler)))).Methods("POST")
	v1.Handle("/cases/{case_id}/comments", a.timed(http.HandlerFunc(cm.CommentsHandler))).Methods("GET")
	// websocket upgrades need the raw connection, so no timeout here
	v1.HandleFunc("/cases/{case_id}/live", c.LiveHandler).Methods("GET")
	v1.Handle("/comments/{comment_id}/report", a.timed(a.limited(http.HandlerFunc(cm.ReportCommentHandler)))).Methods("POST")

	v1.Handle("/authorities", a.timed(http.HandlerFunc(auth.AuthoritiesHandler))).Methods("GET")
	v1.Handle("/reporter/cases", a.timed(a.limited(http.HandlerFunc(c.ReporterCasesHandler)))).Methods("GET")
	v1.Handle("/media/signature", a.timed(a.limited(http.HandlerFunc(md.SignatureHandler)))).Methods("POST")

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(api.RequireRole(api.RoleAdmin))
	admin.Handle("/cases", a.timed(http.HandlerFunc(adm.ReviewQueueHandler))).Methods("GET")
	admin.Handle("/stats", a.timed(http.HandlerFunc(adm.StatsHandler))).Methods("GET")
	admin.Handle("/cases/{case_id}/moderate", a.timed(http.HandlerFunc(adm.ModerateCaseHandler))).Methods("POST")
	admin.Handle("/cases/{case_id}/clear-flag", a.timed(http.HandlerFunc(adm.ClearFlagHandler))).Methods("POST")
	admin.Handle("/cases/{case_id}/found", a.timed(http.HandlerFunc(adm.MarkFoundHandler))).Methods("POST")
	admin.Handle("/cases/{case_id}/close", a.timed(http.HandlerFunc(adm.MarkClosedHandler))).Methods("POST")
	admin.Handle("/comments/{comment_id}/moderate", a.timed(http.HandlerFunc(adm.ModerateCommentHandler))).Methods("POST")
	admin.Handle("/authorities/reload", a.timed(http.HandlerFunc(adm.ReloadAuthoritiesHandler))).Methods("POST")
	admin.Handle("/metrics", http.HandlerFunc(m.GetMetricsDashboard)).Methods("GET")

	return r
}

func (a *App) timed(h http.Handler) http.Handler {
	if a.Config.RequestTimeout <= 0 {
		return h
	}
	return api.TimeoutMiddleware(a.Config.RequestTimeout)(h)
}

func (a *App) limited(h http.Handler) http.Handler {
	if a.Limiter == nil {
		return h
	}
	return a.Limiter.Middleware(h)
}

// Initialize wires the stores, engines and optional integrations selected
// by the config, then builds the router. Background work stops when ctx is
// cancelled.
func (a *App) Initialize(ctx context.Context) error {
	conf := &a.Config
	opts := store.Options{Prefix: conf.CaseNumberPrefix, Year: conf.CaseNumberYear}

	proxies, err := api.NewProxyTrust(conf.TrustedProxies)
	if err != nil {
		zap.S().With("error", err).Error("failed to parse trusted proxies")
		return err
	}
	a.Proxies = proxies

	var (
		cases    store.CaseStore
		comments store.CommentStore
		loaders  []proximity.Loader
	)
	if conf.AuthoritySeedFile != "" {
		loaders = append(loaders, proximity.YAMLLoader{Path: conf.AuthoritySeedFile})
	}

	switch conf.StoreDriver {
	case config.DriverMongo:
		client, err := databases.NewClient(conf)
		if err != nil {
			// if we fail to create a new database client, then kill the pod
			zap.S().With("error", err).Error("failed to create new client")
			return err
		}
		if err := client.Connect(ctx); err != nil {
			// if we fail to connect to the database, then kill the pod
			zap.S().With("error", err).Error("failed to connect to database")
			return err
		}
		a.client = client
		zap.S().Infow("missing-person-app has connected to the database", "database", conf.DatabaseName)

		db := databases.NewDatabase(conf, client)
		cs := store.NewMongoCaseStore(databases.NewCaseDatabase(db), databases.NewCounterDatabase(db), opts)
		cases = cs
		comments = store.NewMongoCommentStore(databases.NewCommentDatabase(db), cs, opts)
		loaders = append(loaders, proximity.MongoLoader{DB: databases.NewAuthorityDatabase(db)})
	case config.DriverMemory, "":
		cs := store.NewMemoryCaseStore(opts)
		cases = cs
		comments = store.NewMemoryCommentStore(cs, opts)
		zap.S().Warn("using the in-memory store, data is lost on restart")
	default:
		return fmt.Errorf("unknown store driver %q", conf.StoreDriver)
	}

	var ledger moderation.Ledger
	if conf.RedisURL != "" {
		rdb, err := moderation.NewRedisClient(conf.RedisURL)
		if err != nil {
			zap.S().With("error", err).Error("failed to parse redis url")
			return err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			zap.S().With("error", err).Error("failed to connect to redis")
			return err
		}
		ledger = moderation.NewRedisLedger(rdb)
		a.closers = append(a.closers, rdb.Close)
	}

	dir := proximity.NewDirectory(loaders...)
	if err := dir.Refresh(ctx); err != nil {
		zap.S().Warnw("initial authority load failed, starting with an empty directory", "error", err)
	}
	var refresher service.Refresher
	if len(loaders) > 0 {
		refresher = dir
		a.scheduler = scheduler.NewScheduler(dir, conf.AuthorityRefreshSchedule)
		if err := a.scheduler.Start(); err != nil {
			return err
		}
	}

	if conf.GeoIPDBPath != "" {
		g, err := proximity.OpenGeoIP(conf.GeoIPDBPath)
		if err != nil {
			zap.S().Warnw("geoip database unavailable, using the fallback location", "path", conf.GeoIPDBPath, "error", err)
		} else {
			a.Locator = g
			a.closers = append(a.closers, g.Close)
		}
	}

	var notifier service.Notifier
	if conf.SendGridAPIKey != "" {
		notifier = notify.NewMailer(conf)
	}

	cld, err := media.New(conf)
	switch {
	case err == nil:
		a.Photos = cld
		a.Signer = cld
	case errors.Is(err, media.ErrNotConfigured):
		zap.S().Info("cloudinary is not configured, photo references are served as stored")
	default:
		zap.S().Warnw("failed to configure cloudinary", "error", err)
	}

	a.Hub = live.NewHub()
	a.Metrics = api.NewMetricsCollector(ctx)
	a.Limiter = api.NewRateLimiter(ctx, float64(conf.RateLimitRPS), conf.RateLimitBurst, conf.RateLimitTTL)
	a.Auth = api.NewAuthenticator(conf)

	a.Service = service.New(service.Deps{
		Cases:      cases,
		Comments:   comments,
		Moderation: moderation.NewEngine(conf.CaseFlagThreshold, conf.CommentHideThreshold, ledger),
		Resolver:   proximity.NewResolver(dir, conf.DefaultRadiusKm, conf.MaxRadiusKm),
		Directory:  refresher,
		Notifier:   notifier,
		Publisher:  a.Hub,
	})

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Close stops the scheduler and releases database, redis and geoip handles
func (a *App) Close(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
