package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/api"
	"github.com/linesmerrill/custody-ledger-api/api/scheduler"
	"github.com/linesmerrill/custody-ledger-api/blobstore"
	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/databases"
	"github.com/linesmerrill/custody-ledger-api/notify"
)

// requestTimeout bounds every /api/v1 request
const requestTimeout = 30 * time.Second

// App stores the router and its collaborators, so it can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	Service   RecordService
	Auth      *api.Auth
	Pinger    api.Pinger
	LiveFeed  http.Handler
	SocketIO  http.Handler
	UploadDir string

	Repo    *custody.Repository
	backend *databases.Backend
	hub     *notify.Hub
	sio     *notify.SocketIO
	relay   *notify.RedisRelay
	cron    *scheduler.Scheduler
	cancel  context.CancelFunc
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	if a.Auth == nil {
		a.Auth = api.NewAuth(&a.Config)
	}
	rec := Record{Service: a.Service}

	r := api.New(a.Pinger)
	r.Use(api.MetricsMiddleware, a.Auth.Middleware)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(api.TimeoutMiddleware(requestTimeout))

	apiV1.HandleFunc("/auth/token", a.Auth.CreateToken).Methods(http.MethodPost)

	apiV1.HandleFunc("/records", api.RequirePermission(custody.PermViewPublicLedger, rec.RecordsHandler)).Methods(http.MethodGet)
	apiV1.HandleFunc("/records", api.RequirePermission(custody.PermCreateIntake, rec.CreateRecordHandler)).Methods(http.MethodPost)
	apiV1.HandleFunc("/records/{record_id}", api.RequirePermission(custody.PermViewPublicLedger, rec.RecordByIDHandler)).Methods(http.MethodGet)
	apiV1.HandleFunc("/records/{record_id}", api.RequirePermission(custody.PermUpdateStatus, rec.UpdateRecordHandler)).Methods(http.MethodPut)
	apiV1.HandleFunc("/records/{record_id}", api.RequirePermission(custody.PermUpdateStatus, rec.ModifyProfileHandler)).Methods(http.MethodPatch)
	apiV1.HandleFunc("/records/{record_id}/status", api.RequirePermission(custody.PermUpdateStatus, rec.ChangeStatusHandler)).Methods(http.MethodPut)
	apiV1.HandleFunc("/records/{record_id}/archive", api.RequirePermission(custody.PermArchiveRecords, rec.ArchiveRecordHandler)).Methods(http.MethodPut)
	apiV1.HandleFunc("/records/{record_id}/concern", api.RequirePermission(custody.PermTriggerEmergency, rec.ReportConcernHandler)).Methods(http.MethodPost)
	apiV1.HandleFunc("/records/{record_id}/sos", api.RequirePermission(custody.PermTriggerEmergency, rec.TriggerSOSHandler)).Methods(http.MethodPost)
	apiV1.HandleFunc("/alerts", api.RequirePermission(custody.PermTriggerEmergency, rec.CreateAlertHandler)).Methods(http.MethodPost)
	apiV1.HandleFunc("/upload", api.RequirePermission(custody.PermAttachFiles, rec.UploadHandler)).Methods(http.MethodPost)
	apiV1.HandleFunc("/files", api.RequirePermission(custody.PermViewPublicLedger, rec.FileURLHandler)).Methods(http.MethodGet)

	// realtime feeds hijack the connection, so they stay outside the timeout
	if a.LiveFeed != nil {
		r.HandleFunc("/ws/records", api.RequirePermission(custody.PermAccessLiveFeed, a.LiveFeed.ServeHTTP))
	}
	if a.SocketIO != nil {
		r.PathPrefix("/socket.io/").Handler(a.SocketIO)
	}
	if a.UploadDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.UploadDir))))
	}
	return r
}

// Initialize is invoked by the serve command to connect the datastore,
// the notification sinks and the blob store, start the background jobs
// and create a router
func (a *App) Initialize(ctx context.Context) error {
	backend, err := databases.Open(ctx, &a.Config)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	a.backend = backend
	a.Pinger = backend

	blobs, err := a.openBlobStore()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.hub = notify.NewHub()
	a.sio = notify.NewSocketIO()
	local := notify.Fanout{a.hub, a.sio}
	sinks := notify.Fanout{a.hub, a.sio}
	var locker scheduler.Locker
	if a.Config.RedisURL != "" {
		a.relay, err = notify.NewRedisRelay(a.Config.RedisURL, notify.DefaultChannel)
		if err != nil {
			return err
		}
		if err := a.relay.Ping(ctx); err != nil {
			zap.S().Warnw("redis relay unreachable, events stay local until it recovers", "error", err)
		}
		sinks = append(sinks, a.relay)
		locker = a.relay
		go a.relay.Run(runCtx, local)
	}

	opts := []custody.Option{
		custody.WithBlobStore(blobs),
		custody.WithNotifier(sinks),
	}
	if a.Config.SendGridAPIKey != "" && a.Config.AlertEmail != "" {
		opts = append(opts, custody.WithEscalator(
			notify.NewEmailEscalator(a.Config.SendGridAPIKey, a.Config.FromEmail, a.Config.AlertEmail, a.Config.BaseURL),
		))
	} else {
		zap.S().Infow("SENDGRID_API_KEY or ALERT_EMAIL not set, emergency escalation email disabled")
	}
	a.Repo = custody.NewRepository(backend, opts...)
	a.Service = a.Repo

	a.cron = scheduler.NewScheduler(a.Repo, local, locker)
	if err := a.cron.Start(a.Config.ResyncSchedule, a.Config.IntegritySchedule); err != nil {
		return err
	}

	a.LiveFeed = a.hub
	a.SocketIO = a.sio.Handler()
	a.Auth = api.NewAuth(&a.Config)

	// initialize api router
	a.Router = a.New()
	return nil
}

func (a *App) openBlobStore() (custody.BlobStore, error) {
	if a.Config.CloudinaryCloudName != "" {
		zap.S().Infow("storing uploads in cloudinary", "cloud", a.Config.CloudinaryCloudName)
		return blobstore.NewCloudinary(a.Config.CloudinaryCloudName, a.Config.CloudinaryAPIKey, a.Config.CloudinaryAPISecret)
	}
	disk, err := blobstore.NewDisk(a.Config.UploadDir, a.Config.BaseURL)
	if err != nil {
		return nil, err
	}
	a.UploadDir = disk.Root()
	zap.S().Infow("storing uploads on disk", "dir", disk.Root())
	return disk, nil
}

// Close stops the background jobs and the realtime feeds and disconnects
// the datastore
func (a *App) Close(ctx context.Context) error {
	if a.cron != nil {
		a.cron.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if a.hub != nil {
		a.hub.Close()
	}
	if a.sio != nil {
		errs = append(errs, a.sio.Close())
	}
	if a.relay != nil {
		errs = append(errs, a.relay.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close(ctx))
	}
	return errors.Join(errs...)
}
