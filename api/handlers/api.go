package handlers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civichero/civichero-api/api"
	"github.com/civichero/civichero-api/api/scheduler"
	"github.com/civichero/civichero-api/config"
	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/mailer"
)

// DailyReportLimit caps how many reports a single user may file per day
// when the redis-backed limiter is enabled.
const DailyReportLimit = 10

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Mailer    mailer.Sender
	Redis     *redis.Client
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	auth := api.Auth{Secret: a.Config.JWTSecret}

	// a typed-nil *redis.Client must not reach the limiter as a non-nil
	// interface
	var counter api.ReportCounter
	if a.Redis != nil {
		counter = a.Redis
	}
	limit := api.RateLimiter(counter, DailyReportLimit)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(limit(h))
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(api.AdminOnly(h))
	}

	u := User{
		DB:        databases.NewUserDatabase(a.dbHelper),
		IDB:       databases.NewIssueDatabase(a.dbHelper),
		Mail:      a.Mailer,
		Captcha:   NewGoogleCaptcha(a.Config.RecaptchaSecret),
		JWTSecret: a.Config.JWTSecret,
	}
	i := Issue{
		DB:        databases.NewIssueDatabase(a.dbHelper),
		UDB:       databases.NewUserDatabase(a.dbHelper),
		Mail:      a.Mailer,
		UploadDir: a.Config.UploadDir,
	}
	v := Violation{
		DB:        databases.NewViolationDatabase(a.dbHelper),
		UDB:       databases.NewUserDatabase(a.dbHelper),
		Mail:      a.Mailer,
		UploadDir: a.Config.UploadDir,
	}
	d := Drive{
		DB:   databases.NewDriveDatabase(a.dbHelper),
		UDB:  databases.NewUserDatabase(a.dbHelper),
		Mail: a.Mailer,
	}
	adm := Admin{
		ADB:       databases.NewAdminDatabase(a.dbHelper),
		UDB:       databases.NewUserDatabase(a.dbHelper),
		IDB:       databases.NewIssueDatabase(a.dbHelper),
		VDB:       databases.NewViolationDatabase(a.dbHelper),
		DDB:       databases.NewDriveDatabase(a.dbHelper),
		Mail:      a.Mailer,
		JWTSecret: a.Config.JWTSecret,
	}

	r := mux.NewRouter()

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api").Subrouter()

	apiCreate.Handle("/auth/signup", http.HandlerFunc(u.SignupHandler)).Methods("POST")
	apiCreate.Handle("/auth/login", http.HandlerFunc(u.LoginHandler)).Methods("POST")
	apiCreate.Handle("/signup", http.HandlerFunc(u.CaptchaSignupHandler)).Methods("POST")
	apiCreate.Handle("/auth/me", protected(u.MeHandler)).Methods("GET")

	apiCreate.Handle("/issues", limited(i.IssueCreateHandler)).Methods("POST")
	apiCreate.Handle("/issues", protected(i.IssueHandler)).Methods("GET")
	apiCreate.Handle("/issues/user", protected(i.IssuesByUserHandler)).Methods("GET")
	apiCreate.Handle("/issues/{issue_id}", protected(i.IssueByIDHandler)).Methods("GET")
	apiCreate.Handle("/issues/{issue_id}", protected(i.IssueUpdateHandler)).Methods("PUT")
	apiCreate.Handle("/issues/{issue_id}", protected(i.IssueDeleteHandler)).Methods("DELETE")

	apiCreate.Handle("/violations/report", limited(v.ViolationReportHandler)).Methods("POST")
	apiCreate.Handle("/violations", protected(v.ViolationHandler)).Methods("GET")
	apiCreate.Handle("/violations/user", protected(v.ViolationsByUserHandler)).Methods("GET")

	apiCreate.Handle("/drives", http.HandlerFunc(d.DriveHandler)).Methods("GET")
	apiCreate.Handle("/drives/joined", protected(d.DrivesJoinedHandler)).Methods("GET")
	apiCreate.Handle("/drives/create", protected(d.DriveCreateHandler)).Methods("POST")
	apiCreate.Handle("/drives/join/{drive_id}", protected(d.DriveJoinHandler)).Methods("POST")
	apiCreate.Handle("/drives/leave/{drive_id}", protected(d.DriveLeaveHandler)).Methods("POST")

	apiCreate.Handle("/admin/login", http.HandlerFunc(adm.AdminLoginHandler)).Methods("POST")
	apiCreate.Handle("/admin/stats", adminOnly(adm.StatsHandler)).Methods("GET")
	apiCreate.Handle("/admin/top-reporters", adminOnly(adm.TopReportersHandler)).Methods("GET")
	apiCreate.Handle("/admin/issues", adminOnly(adm.IssuesHandler)).Methods("GET")
	apiCreate.Handle("/admin/issues/{issue_id}", adminOnly(adm.IssueStatusHandler)).Methods("PUT")
	apiCreate.Handle("/admin/issues/{issue_id}", adminOnly(adm.IssueDeleteHandler)).Methods("DELETE")
	apiCreate.Handle("/admin/violations", adminOnly(adm.ViolationsHandler)).Methods("GET")
	apiCreate.Handle("/admin/violations/{violation_id}", adminOnly(adm.ViolationStatusHandler)).Methods("PUT")
	apiCreate.Handle("/admin/violations/{violation_id}", adminOnly(adm.ViolationDeleteHandler)).Methods("DELETE")
	apiCreate.Handle("/admin/users", adminOnly(adm.UsersHandler)).Methods("GET")
	apiCreate.Handle("/admin/users/{user_id}/block", adminOnly(adm.UserBlockHandler)).Methods("PUT")
	apiCreate.Handle("/admin/users/{user_id}", adminOnly(adm.UserUpdateHandler)).Methods("PUT")
	apiCreate.Handle("/admin/users/{user_id}", adminOnly(adm.UserDeleteHandler)).Methods("DELETE")
	apiCreate.Handle("/admin/send-email", adminOnly(adm.SendEmailHandler)).Methods("POST")

	// uploaded report photos and evidence served back by filename
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.Config.UploadDir))))

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("civichero-api has connected to the database")

	if a.Mailer == nil {
		a.Mailer = mailer.New(&a.Config)
	}

	if a.Config.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
		})
	}

	a.Scheduler = scheduler.New(databases.NewDriveDatabase(a.dbHelper))
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"alive": true}`)
}
