package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/email"
	"github.com/cleanstreet/clean-street-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	Email    email.Sender
	Uploads  *Uploader
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	m := api.Middleware{DB: databases.NewUserDatabase(a.dbHelper), Secret: a.Config.JWTSecret}

	u := User{
		DB:      databases.NewUserDatabase(a.dbHelper),
		CDB:     databases.NewComplaintDatabase(a.dbHelper),
		Config:  a.Config,
		Email:   a.Email,
		Uploads: a.Uploads,
	}
	c := Complaint{
		DB:      databases.NewComplaintDatabase(a.dbHelper),
		UDB:     databases.NewUserDatabase(a.dbHelper),
		Uploads: a.Uploads,
	}
	v := Vote{DB: databases.NewComplaintDatabase(a.dbHelper)}
	cm := Comment{DB: databases.NewComplaintDatabase(a.dbHelper), UDB: databases.NewUserDatabase(a.dbHelper)}
	an := Analytics{DB: databases.NewComplaintDatabase(a.dbHelper)}
	cloudinaryHandler := CloudinaryHandler{Config: a.Config}

	auth := func(h http.HandlerFunc) http.Handler { return m.Auth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return m.Auth(m.RequireAdmin(h)) }

	r := mux.NewRouter()

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api").Subrouter()

	apiCreate.Handle("/users/register", http.HandlerFunc(u.RegisterHandler)).Methods("POST")
	apiCreate.Handle("/users/login", http.HandlerFunc(u.LoginHandler)).Methods("POST")
	apiCreate.Handle("/users/forgot-password", http.HandlerFunc(u.ForgotPasswordHandler)).Methods("POST")
	apiCreate.Handle("/users/verify-otp", http.HandlerFunc(u.VerifyOTPHandler)).Methods("POST")
	apiCreate.Handle("/users/reset-password", http.HandlerFunc(u.ResetPasswordHandler)).Methods("POST")
	apiCreate.Handle("/users/profile", auth(u.ProfileHandler)).Methods("GET")
	apiCreate.Handle("/users/profile", auth(u.UpdateProfileHandler)).Methods("PUT")
	apiCreate.Handle("/users/admin/list", admin(u.AdminListUsersHandler)).Methods("GET")
	apiCreate.Handle("/users/admin/{user_id}", admin(u.AdminGetUserHandler)).Methods("GET")
	apiCreate.Handle("/users/admin/{user_id}", admin(u.AdminUpdateUserHandler)).Methods("PUT")
	apiCreate.Handle("/users/admin/{user_id}", admin(u.AdminDeleteUserHandler)).Methods("DELETE")

	apiCreate.Handle("/complaints", auth(c.ListComplaintsHandler)).Methods("GET")
	apiCreate.Handle("/complaints", auth(c.CreateComplaintHandler)).Methods("POST")
	apiCreate.Handle("/complaints/my", auth(c.MyComplaintsHandler)).Methods("GET")
	apiCreate.Handle("/complaints/admin/list", admin(c.AdminListComplaintsHandler)).Methods("GET")
	apiCreate.Handle("/complaints/admin/{complaint_id}/status", admin(c.AdminUpdateStatusHandler)).Methods("PUT")
	apiCreate.Handle("/complaints/{complaint_id}/vote", auth(v.VoteHandler)).Methods("PATCH")
	apiCreate.Handle("/complaints/{complaint_id}/comments", auth(cm.ListCommentsHandler)).Methods("GET")
	apiCreate.Handle("/complaints/{complaint_id}/comments", auth(cm.AddCommentHandler)).Methods("POST")
	apiCreate.Handle("/complaints/{complaint_id}/comments/{comment_id}", auth(cm.DeleteCommentHandler)).Methods("DELETE")
	apiCreate.Handle("/complaints/{complaint_id}", auth(c.ComplaintByIDHandler)).Methods("GET")
	apiCreate.Handle("/complaints/{complaint_id}", auth(c.UpdateComplaintHandler)).Methods("PUT")
	apiCreate.Handle("/complaints/{complaint_id}", auth(c.DeleteComplaintHandler)).Methods("DELETE")

	apiCreate.Handle("/analytics/monthly", auth(an.MonthlyReportsHandler)).Methods("GET")
	apiCreate.Handle("/analytics/category", auth(an.ReportsByCategoryHandler)).Methods("GET")
	apiCreate.Handle("/analytics/overall", auth(an.OverallStatsHandler)).Methods("GET")

	apiCreate.Handle("/uploads/signature", auth(cloudinaryHandler.GenerateSignature)).Methods("POST")

	// locally stored photos are served as static files; Cloudinary photos
	// carry absolute URLs and never hit this route
	uploadsDir := a.Config.UploadsDir
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))

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
	zap.S().Info("clean-street-api has connected to the database")

	if a.Email == nil {
		a.Email = email.NewSender(&a.Config)
	}
	if a.Uploads == nil {
		a.Uploads, err = NewUploader(&a.Config)
		if err != nil {
			zap.S().With(err).Error("failed to initialize photo uploads")
			return err
		}
	}

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
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
