package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/api/scheduler"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	dbHelper databases.DatabaseHelper
	sweeper  *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	authn := api.AuthN{Secret: []byte(a.Config.JWTSecret)}
	authn.SetupGoGuardian()

	hub := NewHub()
	go hub.Run()

	userDB := databases.NewUserDatabase(a.dbHelper)
	binDB := databases.NewBinDatabase(a.dbHelper)
	recordDB := databases.NewCollectionRecordDatabase(a.dbHelper)
	routeDB := databases.NewRouteDatabase(a.dbHelper)
	complaintDB := databases.NewComplaintDatabase(a.dbHelper)
	notificationDB := databases.NewNotificationDatabase(a.dbHelper)

	auth := Auth{DB: userDB, Secret: []byte(a.Config.JWTSecret)}
	u := User{DB: userDB, RDB: routeDB, CRDB: recordDB}
	b := Bin{DB: binDB, RDB: routeDB, CRDB: recordDB, CDB: complaintDB, Hub: hub}
	c := Collection{DB: recordDB, BDB: binDB, UDB: userDB, Hub: hub}
	route := Route{DB: routeDB, UDB: userDB, BDB: binDB}
	complaint := Complaint{DB: complaintDB, BDB: binDB, UDB: userDB, NDB: notificationDB}
	n := Notification{DB: notificationDB}
	uploads := Uploads{}
	live := Live{Hub: hub, Secret: []byte(a.Config.JWTSecret)}

	r := mux.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(api.RequestID)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/register", http.HandlerFunc(auth.RegisterHandler)).Methods("POST")
	apiCreate.Handle("/auth/login", http.HandlerFunc(auth.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/me", api.Middleware(http.HandlerFunc(auth.MeHandler))).Methods("GET")

	// read-only bin endpoints are open, per the original surface
	apiCreate.Handle("/bins", http.HandlerFunc(b.BinHandler)).Methods("GET")
	apiCreate.Handle("/bins/nearby", http.HandlerFunc(b.BinNearbyHandler)).Methods("GET")
	apiCreate.Handle("/bins/{bin_id}", http.HandlerFunc(b.BinByIDHandler)).Methods("GET")
	apiCreate.Handle("/bins", api.Middleware(api.Require(api.OpBinCreate)(http.HandlerFunc(b.CreateBinHandler)))).Methods("POST")
	apiCreate.Handle("/bins/{bin_id}", api.Middleware(api.Require(api.OpBinUpdate)(http.HandlerFunc(b.UpdateBinHandler)))).Methods("PUT")
	apiCreate.Handle("/bins/{bin_id}", api.Middleware(api.Require(api.OpBinDelete)(http.HandlerFunc(b.DeleteBinHandler)))).Methods("DELETE")

	apiCreate.Handle("/collections", api.Middleware(api.Require(api.OpCollectionList)(http.HandlerFunc(c.CollectionHandler)))).Methods("GET")
	apiCreate.Handle("/collections/driver/{driver_id}", api.Middleware(api.Require(api.OpCollectionList)(http.HandlerFunc(c.CollectionsByDriverHandler)))).Methods("GET")
	apiCreate.Handle("/collections", api.Middleware(api.Require(api.OpCollectionCreate)(http.HandlerFunc(c.CreateCollectionHandler)))).Methods("POST")

	apiCreate.Handle("/routes", api.Middleware(api.Require(api.OpRouteList)(http.HandlerFunc(route.RouteHandler)))).Methods("GET")
	apiCreate.Handle("/routes/driver/{driver_id}", api.Middleware(api.Require(api.OpRouteList)(http.HandlerFunc(route.RoutesByDriverHandler)))).Methods("GET")
	apiCreate.Handle("/routes/{route_id}", api.Middleware(api.Require(api.OpRouteGet)(http.HandlerFunc(route.RouteByIDHandler)))).Methods("GET")
	apiCreate.Handle("/routes", api.Middleware(api.Require(api.OpRouteCreate)(http.HandlerFunc(route.CreateRouteHandler)))).Methods("POST")
	apiCreate.Handle("/routes/{route_id}/status", api.Middleware(api.Require(api.OpRouteUpdateStatus)(http.HandlerFunc(route.UpdateRouteStatusHandler)))).Methods("PUT")
	apiCreate.Handle("/routes/{route_id}", api.Middleware(api.Require(api.OpRouteDelete)(http.HandlerFunc(route.DeleteRouteHandler)))).Methods("DELETE")

	apiCreate.Handle("/users", api.Middleware(api.Require(api.OpUserList)(http.HandlerFunc(u.UserHandler)))).Methods("GET")
	apiCreate.Handle("/users/{user_id}", api.Middleware(api.Require(api.OpUserGet)(http.HandlerFunc(u.UserByIDHandler)))).Methods("GET")
	apiCreate.Handle("/users/{user_id}", api.Middleware(api.Require(api.OpUserUpdate)(http.HandlerFunc(u.UpdateUserByIDHandler)))).Methods("PUT")
	apiCreate.Handle("/users/{user_id}", api.Middleware(api.Require(api.OpUserDelete)(http.HandlerFunc(u.DeleteUserByIDHandler)))).Methods("DELETE")

	apiCreate.Handle("/complaints", api.Middleware(api.Require(api.OpComplaintCreate)(http.HandlerFunc(complaint.CreateComplaintHandler)))).Methods("POST")
	apiCreate.Handle("/complaints/my", api.Middleware(api.Require(api.OpComplaintListMine)(http.HandlerFunc(complaint.MyComplaintsHandler)))).Methods("GET")
	apiCreate.Handle("/complaints", api.Middleware(api.Require(api.OpComplaintListAll)(http.HandlerFunc(complaint.ComplaintHandler)))).Methods("GET")
	apiCreate.Handle("/complaints/{complaint_id}/status", api.Middleware(api.Require(api.OpComplaintUpdateStatus)(http.HandlerFunc(complaint.UpdateComplaintStatusHandler)))).Methods("PATCH")

	apiCreate.Handle("/notifications", api.Middleware(api.Require(api.OpNotificationList)(http.HandlerFunc(n.NotificationsHandler)))).Methods("GET")
	apiCreate.Handle("/notifications/{notification_id}/read", api.Middleware(api.Require(api.OpNotificationRead)(http.HandlerFunc(n.MarkNotificationReadHandler)))).Methods("PUT")

	apiCreate.Handle("/uploads/signature", api.Middleware(api.Require(api.OpUploadSignature)(http.HandlerFunc(uploads.GenerateSignature)))).Methods("POST")

	// websocket feed authenticates itself via the token query parameter
	apiCreate.Handle("/live", http.HandlerFunc(live.ServeWS)).Methods("GET")

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
	zap.S().Info("waste-collection-api has connected to the database")

	ctx, cancel := api.WithQueryTimeout(nil)
	defer cancel()
	if err := databases.NewBinDatabase(a.dbHelper).EnsureIndexes(ctx); err != nil {
		zap.S().With(err).Error("failed to ensure bin indexes")
		return err
	}

	a.initializeRoutes()

	a.sweeper = scheduler.New(
		databases.NewBinDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		databases.NewNotificationDatabase(a.dbHelper),
		a.Config.CronSpec,
	)
	a.sweeper.Start()

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
