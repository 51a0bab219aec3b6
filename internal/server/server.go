package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/The127/ioc"

	gh "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/handlers/uploadhandlers"
	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
)

func Serve(root *ioc.DependencyProvider, serverConfig config.ServerConfig) {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Logger.Infof("Not found API Request: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{
				{"code": "NOT_FOUND", "message": "route not found"},
			},
		})
	})

	r.Use(middlewares.RecoverMiddleware())
	r.Use(middlewares.LoggingMiddleware())
	r.Use(middlewares.ScopeMiddleware(root))

	r.Use(gh.CORS(
		gh.AllowedOrigins(serverConfig.AllowedOrigins),
		gh.AllowedMethods([]string{"GET", "POST", "DELETE"}),
		gh.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		gh.AllowCredentials(),
		gh.MaxAge(3600),
	))

	mapApi(r)

	addr := fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port)
	logging.Logger.Infof("Starting server on %s", addr)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go serve(srv)
}

func serve(srv *http.Server) {
	err := srv.ListenAndServe()
	if err != nil {
		panic(fmt.Errorf("error while running server: %w", err))
	}
}

func mapApi(r *mux.Router) {
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	apiRouter.HandleFunc("/uploads/video", uploadhandlers.UploadVideo).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/uploads/file", uploadhandlers.UploadFile).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/uploads/image", uploadhandlers.UploadImage).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/uploads/link", uploadhandlers.UploadLink).Methods(http.MethodPost, http.MethodOptions)

	apiRouter.HandleFunc("/uploads", uploadhandlers.ListUploads).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/uploads/finished", uploadhandlers.ClearFinishedUploads).Methods(http.MethodDelete, http.MethodOptions)
	apiRouter.HandleFunc("/uploads/feed", uploadhandlers.Feed).Methods(http.MethodGet)

	apiRouter.HandleFunc("/journal", uploadhandlers.ListJournal).Methods(http.MethodGet, http.MethodOptions)

	apiRouter.HandleFunc("/assets/{assetId}", uploadhandlers.DeleteAsset).Methods(http.MethodDelete, http.MethodOptions)
}
