package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/metadata"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/mohitkumar/conveyor/service"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port             int
	metadataService  metadata.MetadataService
	executionService *service.WorkflowExecutionService
}

func NewServer(httpPort int, metadataService metadata.MetadataService, executionService *service.WorkflowExecutionService) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService:  metadataService,
		executionService: executionService,
		Port:             httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/metadata/workflow", s.HandleCreateWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/workflow/yaml", s.HandleCreateWorkflowYaml).Methods(http.MethodPost)
	router.HandleFunc("/metadata/workflow", s.HandleListWorkflows).Methods(http.MethodGet)
	router.HandleFunc("/metadata/workflow/{name}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/metadata/workflow/{name}", s.HandleDeleteWorkflow).Methods(http.MethodDelete)

	router.HandleFunc("/event", s.HandleEvent).Methods(http.MethodPost)

	router.HandleFunc("/execution", s.HandleStartRun).Methods(http.MethodPost)
	router.HandleFunc("/execution", s.HandleListRuns).Methods(http.MethodGet)
	router.HandleFunc("/execution/{id}", s.HandleGetRun).Methods(http.MethodGet)
	router.HandleFunc("/execution/{id}/cancel", s.HandleCancelRun).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	res, _ := json.Marshal(message)
	w.Write(res)
}

func respondOKWithoutBody(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// errorStatus maps storage misses to 404, everything else stays a 400.
func errorStatus(err error) int {
	var notFound persistence.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
