package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
	"go.uber.org/zap"
)

func (s *Server) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req model.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed execution request")
		return
	}
	defer r.Body.Close()
	runId, err := s.executionService.StartRun(req)
	if err != nil {
		logger.Error("error running workflow", zap.String("name", req.WorkflowName), zap.Error(err))
		respondWithError(w, errorStatus(err), err.Error())
		return
	}
	respondOK(w, map[string]any{"runId": runId})
}

func (s *Server) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runId := vars["id"]
	report, err := s.executionService.GetRun(runId)
	if err != nil {
		logger.Info("run not found", zap.String("runId", runId))
		respondWithError(w, errorStatus(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (s *Server) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runId := vars["id"]
	if err := s.executionService.CancelRun(runId); err != nil {
		logger.Error("error cancelling run", zap.String("runId", runId), zap.Error(err))
		respondWithError(w, errorStatus(err), err.Error())
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); len(raw) > 0 {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "count must be a number")
			return
		}
		count = parsed
	}
	reports, err := s.executionService.GetRecentRuns(count)
	if err != nil {
		logger.Error("error listing runs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing runs")
		return
	}
	respondWithJSON(w, http.StatusOK, reports)
}
