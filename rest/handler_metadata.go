package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mohitkumar/conveyor/definition"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
)

func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf model.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed workflow document")
		return
	}
	defer r.Body.Close()
	if err := s.metadataService.SaveWorkflow(wf); err != nil {
		logger.Error("error creating workflow", zap.String("workflow", wf.Name), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"created": true, "name": wf.Name})
}

func (s *Server) HandleCreateWorkflowYaml(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "error reading body")
		return
	}
	defer r.Body.Close()
	wf, err := definition.Parse(body)
	if err != nil {
		logger.Error("error parsing workflow yaml", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.metadataService.SaveWorkflow(*wf); err != nil {
		logger.Error("error creating workflow", zap.String("workflow", wf.Name), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"created": true, "name": wf.Name})
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	wf, err := s.metadataService.GetWorkflow(name)
	if err != nil {
		logger.Info("workflow does not exist", zap.String("name", name))
		respondWithError(w, errorStatus(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	if err := s.metadataService.DeleteWorkflow(name); err != nil {
		logger.Error("error deleting workflow", zap.String("name", name), zap.Error(err))
		respondWithError(w, errorStatus(err), err.Error())
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.metadataService.GetAllWorkflows()
	if err != nil {
		logger.Error("error listing workflows", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing workflows")
		return
	}
	respondWithJSON(w, http.StatusOK, workflows)
}
