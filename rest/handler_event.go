package rest

import (
	"encoding/json"
	"net/http"

	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
	"go.uber.org/zap"
)

// HandleEvent ingests one external event and reports which runs it
// started. An event matching no workflow is still a 200 with an empty
// run list.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed event")
		return
	}
	defer r.Body.Close()
	started, err := s.executionService.HandleEvent(event)
	if err != nil {
		logger.Error("error handling event", zap.String("kind", event.Kind), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"runs": started})
}
