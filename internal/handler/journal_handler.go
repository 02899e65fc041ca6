package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"sessionlog-sync-server/internal/domain"
	"sessionlog-sync-server/internal/journal"
	"sessionlog-sync-server/internal/service"
	"sessionlog-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type JournalHandler struct {
	journal     *journal.Journal
	replication *service.ReplicationService
	validate    *validator.Validate
}

func NewJournalHandler(j *journal.Journal, replication *service.ReplicationService) *JournalHandler {
	return &JournalHandler{
		journal:     j,
		replication: replication,
		validate:    validator.New(),
	}
}

func (h *JournalHandler) Write(w http.ResponseWriter, r *http.Request) {
	var req domain.WriteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	entry, err := h.journal.Write(req.Event, req.PrimaryKey, req.Payload, nil)
	if err != nil {
		response.InternalError(w, "failed to write entry")
		return
	}

	response.Created(w, entry)
}

func (h *JournalHandler) Entries(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.journal.Entries())
}

func (h *JournalHandler) RemoteSequence(w http.ResponseWriter, r *http.Request) {
	remoteID := mux.Vars(r)["id"]

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"remote_id":     remoteID,
		"next_sequence": h.journal.NextRemoteSequence(remoteID),
	})
}

func (h *JournalHandler) RemotePending(w http.ResponseWriter, r *http.Request) {
	remoteID := mux.Vars(r)["id"]

	pending, err := h.replication.Pending(remoteID)
	if err != nil {
		response.InternalError(w, "failed to read pending entries")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"remote_id": remoteID,
		"pending":   pending,
	})
}

func (h *JournalHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.Destroy(); err != nil {
		var jerr *journal.JournalError
		if errors.As(err, &jerr) {
			response.InternalError(w, jerr.Error())
			return
		}
		response.InternalError(w, "failed to destroy journal")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "destroyed"})
}
