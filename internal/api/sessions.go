package api

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SmartLoan360X/server/internal/agent/graph/tools"
	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

const documentField = "document"

type messageRequest struct {
	Message string `json:"message"`
}

type personaRequest struct {
	Persona string `json:"persona"`
}

type prequalifyRequest struct {
	CreditScore *int     `json:"credit_score"`
	Income      *float64 `json:"income"`
	LoanAmount  *float64 `json:"loan_amount"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.assistant.Start(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.assistant.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.EndSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.assistant.Chat(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) postDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.assistant.Session(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	if s.cfg.MaxUploadBytes > 0 {
		// multipart framing needs a little headroom over the file itself
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	}
	file, header, err := r.FormFile(documentField)
	if err != nil {
		writeError(w, r, errx.Validationf("multipart field %q with an image is required", documentField))
		return
	}
	defer file.Close()

	path, err := s.documents.Save(header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.assistant.Upload(r.Context(), id, path)
	if err != nil {
		if rerr := s.documents.Remove(path); rerr != nil {
			logx.Warn().Err(rerr).Str("session_id", id).Msg("failed to remove upload")
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) putPersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.assistant.SetPersona(r.Context(), chi.URLParam(r, "id"), req.Persona)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var req model.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.assistant.UpdateProfile(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) listPersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"personas": s.assistant.Personas()})
}

func (s *Server) prequalify(w http.ResponseWriter, r *http.Request) {
	var req prequalifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CreditScore == nil || req.Income == nil || req.LoanAmount == nil {
		writeError(w, r, errx.Validation("credit_score, income and loan_amount are required"))
		return
	}
	for _, v := range []float64{*req.Income, *req.LoanAmount} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			writeError(w, r, errx.Validation("income and loan_amount must be non-negative numbers"))
			return
		}
	}
	writeJSON(w, http.StatusOK, tools.Prequalify(*req.CreditScore, *req.Income, *req.LoanAmount))
}
