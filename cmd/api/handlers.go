package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"creditflow/auth"
	"creditflow/dispute"
	"creditflow/escalate"
	"creditflow/response"
)

type server struct {
	log       *zap.Logger
	auth      *auth.Service
	disputes  *dispute.Service
	scheduler *escalate.Scheduler
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("GET /api/disputes", s.authed(s.handleListDisputes))
	mux.Handle("POST /api/disputes", s.authed(s.handleCreateDispute))
	mux.Handle("POST /api/disputes/{id}/status", s.authed(s.handleUpdateStatus))
	mux.Handle("POST /api/disputes/{id}/outcome", s.authed(s.handleSetOutcome))
	mux.Handle("POST /api/classify", s.authed(s.handleClassify))
	mux.Handle("POST /api/escalations/run", s.authed(s.handleRunEscalations))
	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string, role auth.Role)

func (s *server) authed(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, role, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, userID, role)
	})
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	user, err := s.auth.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.internalError(w, "register", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": user.ID, "email": user.Email})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.internalError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": result.Token})
}

func (s *server) handleListDisputes(w http.ResponseWriter, r *http.Request, userID string, role auth.Role) {
	f := dispute.Filter{OwnerID: userID}
	if role == auth.RoleAdmin {
		f.OwnerID = r.URL.Query().Get("owner")
	}
	if b := r.URL.Query().Get("bureau"); b != "" {
		f.Bureau = dispute.Bureau(b)
	}
	disputes, err := s.disputes.List(r.Context(), f)
	if err != nil {
		s.internalError(w, "list disputes", err)
		return
	}
	writeJSON(w, http.StatusOK, disputes)
}

type createDisputeRequest struct {
	Creditor     string   `json:"creditor"`
	Collector    string   `json:"collector"`
	Value        string   `json:"value"`
	AccountType  string   `json:"account_type"`
	Type         string   `json:"type"`
	Bureau       string   `json:"bureau"`
	Reason       string   `json:"reason"`
	ViolationIDs []string `json:"violation_ids"`
}

func (s *server) handleCreateDispute(w http.ResponseWriter, r *http.Request, userID string, _ auth.Role) {
	var req createDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := s.disputes.Create(r.Context(), dispute.CreateParams{
		OwnerID: userID,
		Account: dispute.Account{
			Creditor:    req.Creditor,
			Collector:   req.Collector,
			Value:       req.Value,
			AccountType: req.AccountType,
		},
		Type:         dispute.Type(req.Type),
		Bureau:       dispute.Bureau(req.Bureau),
		Reason:       req.Reason,
		ViolationIDs: req.ViolationIDs,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, userID string, role auth.Role) {
	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	id := r.PathValue("id")
	if !s.ownsDispute(w, r, id, userID, role) {
		return
	}
	d, err := s.disputes.UpdateStatus(r.Context(), id, dispute.Status(req.Status), req.Notes)
	if err != nil {
		if errors.Is(err, dispute.ErrNotFound) {
			writeError(w, http.StatusNotFound, "dispute not found")
			return
		}
		s.internalError(w, "update status", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) handleSetOutcome(w http.ResponseWriter, r *http.Request, userID string, role auth.Role) {
	var req struct {
		Result           string `json:"result"`
		Details          string `json:"details"`
		FollowUpRequired bool   `json:"follow_up_required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	id := r.PathValue("id")
	if !s.ownsDispute(w, r, id, userID, role) {
		return
	}
	d, err := s.disputes.SetOutcome(r.Context(), id, dispute.Outcome{
		Result:           dispute.OutcomeResult(req.Result),
		Details:          req.Details,
		FollowUpRequired: req.FollowUpRequired,
	})
	if err != nil {
		if errors.Is(err, dispute.ErrNotFound) {
			writeError(w, http.StatusNotFound, "dispute not found")
			return
		}
		s.internalError(w, "set outcome", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) handleClassify(w http.ResponseWriter, r *http.Request, _ string, _ auth.Role) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	analysis := response.Analyze(req.Text)
	items := response.ExtractItems(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": analysis,
		"index":    response.ExtractIndex(req.Text),
		"items":    items,
		"summary":  response.SummarizeItems(items),
	})
}

func (s *server) handleRunEscalations(w http.ResponseWriter, r *http.Request, _ string, role auth.Role) {
	if role != auth.RoleAdmin && role != auth.RoleAdvocate {
		writeError(w, http.StatusForbidden, "escalation runs require an advocate or admin account")
		return
	}
	ids, err := s.scheduler.Tick(r.Context(), time.Now())
	if err != nil {
		s.internalError(w, "escalation tick", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"escalated": ids})
}

func (s *server) ownsDispute(w http.ResponseWriter, r *http.Request, id, userID string, role auth.Role) bool {
	d, err := s.disputes.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, dispute.ErrNotFound) {
			writeError(w, http.StatusNotFound, "dispute not found")
			return false
		}
		s.internalError(w, "fetch dispute", err)
		return false
	}
	if role != auth.RoleAdmin && d.OwnerID != userID {
		writeError(w, http.StatusForbidden, "not your dispute")
		return false
	}
	return true
}

func (s *server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
