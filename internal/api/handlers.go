package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/tontine/internal/middleware"
	"github.com/mmynk/tontine/internal/service"
)

// Handler serves the REST endpoints.
type Handler struct {
	tontines *service.TontineService
	auth     *service.AuthService
}

// NewHandler creates a Handler over the given services.
func NewHandler(tontines *service.TontineService, auth *service.AuthService) *Handler {
	return &Handler{tontines: tontines, auth: auth}
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	message(w, "ok")
}

// Auth

// Register creates an account and returns a session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.auth.Register(r.Context(), req.Name, req.Phone, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, session)
}

// Login exchanges a phone and password for a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, session)
}

// Logout ends the caller's session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), middleware.GetUserID(r.Context()))
	message(w, "logged out")
}

// Profile returns the authenticated user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Profile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, user)
}

// Contacts lists the users sharing a tontine with the caller.
func (h *Handler) Contacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.tontines.Contacts(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, contacts)
}

// Dashboard returns the caller's aggregate figures for the current rounds.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tontines.Dashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, stats)
}

// Tontines

// CreateTontine creates a pending tontine administered by the caller.
func (h *Handler) CreateTontine(w http.ResponseWriter, r *http.Request) {
	var req createTontineRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := service.CreateTontineInput{
		Name:          req.Name,
		Amount:        req.Amount,
		FrequencyDays: req.FrequencyDays,
	}
	if req.LateFee != nil {
		in.LateFee = *req.LateFee
	}
	view, err := h.tontines.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, view)
}

// ListTontines lists the caller's tontines.
func (h *Handler) ListTontines(w http.ResponseWriter, r *http.Request) {
	views, err := h.tontines.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, views)
}

// GetTontine returns one tontine with its members.
func (h *Handler) GetTontine(w http.ResponseWriter, r *http.Request) {
	view, err := h.tontines.Get(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, view)
}

// DeleteTontine removes a tontine and its ledger.
func (h *Handler) DeleteTontine(w http.ResponseWriter, r *http.Request) {
	if err := h.tontines.Delete(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "tontine deleted")
}

// Membership and turn order

// AddMember adds a registered user by phone.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	member, err := h.tontines.AddMember(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Phone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, member)
}

// RemoveMember drops a member before the order is locked.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.tontines.RemoveMember(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	message(w, "member removed")
}

// TransferAdmin hands the admin role to another member.
func (h *Handler) TransferAdmin(w http.ResponseWriter, r *http.Request) {
	var req transferAdminRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.tontines.TransferAdmin(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, view)
}

// Shuffle draws and locks a random turn order.
func (h *Handler) Shuffle(w http.ResponseWriter, r *http.Request) {
	members, err := h.tontines.Shuffle(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, members)
}

// Reorder sets the turn order by hand.
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.tontines.Reorder(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.UserIDs, req.Lock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, members)
}

// Lifecycle

// Start activates a pending tontine.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	view, err := h.tontines.Start(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, view)
}

// CloseRound pays out the current round and advances to the next.
func (h *Handler) CloseRound(w http.ResponseWriter, r *http.Request) {
	result, err := h.tontines.CloseRound(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, result)
}

// Cancel stops a tontine.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	view, err := h.tontines.Cancel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, view)
}

// Ledger

// RecordPayment records a member's contribution for a round.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.tontines.RecordPayment(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), req.UserID, req.RoundNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, payment)
}

// ApplyPenalty fines a member for a round.
func (h *Handler) ApplyPenalty(w http.ResponseWriter, r *http.Request) {
	var req applyPenaltyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	penalty, err := h.tontines.ApplyPenalty(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"), req.UserID, req.RoundNumber, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, penalty)
}

// PayPenalty settles a penalty.
func (h *Handler) PayPenalty(w http.ResponseWriter, r *http.Request) {
	penalty, err := h.tontines.PayPenalty(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, penalty)
}

// Status views

// PaymentStatus reports who has paid for the current round.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.tontines.PaymentStatus(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, status)
}

// Debtors lists members with unpaid rounds.
func (h *Handler) Debtors(w http.ResponseWriter, r *http.Request) {
	debtors, err := h.tontines.Debtors(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, debtors)
}

// History returns the activity log, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.tontines.History(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, entries)
}
