package server

import (
	"net/http"
	"strconv"

	"marketplace-escrow-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == models.RoleAdmin && !adminOrOpen(r) {
		writeFailure(w, http.StatusForbidden, "admin role required")
		return
	}
	user, err := s.svc.CreateUser(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	userId, err := actorFor(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var profile models.Profile
	if err := decode(w, r, &profile); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.UpdateProfile(r.Context(), userId, profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) verifyCreator(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.VerifyCreator(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReservationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	memberId, err := actorFor(r, req.MemberId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.MemberId = memberId

	view, err := s.svc.CreateReservation(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, view)
}

func (s *Server) getReservation(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if identity := models.GetIdentity(r.Context()); identity != nil && !identity.IsAdmin() && !isParty(view, identity.Subject) {
		writeFailure(w, http.StatusForbidden, "not a party of this reservation")
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) confirmPresence(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmPresenceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	actorId, err := actorFor(r, req.UserId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.svc.ConfirmPresence(r.Context(), chi.URLParam(r, "id"), actorId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) updateEscortStatus(w http.ResponseWriter, r *http.Request) {
	var req models.EscortStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	escortId, err := actorFor(r, req.EscortId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.UpdateEscortStatus(r.Context(), chi.URLParam(r, "id"), escortId, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	actorId, err := actorFor(r, req.UserId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), actorId, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	walletId, ok := s.ownWallet(w, r)
	if !ok {
		return
	}
	view, err := s.svc.GetWallet(r.Context(), walletId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) getTransactions(w http.ResponseWriter, r *http.Request) {
	walletId, ok := s.ownWallet(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := s.svc.GetTransactionHistory(r.Context(), walletId, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, records)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Deposit(r.Context(), chi.URLParam(r, "userId"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	walletId, ok := s.ownWallet(w, r)
	if !ok {
		return
	}
	var req models.WithdrawRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Withdraw(r.Context(), walletId, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) purchaseContactPass(w http.ResponseWriter, r *http.Request) {
	var req models.ContactPassRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	memberId, err := actorFor(r, req.MemberId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.MemberId = memberId

	view, err := s.svc.PurchaseContactPass(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) billSponsorship(w http.ResponseWriter, r *http.Request) {
	var req models.SponsorshipRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.BillSponsorship(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.SettingsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.UpdateSettings(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) conservation(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Conservation(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// ownWallet resolves the wallet in the path and checks the caller owns it.
// Only admins may read the platform wallet or other users' wallets.
func (s *Server) ownWallet(w http.ResponseWriter, r *http.Request) (string, bool) {
	walletId := chi.URLParam(r, "userId")
	identity := models.GetIdentity(r.Context())
	if identity != nil && !identity.IsAdmin() && identity.Subject != walletId {
		writeFailure(w, http.StatusForbidden, "cannot access another wallet")
		return "", false
	}
	return walletId, true
}

func adminOrOpen(r *http.Request) bool {
	identity := models.GetIdentity(r.Context())
	return identity == nil || identity.IsAdmin()
}

func isParty(view *models.ReservationView, userId string) bool {
	if view.MemberId == userId || view.CreatorId == userId {
		return true
	}
	for _, e := range view.Escorts {
		if e.EscortId == userId {
			return true
		}
	}
	return false
}
