package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/infra/logging"
	"votelab/internal/infra/payment"
	"votelab/internal/usecase"
)

// ---- USSD ----

type ussdRequest struct {
	SessionID   string `json:"sessionId"`
	PhoneNumber string `json:"phoneNumber"`
	ServiceCode string `json:"serviceCode"`
	Text        string `json:"text"`
}

// handleUSSD speaks the aggregator callback contract: form or JSON fields in,
// a text/plain "CON ..." or "END ..." body out, always with status 200.
func (s *Server) handleUSSD(w http.ResponseWriter, r *http.Request) {
	var in ussdRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		if err := decodeJSON(r, &in); err != nil {
			writeUSSD(w, model.Terminal("Invalid request"))
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeUSSD(w, model.Terminal("Invalid request"))
			return
		}
		in = ussdRequest{
			SessionID:   r.FormValue("sessionId"),
			PhoneNumber: r.FormValue("phoneNumber"),
			ServiceCode: r.FormValue("serviceCode"),
			Text:        r.FormValue("text"),
		}
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	if phone != "" && s.d.Phones != nil {
		if e164, err := s.d.Phones.E164(phone); err == nil {
			phone = e164
		} else {
			s.log.Debug().Err(err).Msg("caller id not normalisable, using it as given")
		}
	}

	res := s.d.USSD.Handle(r.Context(), usecase.USSDRequest{
		Phone:       phone,
		ServiceCode: in.ServiceCode,
		Text:        in.Text,
	})
	if res.Kind == model.ResultError {
		logging.With(r.Context(), s.log).Warn().Str("session_id", in.SessionID).Str("kind", string(res.ErrKind)).Msg("ussd step failed")
	}
	writeUSSD(w, res)
}

func writeUSSD(w http.ResponseWriter, res model.StepResult) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Wire())
}

// ---- Payments ----

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	res, err := s.d.Ledger.Verify(r.Context(), usecase.SourceVerify, ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch res.Outcome {
	case usecase.OutcomeSettled:
		if res.Kind == model.ReferenceActivate {
			writeJSON(w, http.StatusOK, statusBody{Status: "success", Detail: "Payment verified and poll activated."})
			return
		}
		writeJSON(w, http.StatusCreated, statusBody{Status: "success", Detail: "Vote recorded."})
	case usecase.OutcomeAlreadyProcessed:
		writeJSON(w, http.StatusOK, statusBody{Status: "success", Detail: "Transaction already verified."})
	default:
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "failed", Detail: "Payment verification failed"})
	}
}

// handleWebhook authenticates the raw body before anything else is read from it.
// Permanent rejections are acknowledged with 200 so the gateway stops redelivering;
// transient failures answer 500 so it retries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Detail: "unreadable body"})
		return
	}
	if !payment.VerifyPaystackSignature(s.d.WebhookSecret, body, r.Header.Get(payment.SignatureHeader)) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature rejected")
		writeJSON(w, http.StatusUnauthorized, statusBody{Status: "error", Detail: "invalid signature"})
		return
	}
	ev, err := payment.ParseWebhookEvent(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Detail: "malformed event"})
		return
	}
	if ev.Event != payment.EventChargeSuccess {
		writeJSON(w, http.StatusOK, statusBody{Status: "ignored", Detail: ev.Event})
		return
	}

	res, err := s.d.Ledger.Reconcile(r.Context(), usecase.SourceWebhook, ev.Reference, ev.Amount, ev.Status)
	if err != nil {
		if code := errorStatus(err); code >= 400 && code < 500 {
			writeJSON(w, http.StatusOK, statusBody{Status: "rejected", Detail: err.Error()})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: string(res.Outcome)})
}

// ---- Votes ----

type paidVoteRequest struct {
	ContestantID  int64  `json:"contestant_id"`
	NomineeCode   string `json:"nominee_code"`
	NumberOfVotes int    `json:"number_of_votes"`
	Email         string `json:"email"`
}

func (s *Server) handlePaidVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in paidVoteRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	intent, err := s.d.Votes.InitiatePaidVote(r.Context(), usecase.PaidVoteRequest{
		PollID:        pollID,
		ContestantID:  in.ContestantID,
		NomineeCode:   in.NomineeCode,
		NumberOfVotes: in.NumberOfVotes,
		PayerContact:  strings.TrimSpace(in.Email),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

type codeVoteRequest struct {
	Code         string `json:"code"`
	ContestantID int64  `json:"contestant_id"`
	NomineeCode  string `json:"nominee_code"`
}

func (s *Server) handleCodeVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in codeVoteRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.d.Votes.CastCodeVote(r.Context(), pollID, in.ContestantID, in.NomineeCode, in.Code); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusBody{Status: "success", Detail: "Vote recorded."})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.d.Results.Results(r.Context(), pollID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---- Admin ----

func (s *Server) handleAdminToken(w http.ResponseWriter, r *http.Request) {
	if !s.d.Auth.CheckKey(r.Header.Get("X-Admin-Key")) {
		writeJSON(w, http.StatusUnauthorized, statusBody{Status: "error", Detail: "unauthorized"})
		return
	}
	tok, exp, err := s.d.Auth.Mint()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}{tok, exp})
}

func (s *Server) handleActivationLink(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	intent, err := s.d.Admin.ActivationLink(r.Context(), pollID, strings.TrimSpace(in.Email))
	if errors.Is(err, domain.ErrAlreadyActivated) {
		writeJSON(w, http.StatusOK, statusBody{Status: "completed", Detail: "Payment already completed for this poll."})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleGenerateCodes(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	codes, err := s.d.Admin.GenerateCodes(r.Context(), pollID, in.Count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		PollID int64    `json:"poll_id"`
		Codes  []string `json:"codes"`
	}{pollID, codes})
}
