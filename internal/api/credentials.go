package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/attest"
	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/ledger"
)

type verifyCredentialRequest struct {
	Kind        string          `json:"kind"`
	Name        string          `json:"name"`
	Attestation json.RawMessage `json:"attestation"`
	Verified    bool            `json:"verified"`
	Store       bool            `json:"store"`
}

type verifyCredentialResponse struct {
	Kind     string        `json:"kind"`
	Subject  string        `json:"subject"`
	Verified bool          `json:"verified"`
	DataHash string        `json:"dataHash"`
	TxHash   ledger.TxHash `json:"txHash,omitempty"`
}

func (s *Server) handleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req verifyCredentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := ledger.ParseCredentialKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !present(req.Attestation) {
		writeError(w, http.StatusBadRequest, "attestation is required")
		return
	}
	if req.Store && !s.credentialWrites {
		writeError(w, http.StatusForbidden, "credential storage is disabled on this server")
		return
	}
	if req.Store && s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger is not configured")
		return
	}
	att, err := attest.Parse(req.Attestation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := s.log.WithField("kind", kind)
	res, err := attest.Check(att, req.Verified, req.Name)
	if err != nil {
		var mismatch *attest.NameMismatchError
		switch {
		case errors.As(err, &mismatch):
			log.Info("credential name mismatch")
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "name does not match the attested record",
				Details: map[string]string{"input": mismatch.Input, "attested": mismatch.Subject},
			})
		case errors.Is(err, attest.ErrNameRequired), errors.Is(err, attest.ErrMalformed):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.WithError(err).Info("credential rejected")
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	payload, err := attest.CredentialPayload(res.Subject, s.clock.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode credential")
		return
	}
	resp := verifyCredentialResponse{
		Kind:     kind.String(),
		Subject:  res.Subject,
		Verified: true,
		DataHash: payload,
	}
	if req.Store {
		tx, err := s.ledger.StoreCredential(r.Context(), kind, payload)
		if err != nil {
			log.WithError(err).Error("ledger store credential failed")
			writeError(w, http.StatusBadGateway, "failed to store credential on ledger")
			return
		}
		resp.TxHash = tx
	}

	log.WithFields(logrus.Fields{"stored": req.Store, "tx_hash": resp.TxHash}).Info("credential verified")
	s.emit(r.Context(), events.Event{
		Kind:    events.KindCred,
		Subject: kind.String(),
		Status:  "verified",
		Data:    resp,
	})
	writeJSON(w, http.StatusOK, resp)
}

type credentialResponse struct {
	Owner         string             `json:"owner"`
	Kind          string             `json:"kind"`
	HasCredential bool               `json:"hasCredential"`
	Credential    *credentialPayload `json:"credential,omitempty"`
}

type credentialPayload struct {
	DataHash  string `json:"dataHash"`
	Timestamp int64  `json:"timestamp"`
	Verified  bool   `json:"verified"`
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger is not configured")
		return
	}
	owner := r.PathValue("owner")
	kind, err := ledger.ParseCredentialKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	has, err := s.ledger.HasCredential(r.Context(), owner, kind)
	if errors.Is(err, ledger.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, "invalid owner address")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("ledger lookup failed")
		writeError(w, http.StatusBadGateway, "ledger lookup failed")
		return
	}
	resp := credentialResponse{Owner: owner, Kind: kind.String(), HasCredential: has}
	if has {
		c, err := s.ledger.GetUserCredential(r.Context(), owner, kind)
		if err != nil && !errors.Is(err, ledger.ErrCredentialNotFound) {
			s.log.WithError(err).WithField("owner", owner).Error("ledger lookup failed")
			writeError(w, http.StatusBadGateway, "ledger lookup failed")
			return
		}
		if err == nil {
			resp.Credential = &credentialPayload{
				DataHash:  c.DataHash,
				Timestamp: unixSeconds(c.Timestamp),
				Verified:  c.Verified,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
