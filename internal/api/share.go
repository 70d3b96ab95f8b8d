package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/resume"
	"github.com/muhammadolammi/resumezk/internal/share"
)

type createShareRequest struct {
	ResumeData json.RawMessage `json:"resumeData"`
}

type createShareResponse struct {
	ShareID   string `json:"shareId"`
	ShareURL  string `json:"shareUrl"`
	ExpiresAt int64  `json:"expiresAt"`
	ShareText string `json:"shareText"`
}

type resolveShareResponse struct {
	ResumeData json.RawMessage `json:"resumeData"`
	CreatedAt  int64           `json:"createdAt"`
	ExpiresAt  int64           `json:"expiresAt"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !present(req.ResumeData) {
		writeError(w, http.StatusBadRequest, "resumeData is required")
		return
	}

	facade := s.integrity
	if facade.BaseURL() == "" {
		facade = facade.WithBaseURL(requestOrigin(r, s.trustProxy))
	}
	link, err := facade.CreateShareLink(r.Context(), req.ResumeData)
	if errors.Is(err, share.ErrEmptyPayload) || errors.Is(err, share.ErrInvalidPayload) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to create share link")
		writeError(w, http.StatusInternalServerError, "failed to create share link")
		return
	}

	s.log.WithFields(logrus.Fields{"share_id": link.ID, "expires_at": link.ExpiresAt}).Info("share link created")
	s.emit(r.Context(), events.Event{
		Kind:    events.KindShare,
		Subject: "created",
		Data:    map[string]any{"shareId": link.ID, "expiresAt": link.ExpiresAt.UnixMilli()},
	})
	writeJSON(w, http.StatusOK, createShareResponse{
		ShareID:   link.ID,
		ShareURL:  link.URL,
		ExpiresAt: link.ExpiresAt.UnixMilli(),
		ShareText: resume.ShareText(req.ResumeData),
	})
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "share id is required")
		return
	}
	rec, err := s.integrity.ResolveShareLink(r.Context(), id)
	switch {
	case share.IsNotFound(err):
		writeError(w, http.StatusNotFound, "share link not found")
		return
	case share.IsExpired(err):
		writeError(w, http.StatusGone, "share link has expired")
		return
	case err != nil:
		s.log.WithError(err).WithField("share_id", id).Error("failed to resolve share link")
		writeError(w, http.StatusInternalServerError, "failed to resolve share link")
		return
	}
	writeJSON(w, http.StatusOK, resolveShareResponse{
		ResumeData: rec.Payload,
		CreatedAt:  rec.CreatedAt.UnixMilli(),
		ExpiresAt:  rec.ExpiresAt.UnixMilli(),
	})
}
