package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/database"
	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/hasher"
	"github.com/muhammadolammi/resumezk/internal/integrity"
	"github.com/muhammadolammi/resumezk/internal/jobs"
	"github.com/muhammadolammi/resumezk/internal/ledger"
	"github.com/muhammadolammi/resumezk/internal/objectstore"
	"github.com/muhammadolammi/resumezk/internal/resume"
)

func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		writeError(w, http.StatusServiceUnavailable, "resume parser is not configured")
		return
	}
	up, status, err := readUpload(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	text, err := resume.ExtractText(up.contentType, up.data)
	if err != nil {
		s.log.WithError(err).WithField("filename", up.filename).Warn("text extraction failed")
		writeError(w, http.StatusUnprocessableEntity, "failed to extract text from file")
		return
	}

	start := s.clock.Now()
	info, err := s.parser.Parse(r.Context(), text)
	if err != nil {
		s.metrics.ParseDone("error", s.clock.Now().Sub(start))
		s.log.WithError(err).WithField("filename", up.filename).Error("resume parse failed")
		writeError(w, http.StatusBadGateway, "failed to analyse resume")
		return
	}
	s.metrics.ParseDone("ok", s.clock.Now().Sub(start))

	if s.archive != nil {
		key := objectstore.NewKey(up.filename)
		mime := resume.NormalizeMime(up.contentType)
		if err := s.archive.Upload(r.Context(), key, mime, up.data); err != nil {
			s.log.WithError(err).WithField("object_key", key).Warn("failed to archive upload")
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"resumeInfo": info})
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "parse jobs are not configured")
		return
	}
	up, status, err := readUpload(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	job, err := s.jobs.Submit(r.Context(), jobs.Upload{
		Filename:    up.filename,
		ContentType: up.contentType,
		Data:        up.data,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to submit parse job")
		writeError(w, http.StatusServiceUnavailable, "failed to queue parse job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobId": job.ID, "status": job.Status})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "parse jobs are not configured")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "parse job not found")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("job_id", id).Error("failed to load parse job")
		writeError(w, http.StatusInternalServerError, "failed to load parse job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type commitRequest struct {
	ResumeData json.RawMessage `json:"resumeData"`
	Submit     bool            `json:"submit"`
}

type commitResponse struct {
	integrity.Commitment
	TxHash ledger.TxHash `json:"txHash,omitempty"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !present(req.ResumeData) {
		writeError(w, http.StatusBadRequest, "resumeData is required")
		return
	}
	if req.Submit && s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger is not configured")
		return
	}

	c, err := s.integrity.CommitResume(req.ResumeData)
	if err != nil {
		if errors.Is(err, integrity.ErrNotObject) || errors.Is(err, hasher.ErrSerialization) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.WithError(err).Error("commit failed")
		writeError(w, http.StatusInternalServerError, "failed to commit resume")
		return
	}
	resp := commitResponse{Commitment: c}
	log := s.log.WithFields(logrus.Fields{"content_hash": c.ContentHash, "merkle_root": c.MerkleRoot})

	if req.Submit {
		tx, err := s.ledger.SubmitResume(r.Context(), c.ContentHash, c.MerkleRoot)
		if err != nil {
			log.WithError(err).Error("ledger submit failed")
			writeError(w, http.StatusBadGateway, "failed to submit resume to ledger")
			return
		}
		resp.TxHash = tx
		log = log.WithField("tx_hash", tx)
	}

	if s.commitments != nil {
		err := s.commitments.CreateOrUpdateCommitment(r.Context(), database.CreateOrUpdateCommitmentParams{
			ContentHash:      string(c.ContentHash),
			MerkleRoot:       string(c.MerkleRoot),
			PartitionVersion: c.PartitionVersion,
			TxHash:           sql.NullString{String: string(resp.TxHash), Valid: resp.TxHash != ""},
		})
		if err != nil {
			log.WithError(err).Warn("failed to record commitment")
		}
	}

	log.Info("resume committed")
	s.emit(r.Context(), events.Event{
		Kind:    events.KindResume,
		Subject: "committed",
		Data:    resp,
	})
	writeJSON(w, http.StatusOK, resp)
}

type resumeResponse struct {
	ContentHash hasher.Digest `json:"contentHash"`
	MerkleRoot  hasher.Digest `json:"merkleRoot"`
	Owner       string        `json:"owner"`
	Timestamp   int64         `json:"timestamp"`
	Verified    bool          `json:"verified"`
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger is not configured")
		return
	}
	hash, err := hasher.ParseDigest(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content hash")
		return
	}
	rec, err := s.ledger.GetResume(r.Context(), hash)
	if errors.Is(err, ledger.ErrResumeNotFound) {
		writeError(w, http.StatusNotFound, "resume not found")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("content_hash", hash).Error("ledger lookup failed")
		writeError(w, http.StatusBadGateway, "ledger lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, resumeResponse{
		ContentHash: hash,
		MerkleRoot:  rec.MerkleRoot,
		Owner:       rec.Owner,
		Timestamp:   unixSeconds(rec.Timestamp),
		Verified:    rec.Verified,
	})
}

func (s *Server) handleUserResumes(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger is not configured")
		return
	}
	owner := r.PathValue("owner")
	hashes, err := s.ledger.GetUserResumes(r.Context(), owner)
	if errors.Is(err, ledger.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, "invalid owner address")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("ledger lookup failed")
		writeError(w, http.StatusBadGateway, "ledger lookup failed")
		return
	}
	if hashes == nil {
		hashes = []hasher.Digest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": owner, "resumes": hashes})
}

// unixSeconds matches the contract's block timestamps.
func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
