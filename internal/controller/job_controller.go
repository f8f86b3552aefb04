package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/service"
)

var validate = validator.New()

type JobController struct {
	Service    *service.JobService
	CronSecret string
	Logger     *zap.Logger
}

type createJobPayload struct {
	TeamID          string  `json:"team_id" validate:"required"`
	ChannelID       *string `json:"channel_id"`
	Days            int     `json:"days"`
	Limit           int     `json:"limit"`
	MessageTemplate string  `json:"message_template" validate:"required"`
	SenderUserID    *string `json:"sender_user_id"`
}

// CreateJob computes the recipient set and enqueues a bulk DM job.
func (c *JobController) CreateJob(w http.ResponseWriter, r *http.Request) {
	var payload createJobPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Missing team_id or message_template.")
		return
	}

	in := service.CreateJobInput{
		TeamID:          payload.TeamID,
		Days:            payload.Days,
		Limit:           payload.Limit,
		MessageTemplate: payload.MessageTemplate,
		SenderUserID:    payload.SenderUserID,
	}
	if payload.ChannelID != nil {
		in.ChannelID = *payload.ChannelID
	}

	result, err := c.Service.CreateJob(r.Context(), in)
	if err != nil {
		c.Logger.Error("create job failed", zap.String("team_id", payload.TeamID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to create DM job.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": result.JobID,
		"count":  result.RecipientCount,
	})
}

// GetJob returns the job row plus per-status recipient counts.
func (c *JobController) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	details, err := c.Service.GetJobWithStats(r.Context(), jobID)
	if err != nil {
		var notFound *appErrors.ErrJobNotFound
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "Job not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Unable to load job.")
		return
	}

	writeJSON(w, http.StatusOK, details)
}

type runJobPayload struct {
	JobID     string `json:"job_id" validate:"required"`
	BatchSize int    `json:"batch_size"`
}

// RunJob triggers one bounded batch for a single job.
func (c *JobController) RunJob(w http.ResponseWriter, r *http.Request) {
	var payload runJobPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Missing job_id.")
		return
	}

	processed, err := c.Service.RunJob(r.Context(), payload.JobID, payload.BatchSize)
	if err != nil {
		var notFound *appErrors.ErrJobNotFound
		var noSender *appErrors.ErrMissingSenderToken
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, "Job not found.")
		case errors.As(err, &noSender):
			writeError(w, http.StatusBadRequest, "Workspace missing sender token.")
		default:
			c.Logger.Error("run job failed", zap.String("job_id", payload.JobID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Job run failed.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "processed": processed})
}

type processQueuePayload struct {
	TeamID    string `json:"team_id"`
	MaxJobs   int    `json:"max_jobs"`
	BatchSize int    `json:"batch_size"`
}

// ProcessQueue runs one dispatcher pass. An empty body is fine; all
// bounds fall back to defaults.
func (c *JobController) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var payload processQueuePayload
	// Tolerate an empty body like the defaults-only cron caller sends.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	result, err := c.Service.RunPass(r.Context(), payload.TeamID, payload.MaxJobs, payload.BatchSize)
	if err != nil {
		c.Logger.Error("dispatcher pass failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to load queued jobs.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"jobs_processed": result.JobsProcessed,
		"messages_sent":  result.MessagesSent,
	})
}

// CronQueue is the externally scheduled trigger: same pass, fixed
// defaults, guarded by a shared secret.
func (c *JobController) CronQueue(w http.ResponseWriter, r *http.Request) {
	if c.CronSecret == "" {
		writeError(w, http.StatusInternalServerError, "Missing CRON_SECRET.")
		return
	}
	if !cronAuthorized(r, c.CronSecret) {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	result, err := c.Service.RunPass(r.Context(), "", 5, 20)
	if err != nil {
		c.Logger.Error("cron pass failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Queue run failed.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"jobs_processed": result.JobsProcessed,
		"messages_sent":  result.MessagesSent,
	})
}

func cronAuthorized(r *http.Request, secret string) bool {
	if r.Header.Get("Authorization") == "Bearer "+secret {
		return true
	}
	return r.URL.Query().Get("secret") == secret
}
