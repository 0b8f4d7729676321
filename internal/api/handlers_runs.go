package api

import (
	"errors"
	"net/http"

	"cineflow/console/internal/job"
	"cineflow/console/internal/model"
	"cineflow/console/internal/store"

	"github.com/gin-gonic/gin"
)

func (s *Server) listRuns(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	items, total, q, err := s.store.ListRuns(q, model.Status(c.Query("status")))
	if err != nil {
		s.writeStoreError(c, err, "Run")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) createRun(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req model.RunCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidation(c, "Invalid run payload", map[string]any{"reason": err.Error()})
		return
	}
	run, err := s.jobs.CreateRun(c.Request.Context(), req)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			writeValidation(c, vErr.Message, map[string]any{"field": vErr.Field})
			return
		}
		s.writeStoreError(c, err, "Storyboard")
		return
	}
	writeJSON(c, http.StatusCreated, run)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.store.GetRun(c.Param("run_id"))
	if err != nil {
		s.writeStoreError(c, err, "Run")
		return
	}
	writeJSON(c, http.StatusOK, run)
}

func (s *Server) deleteRun(c *gin.Context) {
	if err := s.store.DeleteRun(c.Param("run_id")); err != nil {
		s.writeStoreError(c, err, "Run")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listRunTasks(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	segmentIndex, ok := queryIntPtr(c, "segment_index")
	if !ok {
		return
	}
	retryable, ok := queryBool(c, "retryable")
	if !ok {
		return
	}
	f := store.TaskFilter{
		Status:       model.Status(c.Query("status")),
		SegmentIndex: segmentIndex,
		ErrorCode:    model.TaskErrorCode(c.Query("error_code")),
		Retryable:    retryable,
	}
	items, total, q, err := s.store.ListTasks(c.Param("run_id"), f, q)
	if err != nil {
		s.writeStoreError(c, err, "Run")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) getTask(c *gin.Context) {
	rec, err := s.store.GetTask(c.Param("task_id"))
	if err != nil {
		s.writeStoreError(c, err, "Task")
		return
	}
	writeJSON(c, http.StatusOK, rec.Task)
}

func (s *Server) retryTask(c *gin.Context) {
	task, err := s.jobs.RetryTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotRetryable) {
			writeError(c, http.StatusConflict, "conflict", "Only failed tasks can be retried", false, nil)
			return
		}
		s.writeStoreError(c, err, "Task")
		return
	}
	writeJSON(c, http.StatusAccepted, task)
}

func (s *Server) downloadTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := s.store.GetTask(taskID); err != nil {
		s.writeStoreError(c, err, "Task")
		return
	}
	u, err := s.store.GetUpload(job.VideoUploadName(taskID))
	if err != nil {
		writeError(c, http.StatusNotFound, "not_found", "Video not available", false, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+taskID+`.mp4"`)
	c.Data(http.StatusOK, u.ContentType, u.Data)
}

// taskMetadata returns the task with the executor's bookkeeping fields.
func (s *Server) taskMetadata(c *gin.Context) {
	rec, err := s.store.GetTask(c.Param("task_id"))
	if err != nil {
		s.writeStoreError(c, err, "Task")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"id":            rec.ID,
		"run_id":        rec.RunID,
		"status":        rec.Status,
		"segment_id":    rec.SegmentID,
		"segment_index": rec.SegmentIndex,
		"version_index": rec.VersionIndex,
		"provider_id":   nilIfEmpty(rec.ProviderID),
		"attempt":       rec.Attempt,
		"video_url":     rec.VideoURL,
		"metadata_url":  rec.MetadataURL,
		"full_prompt":   rec.FullPrompt,
		"error_code":    rec.ErrorCode,
		"error_msg":     rec.ErrorMsg,
		"retryable":     rec.Retryable,
		"created_at":    rec.CreatedAt,
	})
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
