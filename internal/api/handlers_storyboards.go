package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"cineflow/console/internal/model"
	"cineflow/console/internal/store"

	"github.com/gin-gonic/gin"
)

type storyboardFile struct {
	Segments []model.Segment `json:"segments"`
}

func (s *Server) listStoryboards(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	items, total, q, err := s.store.ListStoryboards(q, c.Query("name"))
	if err != nil {
		s.writeStoreError(c, err, "Storyboard")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) uploadStoryboard(c *gin.Context) {
	name, raw, ok := readUpload(c)
	if !ok {
		return
	}
	var file storyboardFile
	if err := json.Unmarshal(raw, &file); err != nil {
		writeError(c, http.StatusBadRequest, "schema_error", "Invalid JSON", false, map[string]any{"reason": err.Error()})
		return
	}
	sb, err := s.store.CreateStoryboard(name, file.Segments)
	if err != nil {
		writeError(c, http.StatusBadRequest, "schema_error", "Invalid storyboard schema",
			false, map[string]any{"reason": strings.TrimPrefix(err.Error(), store.ErrBadRequest.Error()+": ")})
		return
	}
	s.log.Info("storyboard_uploaded", "storyboard_id", sb.ID, "segments", sb.SegmentCount)
	writeJSON(c, http.StatusCreated, sb)
}

func (s *Server) getStoryboard(c *gin.Context) {
	sb, err := s.store.GetStoryboard(c.Param("storyboard_id"))
	if err != nil {
		s.writeStoreError(c, err, "Storyboard")
		return
	}
	writeJSON(c, http.StatusOK, sb)
}

func (s *Server) deleteStoryboard(c *gin.Context) {
	if err := s.store.DeleteStoryboard(c.Param("storyboard_id")); err != nil {
		s.writeStoreError(c, err, "Storyboard")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listSegments(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	isPro, ok := queryBool(c, "is_pro")
	if !ok {
		return
	}
	f := store.SegmentFilter{Resolution: model.Resolution(c.Query("resolution")), IsPro: isPro}
	items, total, q, err := s.store.ListSegments(c.Param("storyboard_id"), f, q)
	if err != nil {
		s.writeStoreError(c, err, "Storyboard")
		return
	}
	writeJSON(c, http.StatusOK, pageOf(items, total, q))
}

func (s *Server) patchSegment(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var patch model.SegmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeValidation(c, "Invalid segment update", map[string]any{"reason": err.Error()})
		return
	}
	seg, err := s.store.UpdateSegment(c.Param("segment_id"), patch)
	if err != nil {
		s.writeStoreError(c, err, "Segment")
		return
	}
	writeJSON(c, http.StatusOK, seg)
}

func (s *Server) uploadStartImage(c *gin.Context) {
	segmentID := c.Param("segment_id")
	if _, err := s.store.GetSegment(segmentID); err != nil {
		s.writeStoreError(c, err, "Segment")
		return
	}
	name, raw, ok := readUpload(c)
	if !ok {
		return
	}
	filename := segmentID + "_" + name
	s.store.SaveUpload(store.Upload{Name: filename, ContentType: contentTypeFor(name, raw), Data: raw})
	imageURL := "/uploads/" + filename
	if _, err := s.store.UpdateSegment(segmentID, model.SegmentPatch{ImageURL: &imageURL}); err != nil {
		s.writeStoreError(c, err, "Segment")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"image_url": imageURL})
}

func (s *Server) serveUpload(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	u, err := s.store.GetUpload(name)
	if err != nil {
		s.writeStoreError(c, err, "Upload")
		return
	}
	c.Data(http.StatusOK, u.ContentType, u.Data)
}

// readUpload returns the base name and contents of the multipart "file" field.
func readUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeValidation(c, "file is required", map[string]any{"reason": err.Error()})
		return "", nil, false
	}
	f, err := fh.Open()
	if err != nil {
		writeValidation(c, "file could not be read", nil)
		return "", nil, false
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		writeValidation(c, "file could not be read", nil)
		return "", nil, false
	}
	name := path.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return name, raw, true
}

func contentTypeFor(name string, raw []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(raw)
}
