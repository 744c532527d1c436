package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"pipewright/internal/artifact"
	"pipewright/internal/cache"
	"pipewright/internal/genspec"
	"pipewright/internal/profiler"
	"pipewright/internal/project"
	"pipewright/internal/sniff"
)

const (
	maxJSONUpload = 100 << 20 // JSON is parsed whole, so it gets a tighter cap
	maxUpload     = 5 << 30

	sampleDataRows = 50
)

// Service holds the request handlers' shared dependencies.
type Service struct {
	gen       *genspec.Generator
	projects  *project.Store
	artifacts artifact.Store
	profiles  *cache.LRUTTL[string, *profiler.FileProfile]
}

type profileResponse struct {
	Profile  *profiler.FileProfile `json:"profile"`
	Analysis *genspec.Analysis     `json:"analysis"`
}

// handleProfile accepts a multipart upload, profiles it and runs the deep
// analysis. Identical uploads reuse the cached profile; profiling is a pure
// function of the bytes.
func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	mimeType := resolveMimeType(header.Header.Get("Content-Type"), header.Filename)
	limit := int64(maxUpload)
	if mimeType == profiler.MimeJSON {
		limit = maxJSONUpload
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if int64(len(content)) > limit {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit for %s", limit, mimeType))
		return
	}

	prof, err := s.profileContent(content, mimeType)
	if err != nil {
		if errors.Is(err, profiler.ErrUnsupportedType) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	req := genspec.Request{
		Profile:  prof,
		FileName: header.Filename,
		Meta: genspec.ProjectMeta{
			Name:        r.FormValue("projectName"),
			Description: r.FormValue("projectDescription"),
		},
	}
	analysis, err := s.gen.AnalyzeFile(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: prof, Analysis: analysis})
}

func (s *Service) profileContent(content []byte, mimeType string) (*profiler.FileProfile, error) {
	sum := sha256.Sum256(content)
	key := mimeType + ":" + hex.EncodeToString(sum[:])
	if prof, ok := s.profiles.Get(key); ok {
		return prof, nil
	}

	size := int64(len(content))
	prof, err := profiler.Profile(content, mimeType, profiler.NewSampleInfo(size, size, true))
	if err != nil {
		return nil, err
	}
	if len(prof.SampleRows) == 0 {
		text, _ := sniff.DecodeText(content)
		prof.SampleRows = profiler.ExtractSampleData(text, mimeType, sampleDataRows)
	}

	s.profiles.Set(key, prof, len(content))
	return prof, nil
}

type generateRequest struct {
	Profile  *profiler.FileProfile `json:"profile"`
	FileName string                `json:"fileName"`
	Project  genspec.ProjectMeta   `json:"project"`
}

type generateResponse struct {
	RunID string `json:"runId"`
	*genspec.Response
}

// handleGenerateSpec turns a profile into a validated pipeline spec plus
// report and persists both as run artifacts.
func (s *Service) handleGenerateSpec(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONUpload)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	if req.Profile == nil {
		writeError(w, http.StatusBadRequest, "profile is required")
		return
	}

	resp := s.gen.Generate(r.Context(), genspec.Request{
		Profile:  req.Profile,
		FileName: req.FileName,
		Meta:     req.Project,
	})

	runID := project.NewID()
	if err := s.artifacts.Put(r.Context(), runID, "spec.json", resp.PipelineSpec); err != nil {
		log.Printf("persist spec.json for run %s: %v", runID, err)
	}
	if err := s.artifacts.Put(r.Context(), runID, "report.md", []byte(resp.ReportMarkdown)); err != nil {
		log.Printf("persist report.md for run %s: %v", runID, err)
	}

	writeJSON(w, http.StatusOK, generateResponse{RunID: runID, Response: resp})
}

func (s *Service) handleListProjects(w http.ResponseWriter, r *http.Request) {
	recs, err := s.projects.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []project.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Service) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var rec project.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "decode project: "+err.Error())
		return
	}
	rec.ID = ""
	saved, err := s.projects.Put(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Service) handleGetProject(w http.ResponseWriter, r *http.Request) {
	rec, err := s.projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.projects.Get(r.Context(), id); err != nil {
		writeProjectError(w, err)
		return
	}
	var rec project.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "decode project: "+err.Error())
		return
	}
	rec.ID = id
	saved, err := s.projects.Put(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Service) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeProjectError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeProjectError(w http.ResponseWriter, err error) {
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// resolveMimeType normalizes the declared content type, falling back to the
// file extension when the browser sent something generic.
func resolveMimeType(declared, filename string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err == nil {
		switch mt {
		case profiler.MimeCSV, profiler.MimeJSON, profiler.MimeXMLText, profiler.MimeXMLApp:
			return mt
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return profiler.MimeCSV
	case ".json", ".ndjson", ".jsonl":
		return profiler.MimeJSON
	case ".xml":
		return profiler.MimeXMLText
	}
	if err == nil && mt != "" {
		return mt
	}
	return declared
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
