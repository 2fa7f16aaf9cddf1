package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"code-translator/internal/domain"
	"code-translator/internal/infra/logging"
	"code-translator/internal/infra/worker"
)

const maxBody = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return fmt.Errorf("%w: request body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	l := logging.With(r.Context(), s.log)
	if domain.KindOf(err) == domain.KindInternal {
		l.Error().Err(err).Msg("request failed")
	} else {
		l.Debug().Err(err).Msg("request rejected")
	}
	writeError(w, err)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.pipe.Translate(r.Context(), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{TranslatedCode: res.TranslatedCode, JobID: res.JobID})
}

func (s *Server) handleTranslateAndVerify(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.pipe.TranslateAndVerify(r.Context(), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{TranslatedCode: res.TranslatedCode, JobID: res.JobID, Report: res.Report})
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, name)
	}
	return n, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jobs, err := s.pipe.History(r.Context(), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := historyResponse{Items: make([]jobItem, 0, len(jobs))}
	for _, j := range jobs {
		out.Items = append(out.Items, itemOf(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.pipe.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemOf(job))
}

// handleJobFile serves one of a job's files: source, translated or report.
func (s *Server) handleJobFile(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != "source" && kind != "translated" && kind != "report" {
		s.fail(w, r, fmt.Errorf("%w: file kind %q is not one of source, translated, report", domain.ErrInvalidArgument, kind))
		return
	}
	id := chi.URLParam(r, "id")
	job, err := s.pipe.GetJob(r.Context(), id)
	if errors.Is(err, domain.ErrJobNotFound) && s.opts.Artifacts != nil {
		if s.serveArchived(w, r, id, kind) {
			return
		}
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body, name string
	switch kind {
	case "source":
		body, name = job.SourceCode, fmt.Sprintf("source_%s.txt", job.SourceLang)
	case "translated":
		body, name = job.TranslatedCode, fmt.Sprintf("translated_%s.txt", job.TargetLang)
	case "report":
		if job.Report == nil {
			s.fail(w, r, fmt.Errorf("%w: job %s has no report", domain.ErrJobNotFound, job.ID))
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="report.json"`)
		writeJSON(w, http.StatusOK, job.Report)
		return
	}
	if body == "" {
		s.fail(w, r, fmt.Errorf("%w: job %s has no %s file", domain.ErrJobNotFound, job.ID, kind))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write([]byte(body))
}

// serveArchived answers from object storage; false means nothing was found
// and nothing was written.
func (s *Server) serveArchived(w http.ResponseWriter, r *http.Request, id, kind string) bool {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return false
	}
	for _, key := range worker.ArtifactKeys(id, kind) {
		data, err := s.opts.Artifacts.Get(r.Context(), key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Str("key", key).Msg("archive read failed")
			return false
		}
		name := path.Base(key)
		ct := "text/plain; charset=utf-8"
		if kind == "report" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return true
	}
	return false
}

// handleHealth runs every registered probe with a short deadline. The
// endpoint answers 200 even when a dependency is down; ok turns false.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	out := map[string]any{}
	ok := true
	for name, probe := range s.probes {
		up := probe(ctx) == nil
		out[name] = up
		ok = ok && up
	}
	out["ok"] = ok
	writeJSON(w, http.StatusOK, out)
}
