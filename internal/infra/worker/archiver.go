package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/repository"
)

// Archiver copies a recorded job's artifacts to an ArtifactStore in the
// background. Archival is best effort: a full queue or a failed upload is
// logged and never fails the request that produced the job.
type Archiver struct {
	store   repository.ArtifactStore
	pool    *Pool
	timeout time.Duration
	log     *zerolog.Logger
}

func NewArchiver(store repository.ArtifactStore, pool *Pool, log *zerolog.Logger) *Archiver {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Archiver{store: store, pool: pool, timeout: 30 * time.Second, log: log}
}

// Artifact is one stored file of a job.
type Artifact struct {
	Key         string
	Data        []byte
	ContentType string
}

// Artifacts lays a job out as <id>/source_<lang>.txt,
// <id>/translated_<lang>.txt and <id>/report.json.
func Artifacts(job *model.Job) []Artifact {
	out := []Artifact{{
		Key:         artifactKey(job.ID, "source", job.SourceLang),
		Data:        []byte(job.SourceCode),
		ContentType: "text/plain; charset=utf-8",
	}}
	if job.TranslatedCode != "" {
		out = append(out, Artifact{
			Key:         artifactKey(job.ID, "translated", job.TargetLang),
			Data:        []byte(job.TranslatedCode),
			ContentType: "text/plain; charset=utf-8",
		})
	}
	if job.Report != nil {
		if data, err := json.Marshal(job.Report); err == nil {
			out = append(out, Artifact{Key: artifactKey(job.ID, "report", ""), Data: data, ContentType: "application/json"})
		}
	}
	return out
}

func artifactKey(id, kind string, lang model.Language) string {
	if kind == "report" {
		return id + "/report.json"
	}
	return fmt.Sprintf("%s/%s_%s.txt", id, kind, lang)
}

// ArtifactKeys lists where the kind file (source, translated or report) of
// job id may have been archived, without knowing the job's languages.
func ArtifactKeys(id, kind string) []string {
	if kind == "report" {
		return []string{artifactKey(id, kind, "")}
	}
	keys := make([]string, 0, len(model.Languages))
	for _, l := range model.Languages {
		keys = append(keys, artifactKey(id, kind, l))
	}
	return keys
}

// Enqueue schedules the upload of job's artifacts.
func (a *Archiver) Enqueue(job *model.Job) {
	if a == nil || a.store == nil {
		return
	}
	arts := Artifacts(job)
	err := a.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		for _, art := range arts {
			if err := a.store.Put(ctx, art.Key, art.Data, art.ContentType); err != nil {
				return fmt.Errorf("archive %s: %w", art.Key, err)
			}
		}
		a.log.Debug().Str("job_id", job.ID).Int("files", len(arts)).Msg("job archived")
		return nil
	})
	if err != nil {
		a.log.Warn().Err(err).Str("job_id", job.ID).Msg("archive skipped")
	}
}
