// Package extractor turns a job's source (a URL or an uploaded file) into
// plain text, dispatching on the job's source kind.
//
// Go Pattern: Extractor is defined here, where it's used, and each concrete
// extractor satisfies it implicitly. A small map[SourceKind]Extractor plays
// the role a registry/factory class would play in other languages — no
// reflection, no plugin system, just a literal map built at startup.
package extractor

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// Result is what every extractor hands back to the orchestrator.
//
// NeedsTranscription and AudioPath are set only by the video-host extractor
// when it could not find usable captions — the orchestrator is then
// responsible for handing AudioPath to the transcriber and replacing Text
// with the transcription output before chunking. Label is left empty in
// that case; the orchestrator fills it in with "whisper" once transcription
// completes.
type Result struct {
	Text                string
	Meta                map[string]interface{}
	Label               models.TranscriptLabel
	NeedsTranscription  bool
	AudioPath           string
}

// Extractor is satisfied by every source-kind-specific extractor.
type Extractor interface {
	Extract(ctx context.Context, job *models.Job) (*Result, error)
}

// Registry dispatches to the right Extractor for a job's source kind.
type Registry struct {
	extractors map[models.SourceKind]Extractor
}

// NewRegistry wires up every extractor this project knows about.
func NewRegistry(video, article, pdf, epub Extractor) *Registry {
	return &Registry{extractors: map[models.SourceKind]Extractor{
		models.SourceVideoHost:  video,
		models.SourceArticleURL: article,
		models.SourcePDFFile:    pdf,
		models.SourceEPUBFile:   epub,
	}}
}

// Get returns the extractor for a source kind, or an error if the kind is
// unknown — this should never happen in practice since the HTTP layer
// validates source kind before a job is ever created.
func (r *Registry) Get(kind models.SourceKind) (Extractor, error) {
	e, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for source kind %q", kind)
	}
	return e, nil
}
