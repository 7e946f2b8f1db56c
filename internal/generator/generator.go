// Package generator implements the map/reduce stage: turning chunk text
// into per-chunk summaries (map), then summaries into the five channel
// artifacts (reduce), with bounded per-stage worker pools.
//
// Go Pattern: fan-out/fan-in with golang.org/x/sync/errgroup plus a counting
// semaphore, torn down when the stage call returns — no package-level pool,
// each invocation owns its own bounded concurrency for the duration of one
// stage, matching the "stage-local pool" contract this project's
// orchestrator requires.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/media-tools-api/internal/llmclient"
	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

const chunkSeparator = "\n\n---\n\n"

// Generator runs the map and reduce stages against an LLM client.
type Generator struct {
	llm         llmclient.Client
	mapModel    string
	reduceModel string
	mapWorkers  int
	redWorkers  int
}

// New builds a Generator. mapWorkers/reduceWorkers are the WMAP/WRED caps;
// the actual pool size for a given call is min(cap, task_count).
func New(llm llmclient.Client, mapModel, reduceModel string, mapWorkers, reduceWorkers int) *Generator {
	return &Generator{llm: llm, mapModel: mapModel, reduceModel: reduceModel, mapWorkers: mapWorkers, redWorkers: reduceWorkers}
}

// MapChunks runs the map stage over every chunk concurrently, bounded by
// WMAP, and returns summaries re-ordered to match the input chunk order
// regardless of completion order (spec P4).
func (g *Generator) MapChunks(ctx context.Context, chunks []string) ([]string, error) {
	total := len(chunks)
	if total == 0 {
		return nil, nil
	}

	workers := g.mapWorkers
	if total < workers {
		workers = total
	}

	results := make([]string, total)
	var mu sync.Mutex

	grp, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		grp.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			summary, err := g.llm.Complete(gctx, g.mapModel, []llmclient.Message{
				{Role: "system", Content: mapSystemPrompt},
				{Role: "user", Content: chunk},
			})
			if err != nil {
				return fmt.Errorf("llm_error: map chunk %d: %w", i, err)
			}

			mu.Lock()
			results[i] = summary
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ReduceInput carries the optional revision context for a reduce call. A
// zero-value ReduceInput generates every channel fresh with no revision
// context — "generate-all is simply channels = full catalog".
type ReduceInput struct {
	Summaries         []string
	ValidationReport  map[string]json.RawMessage // platform -> report entry
	PreviousTexts     map[string]string          // payload_key or platform -> prior artifact text
	RestrictToKeys    []string                   // nil/empty means "every channel in the catalog"
}

// reduceTask is one channel's unit of work, resolved before fan-out so the
// worker goroutines do nothing but the blocking LLM call.
type reduceTask struct {
	def          models.ChannelDef
	systemPrompt string
}

// Reduce runs the reduce stage over the channels in scope, bounded by WRED,
// and returns a map keyed by payload_key — reduce outputs are inherently
// order-independent since they're addressed by key, not position. The
// result always carries reduce_summary_text, the joined input summaries.
func (g *Generator) Reduce(ctx context.Context, in ReduceInput) (map[string]interface{}, error) {
	combined := joinSummaries(in.Summaries)

	scope := scopeSet(in.RestrictToKeys)
	var tasks []reduceTask
	for _, def := range models.ChannelCatalog {
		if scope != nil && !scope[def.PayloadKey] {
			continue
		}
		prompt := systemPromptFor(def.PayloadKey)
		if len(in.ValidationReport) > 0 && len(in.PreviousTexts) > 0 {
			if report, ok := in.ValidationReport[def.Platform]; ok {
				prev := in.PreviousTexts[def.PayloadKey]
				if prev == "" {
					prev = in.PreviousTexts[def.Platform]
				}
				prompt += fmt.Sprintf(revisionAddendumTemplate, string(report), prev)
			}
		}
		tasks = append(tasks, reduceTask{def: def, systemPrompt: prompt})
	}

	result := make(map[string]interface{}, len(tasks)+1)
	var mu sync.Mutex

	if len(tasks) > 0 {
		workers := g.redWorkers
		if len(tasks) < workers {
			workers = len(tasks)
		}

		grp, gctx := errgroup.WithContext(ctx)
		sem := make(chan struct{}, workers)

		for _, task := range tasks {
			task := task
			grp.Go(func() error {
				select {
				case sem <- struct{}{}:
				case <-gctx.Done():
					return gctx.Err()
				}
				defer func() { <-sem }()

				messages := []llmclient.Message{
					{Role: "system", Content: task.systemPrompt},
					{Role: "user", Content: combined},
				}

				var value interface{}
				if task.def.EmitsJSON {
					raw, err := g.llm.CompleteJSON(gctx, g.reduceModel, messages)
					if err != nil {
						return fmt.Errorf("llm_error: reduce channel %s: %w", task.def.PayloadKey, err)
					}
					var parsed interface{}
					if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
						return fmt.Errorf("llm_error: channel %s returned invalid JSON: %w", task.def.PayloadKey, err)
					}
					value = parsed
				} else {
					text, err := g.llm.Complete(gctx, g.reduceModel, messages)
					if err != nil {
						return fmt.Errorf("llm_error: reduce channel %s: %w", task.def.PayloadKey, err)
					}
					value = text
				}

				mu.Lock()
				result[task.def.PayloadKey] = value
				mu.Unlock()
				return nil
			})
		}

		if err := grp.Wait(); err != nil {
			return nil, err
		}
	}

	result[models.ReduceSummaryKey] = combined
	return result, nil
}

func joinSummaries(summaries []string) string {
	if len(summaries) == 0 {
		return ""
	}
	out := summaries[0]
	for _, s := range summaries[1:] {
		out += chunkSeparator + s
	}
	return out
}

// scopeSet builds a lookup set from a restriction list. An empty/nil list
// means "no restriction" (every catalog channel), represented by a nil map
// so callers can distinguish "no restriction" from "restricted to nothing".
func scopeSet(keys []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}
