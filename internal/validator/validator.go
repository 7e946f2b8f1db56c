// Package validator inspects generated channel artifacts against the source
// transcript and produces a per-channel pass/fail report plus an overall
// verdict, gating whether a job is approved or sent back for revision.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Shimizu-Technology/media-tools-api/internal/llmclient"
	"github.com/Shimizu-Technology/media-tools-api/internal/models"
	"github.com/Shimizu-Technology/media-tools-api/internal/tokenizer"
)

const validatorSystemPromptTemplate = `You are a strict editor. Review the text written for each platform below against three criteria.

For each criterion, decide whether it passes (passed: true/false) and give a brief explanation (details).

Criteria:
1. policy_risk — does the text contain potentially dangerous, illegal, offensive, or unethical content?
2. hallucination — does the text contain facts, numbers, or claims that are NOT in the original transcript? Compare literally.
3. tone_mismatch — does the text's tone and style fit its target platform?

Respond strictly as JSON, an object keyed by platform name, each value shaped like:
{"checks": [{"name": "policy_risk", "passed": true, "details": "..."}, {"name": "hallucination", "passed": true, "details": "..."}, {"name": "tone_mismatch", "passed": true, "details": "..."}]}

Platforms in scope: %s`

// Check is one named pass/fail verdict within a channel's report entry.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// ChannelReport is one channel's entry in the validation report. Textual
// channels populate Checks; the schema-only storyboard channel populates
// Passed/Details directly with no named checks.
type ChannelReport struct {
	Checks  []Check `json:"checks,omitempty"`
	Passed  *bool   `json:"passed,omitempty"`
	Details string  `json:"details,omitempty"`
}

// Report is the full per-channel verdict map, keyed by platform name.
type Report map[string]ChannelReport

// Result is what Validate returns: the report plus the overall verdict
// derived from it.
type Result struct {
	OverallVerdict string
	Report         Report
}

const (
	VerdictApproved      = "approved"
	VerdictNeedsRevision = "needs_revision"
)

// Validator checks generated content against the source transcript.
type Validator struct {
	llm        llmclient.Client
	model      string
	maxTokens  int // VMAX
}

// New builds a Validator.
func New(llm llmclient.Client, model string, maxValidationTokens int) *Validator {
	return &Validator{llm: llm, model: model, maxTokens: maxValidationTokens}
}

// Validate inspects content (keyed by payload_key) against sourceText,
// restricted to restrictKeys when non-empty. sourceText is the reduce
// summary, falling back to the raw transcript when the summary is empty —
// the orchestrator makes that choice before calling in.
func (v *Validator) Validate(ctx context.Context, content map[string]interface{}, sourceText string, restrictKeys []string) (*Result, error) {
	truncated := v.truncate(sourceText)

	scope := scopeSet(restrictKeys)
	report := Report{}

	textualInScope := []models.ChannelDef{}
	for _, def := range models.ChannelCatalog {
		if def.EmitsJSON {
			continue
		}
		if scope != nil && !scope[def.PayloadKey] {
			continue
		}
		if _, ok := content[def.PayloadKey]; !ok {
			continue
		}
		textualInScope = append(textualInScope, def)
	}

	if len(textualInScope) > 0 {
		textualReport, err := v.validateTextual(ctx, content, truncated, textualInScope)
		if err != nil {
			return nil, err
		}
		for platform, r := range textualReport {
			report[platform] = r
		}
	}

	storyboardDef, hasStoryboard := channelByPayloadKey("banana_video_prompt")
	if hasStoryboard && (scope == nil || scope[storyboardDef.PayloadKey]) {
		if raw, ok := content[storyboardDef.PayloadKey]; ok {
			report[storyboardDef.Platform] = validateStoryboard(raw)
		}
	}

	return &Result{OverallVerdict: overallVerdict(report), Report: report}, nil
}

func (v *Validator) validateTextual(ctx context.Context, content map[string]interface{}, truncatedSource string, channels []models.ChannelDef) (Report, error) {
	platforms := make([]string, 0, len(channels))
	var sb strings.Builder
	sb.WriteString(truncatedSource)
	for _, def := range channels {
		text, _ := content[def.PayloadKey].(string)
		sb.WriteString(fmt.Sprintf("\n\n=== %s ===\n%s", def.Platform, text))
		platforms = append(platforms, def.Platform)
	}

	systemPrompt := fmt.Sprintf(validatorSystemPromptTemplate, strings.Join(platforms, ", "))
	raw, err := v.llm.CompleteJSON(ctx, v.model, []llmclient.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("llm_error: validate textual channels: %w", err)
	}

	var parsed map[string]ChannelReport
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("llm_error: validator returned invalid JSON: %w", err)
	}
	return Report(parsed), nil
}

// truncate bounds the validation source text to VMAX tokens, decoding back
// to text when truncation is necessary.
func (v *Validator) truncate(text string) string {
	tokens := tokenizer.Encode(text)
	if len(tokens) <= v.maxTokens {
		return text
	}
	return tokenizer.Decode(tokens[:v.maxTokens])
}

// validateStoryboard checks the storyboard channel's artifact by schema
// only — no LLM call — per spec §4.5: required keys style_summary (string)
// and a non-empty scenes list, each scene an object with scene_number,
// visual_prompt, voiceover_text.
func validateStoryboard(raw interface{}) ChannelReport {
	fail := func(detail string) ChannelReport {
		f := false
		return ChannelReport{Passed: &f, Details: detail}
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return fail("storyboard artifact is not a JSON object")
	}

	styleSummary, ok := obj["style_summary"].(string)
	if !ok || styleSummary == "" {
		return fail("missing or empty style_summary")
	}

	scenesRaw, ok := obj["scenes"].([]interface{})
	if !ok || len(scenesRaw) == 0 {
		return fail("scenes must be a non-empty list")
	}

	for i, sceneRaw := range scenesRaw {
		scene, ok := sceneRaw.(map[string]interface{})
		if !ok {
			return fail(fmt.Sprintf("scene %d is not an object", i))
		}
		for _, key := range []string{"scene_number", "visual_prompt", "voiceover_text"} {
			if _, ok := scene[key]; !ok {
				return fail(fmt.Sprintf("scene %d is missing %q", i, key))
			}
		}
	}

	pass := true
	return ChannelReport{Passed: &pass, Details: "storyboard schema valid"}
}

// overallVerdict is approved iff every channel entry in the report has no
// failing check.
func overallVerdict(report Report) string {
	for _, entry := range report {
		if FailedChannel(entry) {
			return VerdictNeedsRevision
		}
	}
	return VerdictApproved
}

// FailedChannel reports whether a channel's report entry counts as failed:
// any checks entry with passed=false, or (for schema-only channels with no
// checks list) an entry whose own Passed is false.
func FailedChannel(entry ChannelReport) bool {
	if len(entry.Checks) > 0 {
		for _, c := range entry.Checks {
			if !c.Passed {
				return true
			}
		}
		return false
	}
	return entry.Passed != nil && !*entry.Passed
}

// FailedChannelKeys scans a report and returns the payload_keys of every
// failed channel, looking up by platform name first, then by payload key —
// the report is keyed by platform, but callers (reduce restriction) need
// payload keys.
func FailedChannelKeys(report Report) []string {
	var keys []string
	for name, entry := range report {
		if !FailedChannel(entry) {
			continue
		}
		if def, ok := channelByPlatform(name); ok {
			keys = append(keys, def.PayloadKey)
			continue
		}
		if def, ok := channelByPayloadKey(name); ok {
			keys = append(keys, def.PayloadKey)
		}
	}
	return keys
}

// MergeReports merges an old report with a new partial one, new taking
// precedence per key (spec P6: merged = old ∪ new).
func MergeReports(oldReport, newReport Report) Report {
	merged := make(Report, len(oldReport)+len(newReport))
	for k, v := range oldReport {
		merged[k] = v
	}
	for k, v := range newReport {
		merged[k] = v
	}
	return merged
}

func channelByPlatform(platform string) (models.ChannelDef, bool) {
	for _, c := range models.ChannelCatalog {
		if c.Platform == platform {
			return c, true
		}
	}
	return models.ChannelDef{}, false
}

func channelByPayloadKey(key string) (models.ChannelDef, bool) {
	for _, c := range models.ChannelCatalog {
		if c.PayloadKey == key {
			return c, true
		}
	}
	return models.ChannelDef{}, false
}

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
