package generator

// mapSystemPrompt is the map-stage instruction: pull structure out of one
// chunk without adding anything that isn't already there.
const mapSystemPrompt = `You are a content analysis expert. From the given transcript fragment, extract:
1. Key ideas and theses
2. Concrete facts, figures, and examples
3. Notable quotes from the author/speaker
4. The shape of the argument

Keep it technically precise. Do not add anything that is not in the fragment.`

const antiHallucination = `

STRICTLY FORBIDDEN:
- Inventing facts, numbers, statistics, dates, or names that are not in the summaries
- Citing research or sources not mentioned in the summaries
- Inventing plot, casting, or characteristics not mentioned
- Padding the text to increase its length
Use ONLY information from the provided summaries. If there isn't enough material, generalize — never invent specifics.`

const mediumSystemPrompt = `You are a professional article writer. Based on the provided fragment summaries, write a long-form article for Medium.

Requirements:
- Format: Markdown
- Length: scale to the amount of source material (500-2000 words), no padding
- Tone: conversational-expert
- Structure: title, hook intro, subheadings, conclusion` + antiHallucination

const habrSystemPrompt = `You are a professional technical writer. Based on the provided fragment summaries, write a technical article for Habr.

Requirements:
- Format: Markdown
- Length: scale to the amount of source material (500-2000 words), no padding
- Tone: formal-technical
- Structure: title, table of contents, detailed sections, examples, conclusion` + antiHallucination

const linkedinSystemPrompt = `You are a LinkedIn content expert. Based on the provided fragment summaries, write a LinkedIn post.

Requirements:
- Length: 500-1300 characters
- Tone: professional
- Structure: hook line first, key insight, CTA at the end` + antiHallucination

const researchSystemPrompt = `You are a professional academic writer. Based on the provided fragment summaries, write an academic-style article suitable for ResearchGate.

Requirements:
- Format: Markdown
- Length: scale to the amount of source material (1000-3000 words), no padding
- Tone: formal, academic
- Structure: Abstract, Introduction, Main Body with subsections, Discussion, Conclusion, References (if any)
- Use passive voice and academic vocabulary` + antiHallucination

const bananaSystemPrompt = `You are a director/visualizer. Based on the provided fragment summaries, create a video prompt for AI video generation.

Respond STRICTLY in this JSON format:
{
  "style_summary": "description of the video's visual style (cinematic, minimalist, etc.)",
  "scenes": [
    {
      "scene_number": 1,
      "visual_prompt": "detailed shot description for an image generator",
      "voiceover_text": "voiceover text for this scene"
    }
  ]
}

Requirements:
- 5-12 scenes
- visual_prompt: detailed and descriptive, in English for generator compatibility
- voiceover_text: in the transcript's own language
- Each scene should logically follow from the previous one`

// revisionAddendumTemplate is appended to a channel's system prompt during
// autofix/regeneration, carrying the prior validation failures and the
// rejected text forward so the model can repair rather than restart.
const revisionAddendumTemplate = `

NOTE: the previous version of this text was rejected by an editor. Validation report below:
%s

Fix the issues named above while keeping the parts that were correct. If the issue is a hallucination: REMOVE every fact, figure, or claim not present in the original summaries. Do not replace them with other invented specifics — just remove them.
Previous version of the text for context:
%s`

// systemPromptFor returns the base system prompt for a channel's payload key.
func systemPromptFor(payloadKey string) string {
	switch payloadKey {
	case "medium_text":
		return mediumSystemPrompt
	case "habr_text":
		return habrSystemPrompt
	case "linkedin_text":
		return linkedinSystemPrompt
	case "research_article":
		return researchSystemPrompt
	case "banana_video_prompt":
		return bananaSystemPrompt
	default:
		return ""
	}
}

