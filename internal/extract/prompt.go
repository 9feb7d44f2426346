package extract

import (
	"fmt"

	"loreline/internal/campaign"
)

// recordSchema is the single-record example shown to the model. The episode
// number is substituted at build time.
const recordSchema = `{"segment_id":"E%d.C1.S1","type":"chapter_start|narration|dialogue|combat|description|ooc","speaker":"%s","content":"text","summary":null,"location":null,"characters_present":[],"timestamp_start":null,"timestamp_end":null,"metadata":{"lore_keywords":[]}}`

// SystemPrompt builds the per-episode instructions: cast roster, world,
// episode identity and the record schema.
func SystemPrompt(profile *campaign.Profile, episode int, title string) string {
	return fmt.Sprintf(`You structure D&D transcripts into JSON. %s
World: %s. Episode %d: %s.

Return ONLY a valid JSON array. Each element:
%s

CRITICAL: Return ONLY the JSON array. No markdown. No extra text. Ensure all strings are properly escaped and terminated.`,
		profile.Roster(),
		profile.Campaign.World,
		episode,
		title,
		fmt.Sprintf(recordSchema, episode, profile.Narrator),
	)
}

// UserPrompt builds the per-chunk request carrying the advisory numbering state.
func UserPrompt(profile *campaign.Profile, req Request) string {
	return fmt.Sprintf(`Process chunk %d/%d of %s episode %d '%s'. State: C%d.S%d.

Transcript:
---
%s
---

Return JSON array. Number from E%d.C%d.S%d.`,
		req.ChunkIndex, req.ChunkCount,
		profile.Campaign.Name, req.Episode, req.Title,
		req.Chapter, req.Segment,
		req.Text,
		req.Episode, req.Chapter, req.Segment,
	)
}
