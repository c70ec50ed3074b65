package relay

import "github.com/driftline/tidecall/internal/pubsub"

// Narrative is a human-readable combat result broadcast to the session's
// chat surface.
type Narrative struct {
	EntityID string `json:"entity_id"`
	TargetID string `json:"target_id"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
}

// TopicNarrative carries resolved attack narratives to whatever renders
// chat output for the session.
var TopicNarrative = pubsub.NewEvent[Narrative]("tidecall.chat.narrative", "Combat resolution narrative for the session chat surface")
