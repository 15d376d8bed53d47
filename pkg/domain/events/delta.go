// Package events defines the broadcast envelope shared by every delta the
// engine emits and the dispatcher that fans it out to subscribers.
package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Delta types broadcast to the subscribers of a draft or plan.
const (
	TypeDraftDelta        = "draft_delta"
	TypePresenceDelta     = "presence_delta"
	TypePlanDelta         = "plan_delta"
	TypeFriendStatusDelta = "friend_status_delta"
)

// Topic prefixes.
const (
	TopicDraftPrefix = "draft:"
	TopicPlanPrefix  = "plan:"
)

// Delta is one broadcast. Version is the aggregate version after the
// mutation; deltas that do not bump it repeat the current version.
type Delta struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Topic       string    `json:"topic"`
	AggregateID string    `json:"aggregate_id"`
	Version     int64     `json:"version"`
	Op          string    `json:"op"`
	Actor       string    `json:"actor,omitempty"`
	Payload     any       `json:"payload,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// DraftTopic returns the topic of a draft's subscribers.
func DraftTopic(draftID string) string { return TopicDraftPrefix + draftID }

// PlanTopic returns the topic of a plan's subscribers.
func PlanTopic(planID string) string { return TopicPlanPrefix + planID }

// ParseTopic splits a topic into its kind ("draft" or "plan") and id.
func ParseTopic(topic string) (kind, id string, ok bool) {
	switch {
	case strings.HasPrefix(topic, TopicDraftPrefix):
		id = strings.TrimPrefix(topic, TopicDraftPrefix)
		kind = "draft"
	case strings.HasPrefix(topic, TopicPlanPrefix):
		id = strings.TrimPrefix(topic, TopicPlanPrefix)
		kind = "plan"
	default:
		return "", "", false
	}
	return kind, id, id != ""
}

// NewDraftDelta builds a delta addressed to a draft's subscribers.
func NewDraftDelta(typ, draftID string, version int64, op, actor string, payload any) Delta {
	return newDelta(typ, DraftTopic(draftID), draftID, version, op, actor, payload)
}

// NewPlanDelta builds a delta addressed to a plan's subscribers.
func NewPlanDelta(typ, planID string, version int64, op, actor string, payload any) Delta {
	return newDelta(typ, PlanTopic(planID), planID, version, op, actor, payload)
}

func newDelta(typ, topic, aggregateID string, version int64, op, actor string, payload any) Delta {
	return Delta{
		ID:          uuid.New().String(),
		Type:        typ,
		Topic:       topic,
		AggregateID: aggregateID,
		Version:     version,
		Op:          op,
		Actor:       actor,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
}
