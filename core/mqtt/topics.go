package mqtt

import (
	"strings"

	"github.com/kilianp07/offboard/core/setpoint"
)

// DefaultNamespace prefixes every topic unless overridden.
const DefaultNamespace = "mavros"

// Namespace normalises ns, trimming slashes and falling back to DefaultNamespace.
func Namespace(ns string) string {
	ns = strings.Trim(strings.TrimSpace(ns), "/")
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

// SetpointTopic returns "<ns>/setpoint/<channel>" for kind.
func SetpointTopic(ns string, kind setpoint.Kind) string {
	return Namespace(ns) + "/setpoint/" + kind.Channel()
}

// GuidedEnableTopic returns the mode-enable request topic.
func GuidedEnableTopic(ns string) string {
	return Namespace(ns) + "/cmd/guided_enable"
}

// GuidedEnableReplyTopic returns the reply topic for the given client.
func GuidedEnableReplyTopic(ns, clientID string) string {
	return GuidedEnableTopic(ns) + "/reply/" + clientID
}

// PresenceTopic returns the retained presence topic of a bridge client.
// An empty clientID yields the wildcard subscription for all clients.
func PresenceTopic(ns, clientID string) string {
	if clientID == "" {
		clientID = "+"
	}
	return Namespace(ns) + "/setpoint/subscribers/" + clientID
}

// GuidedEnableRequest is the payload of a mode-enable call.
type GuidedEnableRequest struct {
	RequestID string `json:"request_id"`
	Value     bool   `json:"value"`
	ReplyTo   string `json:"reply_to"`
}

// GuidedEnableReply acknowledges a GuidedEnableRequest.
type GuidedEnableReply struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// Presence is the retained document a bridge publishes while connected.
type Presence struct {
	ClientID string   `json:"client_id"`
	Channels []string `json:"channels"`
}

// Listens reports whether the presence document covers channel.
func (p Presence) Listens(channel string) bool {
	for _, c := range p.Channels {
		if c == channel {
			return true
		}
	}
	return false
}
