package simulator

import (
	coremqtt "github.com/kilianp07/offboard/core/mqtt"
)

// ReplyStrategy decides how the bridge answers a guided-enable request.
// send=false drops the request so the caller times out.
type ReplyStrategy interface {
	Reply(req coremqtt.GuidedEnableRequest) (rep coremqtt.GuidedEnableReply, send bool)
}

// Accept acknowledges every request.
type Accept struct{}

// Reply implements ReplyStrategy.
func (Accept) Reply(req coremqtt.GuidedEnableRequest) (coremqtt.GuidedEnableReply, bool) {
	return coremqtt.GuidedEnableReply{RequestID: req.RequestID, Success: true}, true
}

// Reject refuses every request with Message.
type Reject struct {
	Message string
}

// Reply implements ReplyStrategy.
func (r Reject) Reply(req coremqtt.GuidedEnableRequest) (coremqtt.GuidedEnableReply, bool) {
	msg := r.Message
	if msg == "" {
		msg = "guided mode refused"
	}
	return coremqtt.GuidedEnableReply{RequestID: req.RequestID, Message: msg}, true
}

// Drop never answers.
type Drop struct{}

// Reply implements ReplyStrategy.
func (Drop) Reply(coremqtt.GuidedEnableRequest) (coremqtt.GuidedEnableReply, bool) {
	return coremqtt.GuidedEnableReply{}, false
}
