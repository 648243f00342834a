// Package bot routes inbound Telegram updates to the gallery services and
// renders every user-facing reply. This file defines the inline-keyboard
// callback codec: button data travels as "{action}_{params...}_{entityID}"
// on the wire and is decoded into a typed value at the transport boundary,
// so nothing past the dispatcher ever string-splits callback data.
package bot

import (
	"fmt"
	"strings"
)

// Action identifies what an inline button asks for.
type Action string

const (
	// ActionApprove and ActionReject are admin review decisions. Their
	// callbacks carry the request owner's user id as a parameter.
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"

	// ActionEdit and ActionDelete act on the user's own published record.
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"

	// ActionPendingEdit rewrites the user's own pending request in place;
	// ActionPendingDelete and ActionRejectedDelete withdraw it.
	ActionPendingEdit    Action = "pending_edit"
	ActionPendingDelete  Action = "pending_delete"
	ActionRejectedDelete Action = "rejected_delete"
)

// Callback is a decoded inline-button press.
type Callback struct {
	Action Action
	// EntityID names the martyr or request the button refers to.
	EntityID string
	// Params carries extra tokens between action and entity id; review
	// decisions put the request owner's user id here.
	Params []string
}

// knownActions is ordered longest first so compound actions win over their
// single-word prefixes when decoding.
var knownActions = []Action{
	ActionRejectedDelete,
	ActionPendingDelete,
	ActionPendingEdit,
	ActionApprove,
	ActionReject,
	ActionDelete,
	ActionEdit,
}

// EncodeCallback renders a Callback to its wire form.
func EncodeCallback(cb Callback) string {
	parts := append([]string{string(cb.Action)}, cb.Params...)
	parts = append(parts, cb.EntityID)
	return strings.Join(parts, "_")
}

// DecodeCallback parses wire callback data. Entity ids are UUIDs and never
// contain underscores, so the last underscore-separated token is always the
// id and the leading tokens resolve against the known action set.
func DecodeCallback(data string) (Callback, error) {
	for _, action := range knownActions {
		prefix := string(action) + "_"
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		rest := strings.Split(data[len(prefix):], "_")
		if len(rest) == 0 || rest[len(rest)-1] == "" {
			return Callback{}, fmt.Errorf("callback %q has no entity id", data)
		}
		return Callback{
			Action:   action,
			EntityID: rest[len(rest)-1],
			Params:   rest[:len(rest)-1],
		}, nil
	}
	return Callback{}, fmt.Errorf("unknown callback action in %q", data)
}
