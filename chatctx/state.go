package chatctx

import (
	"encoding/json"
	"fmt"

	"github.com/llmbridge/llmbridge/llmerr"
)

// snapshotContentPart is the wire representation of one ContentPart inside
// an exported snapshot.
type snapshotContentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

type snapshotMessage struct {
	Role    string                `json:"role"`
	Content []snapshotContentPart `json:"content"`
}

// Snapshot is the persisted state described in spec §6: provider identity,
// model, optional system message, parameters, and messages.
type Snapshot struct {
	Provider      string           `json:"provider"`
	Model         string           `json:"model"`
	SystemMessage *string          `json:"system_message,omitempty"`
	Parameters    map[string]any   `json:"parameters"`
	Messages      []snapshotMessage `json:"messages"`
}

// ExportState serializes the Context's observable state to JSON.
func (c *Context) ExportState() ([]byte, error) {
	snap := Snapshot{
		Provider:      c.doc.Provider.Name,
		Model:         c.model,
		SystemMessage: c.systemMessage,
		Parameters:    c.GetParameters(),
	}

	for _, msg := range c.messages {
		snap.Messages = append(snap.Messages, toSnapshotMessage(msg))
	}

	return json.Marshal(snap)
}

// ImportState replaces the Context's state from a previously exported
// snapshot, atomically: either every field is replaced, or (on error)
// nothing is. The schema identity (provider name) must match.
func (c *Context) ImportState(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return llmerr.NewSchemaError(c.doc.Provider.Name, "malformed state snapshot", err)
	}

	if snap.Provider != c.doc.Provider.Name {
		return llmerr.NewSchemaError(c.doc.Provider.Name, fmt.Sprintf("snapshot is for provider %q, context is bound to %q", snap.Provider, c.doc.Provider.Name), nil)
	}

	messages := make([]Message, 0, len(snap.Messages))
	for _, sm := range snap.Messages {
		messages = append(messages, fromSnapshotMessage(sm))
	}

	parameters := make(map[string]any, len(snap.Parameters))
	for k, v := range snap.Parameters {
		parameters[k] = v
	}

	c.model = snap.Model
	c.systemMessage = snap.SystemMessage
	c.parameters = parameters
	c.messages = messages

	return nil
}

func toSnapshotMessage(msg Message) snapshotMessage {
	out := snapshotMessage{Role: msg.Role}
	for _, part := range msg.Content {
		if part.IsImage {
			out.Content = append(out.Content, snapshotContentPart{Type: "image", MediaType: part.MediaType, Data: part.Base64Data})
		} else {
			out.Content = append(out.Content, snapshotContentPart{Type: "text", Text: part.Text})
		}
	}
	return out
}

func fromSnapshotMessage(sm snapshotMessage) Message {
	msg := Message{Role: sm.Role}
	for _, part := range sm.Content {
		if part.Type == "image" {
			msg.Content = append(msg.Content, ImagePart(part.MediaType, part.Data))
		} else {
			msg.Content = append(msg.Content, TextPart(part.Text))
		}
	}
	return msg
}
