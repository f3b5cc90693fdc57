package chatctx

// ContentPart is a single leaf payload inside a Message: either text or an
// inline image. IsImage distinguishes the tagged variant in place of an
// interface, keeping Message trivially copyable and JSON-free until
// request synthesis time.
type ContentPart struct {
	IsImage bool

	// Text holds the payload for a text part.
	Text string

	// MediaType and Base64Data hold the payload for an image part. Data is
	// always base64-encoded by the time it reaches a ContentPart — see
	// AddUserMessage for the encode-if-needed logic.
	MediaType  string
	Base64Data string
}

// TextPart returns a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Text: text}
}

// ImagePart returns an image ContentPart.
func ImagePart(mediaType, base64Data string) ContentPart {
	return ContentPart{IsImage: true, MediaType: mediaType, Base64Data: base64Data}
}

// Message is one conversation turn: a role drawn from the bound schema's
// message_roles set, and an ordered list of content parts.
type Message struct {
	Role    string
	Content []ContentPart
}

// Text concatenates every text part of the message. Useful for callers
// that only care about the textual content (e.g. appending an assistant
// reply after a successful send).
func (m Message) Text() string {
	var out string
	for _, part := range m.Content {
		if !part.IsImage {
			out += part.Text
		}
	}
	return out
}

// hasImage reports whether any content part of the message is an image.
func (m Message) hasImage() bool {
	for _, part := range m.Content {
		if part.IsImage {
			return true
		}
	}
	return false
}

func (m Message) clone() Message {
	content := make([]ContentPart, len(m.Content))
	copy(content, m.Content)
	return Message{Role: m.Role, Content: content}
}
