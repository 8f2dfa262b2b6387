package types

// ObjectWhatsApp is the envelope discriminator sent by the WhatsApp
// Business Cloud API; anything else is rejected with 404.
const ObjectWhatsApp = "whatsapp_business_account"

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageAudio    MessageType = "audio"
	MessageImage    MessageType = "image"
	MessageDocument MessageType = "document"
	MessageVideo    MessageType = "video"
)

// InboundEvent is the webhook envelope for one delivery.
type InboundEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries messages, statuses, or both; both may be absent.
type Value struct {
	MessagingProduct string         `json:"messaging_product"`
	Messages         []Message      `json:"messages,omitempty"`
	Statuses         []StatusUpdate `json:"statuses,omitempty"`
}

// Message is a tagged union keyed by Type. Exactly one variant pointer
// is set for a well-formed payload; unknown types leave all of them nil.
type Message struct {
	From      string      `json:"from"`
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"`
	Type      MessageType `json:"type"`

	Text     *TextBody     `json:"text,omitempty"`
	Audio    *AudioBody    `json:"audio,omitempty"`
	Image    *ImageBody    `json:"image,omitempty"`
	Document *DocumentBody `json:"document,omitempty"`
	Video    *VideoBody    `json:"video,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type AudioBody struct {
	ID       string `json:"id"`
	MIMEType string `json:"mime_type"`
}

type ImageBody struct {
	ID       string `json:"id"`
	MIMEType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

type DocumentBody struct {
	ID       string `json:"id"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename"`
}

type VideoBody struct {
	ID       string `json:"id"`
	MIMEType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

// StatusUpdate is a delivery/read receipt; only counted, never dispatched.
type StatusUpdate struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}
