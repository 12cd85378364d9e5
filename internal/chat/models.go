package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one conversation thread. The store keeps its metadata in the
// session index and its message log under a per-session key; Messages is
// populated only when the log has been explicitly loaded.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Timestamp    int64     `json:"timestamp"` // unix millis, last modified
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages,omitempty"`
}

type Message struct {
	ID        int64    `json:"id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp int64    `json:"timestamp"` // unix millis
	File      *FileRef `json:"file,omitempty"`
}

// FileRef describes an attachment carried by a message. PreviewURL is an
// ephemeral reference owned by a preview registry, valid only within the
// current process; it must be released when the owning session goes away.
type FileRef struct {
	Name       string `json:"name"`
	MIMEType   string `json:"mimeType"`
	PreviewURL string `json:"previewUrl,omitempty"`
}
