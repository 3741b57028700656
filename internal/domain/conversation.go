package domain

// ConversationType describes one selectable conversation preset and the
// speaker roles the vendor should assign when it is used.
type ConversationType struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}
