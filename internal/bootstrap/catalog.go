package bootstrap

import (
	"scribe/internal/domain"
	"scribe/internal/transcribe"
)

// conversationTypeCatalog lists the built-in conversation presets surfaced in
// the job options panel. Roles come from the transcription client so the
// catalog and the submit payload cannot drift apart.
var conversationTypeCatalog = []domain.ConversationType{
	{ID: "", Name: "General", Description: "No speaker role hints; the vendor labels speakers A, B, C."},
	{ID: "interview", Name: "Interview", Description: "One person asking questions, one answering."},
	{ID: "podcast", Name: "Podcast", Description: "Host-led show with one or more guests."},
	{ID: "meeting", Name: "Meeting", Description: "Presenter walking participants through material."},
	{ID: "panel", Name: "Panel", Description: "Moderated discussion between several panelists."},
	{ID: "customer-call", Name: "Customer Call", Description: "Agent and customer on a sales or service call."},
	{ID: "support", Name: "Support Call", Description: "Support engineer troubleshooting with a customer."},
}

// GetConversationTypes returns the conversation presets with their speaker
// roles resolved.
func (a *App) GetConversationTypes() []domain.ConversationType {
	types := make([]domain.ConversationType, len(conversationTypeCatalog))
	copy(types, conversationTypeCatalog)
	for i := range types {
		types[i].Roles = transcribe.RolesFor(types[i].ID)
	}
	return types
}
