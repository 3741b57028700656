package bootstrap

import "testing"

// TestGetConversationTypesResolvesRoles verifies the preset catalog.
func TestGetConversationTypesResolvesRoles(t *testing.T) {
	app := &App{}
	types := app.GetConversationTypes()

	if len(types) == 0 {
		t.Fatal("expected conversation types")
	}

	seen := map[string]bool{}
	for _, ct := range types {
		if seen[ct.ID] {
			t.Fatalf("duplicate conversation type id %q", ct.ID)
		}
		seen[ct.ID] = true
	}

	if !seen[""] {
		t.Fatal("expected a general preset with empty id")
	}

	for _, ct := range types {
		switch ct.ID {
		case "":
			if ct.Roles != nil {
				t.Fatalf("general preset roles = %v, want none", ct.Roles)
			}
		case "interview":
			if len(ct.Roles) != 2 || ct.Roles[0] != "Interviewer" || ct.Roles[1] != "Interviewee" {
				t.Fatalf("interview roles = %v", ct.Roles)
			}
		default:
			if len(ct.Roles) == 0 {
				t.Fatalf("preset %q has no roles", ct.ID)
			}
		}
	}
}
