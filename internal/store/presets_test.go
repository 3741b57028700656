package store

import (
	"context"
	"testing"
)

func TestSavePresetAssignsID(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.SavePreset(context.Background(), Preset{Name: "Weekly Standup", Terms: []string{"sprint", "backlog"}})
	if err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	if saved.ID == "" {
		t.Fatal("preset id not assigned")
	}
	if len(saved.Terms) != 2 {
		t.Fatalf("terms = %v", saved.Terms)
	}
}

func TestSavePresetUpsertsByID(t *testing.T) {
	s := openTestStore(t)

	saved, err := s.SavePreset(context.Background(), Preset{Name: "Old Name", Terms: []string{"a"}})
	if err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	if _, err := s.SavePreset(context.Background(), Preset{ID: saved.ID, Name: "New Name", Terms: []string{"a", "b"}}); err != nil {
		t.Fatalf("second SavePreset() error = %v", err)
	}

	presets, err := s.ListPresets(context.Background())
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	if len(presets) != 1 {
		t.Fatalf("presets = %d, want 1", len(presets))
	}
	if presets[0].Name != "New Name" || len(presets[0].Terms) != 2 {
		t.Fatalf("preset = %+v", presets[0])
	}
}

func TestListPresetsSortedByName(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if _, err := s.SavePreset(context.Background(), Preset{Name: name}); err != nil {
			t.Fatalf("SavePreset(%s) error = %v", name, err)
		}
	}

	presets, err := s.ListPresets(context.Background())
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if presets[i].Name != want {
			t.Fatalf("presets[%d] = %q, want %q", i, presets[i].Name, want)
		}
	}
}

func TestDeletePresetUnknownIDIsNoOp(t *testing.T) {
	s := openTestStore(t)
	if err := s.DeletePreset(context.Background(), "missing"); err != nil {
		t.Fatalf("DeletePreset() error = %v", err)
	}
}
