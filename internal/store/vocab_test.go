package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/lo"
)

func TestSeedProvidesSystemVocabularies(t *testing.T) {
	s := openTestStore(t)

	data, err := s.LoadVocabularies(context.Background())
	if err != nil {
		t.Fatalf("LoadVocabularies() error = %v", err)
	}

	categoryIDs := lo.Map(data.Categories, func(c VocabularyCategory, _ int) string { return c.ID })
	if !lo.Contains(categoryIDs, "life-sciences") || !lo.Contains(categoryIDs, userCategoryID) {
		t.Fatalf("categories = %v", categoryIDs)
	}
	if !data.Categories[0].System {
		t.Fatalf("categories not sorted system-first: %v", data.Categories)
	}

	system := lo.Filter(data.Vocabularies, func(v Vocabulary, _ int) bool { return v.System })
	if len(system) != len(systemVocabularies()) {
		t.Fatalf("system vocabularies = %d, want %d", len(system), len(systemVocabularies()))
	}
	for _, vocab := range system {
		if len(vocab.Terms) == 0 {
			t.Fatalf("vocabulary %q has no hydrated terms", vocab.ID)
		}
	}
}

func TestCreateUpdateDeleteVocabulary(t *testing.T) {
	s := openTestStore(t)

	created, err := s.CreateVocabulary(context.Background(), "Oncology Terms", "", []string{"HER2", "PD-L1"})
	if err != nil {
		t.Fatalf("CreateVocabulary() error = %v", err)
	}
	if created.CategoryID != userCategoryID || created.System {
		t.Fatalf("created = %+v", created)
	}
	if len(created.Terms) != 2 {
		t.Fatalf("terms = %v", created.Terms)
	}

	updated, err := s.UpdateVocabulary(context.Background(), created.ID, VocabularyUpdate{
		Name:  lo.ToPtr("Oncology"),
		Terms: lo.ToPtr([]string{"HER2"}),
	})
	if err != nil {
		t.Fatalf("UpdateVocabulary() error = %v", err)
	}
	if updated.Name != "Oncology" || len(updated.Terms) != 1 {
		t.Fatalf("updated = %+v", updated)
	}

	if err := s.DeleteVocabulary(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteVocabulary() error = %v", err)
	}
	if _, err := s.UpdateVocabulary(context.Background(), created.ID, VocabularyUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error after delete = %v, want ErrNotFound", err)
	}
}

func TestSystemVocabularyIsReadOnly(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.UpdateVocabulary(context.Background(), "sys-biotech", VocabularyUpdate{Name: lo.ToPtr("x")}); !errors.Is(err, ErrSystemVocabulary) {
		t.Fatalf("update error = %v, want ErrSystemVocabulary", err)
	}
	if err := s.DeleteVocabulary(context.Background(), "sys-biotech"); !errors.Is(err, ErrSystemVocabulary) {
		t.Fatalf("delete error = %v, want ErrSystemVocabulary", err)
	}
}

func TestDuplicateSystemVocabularyLandsInUserCategory(t *testing.T) {
	s := openTestStore(t)

	clone, err := s.DuplicateVocabulary(context.Background(), "sys-biotech", "My Biotech")
	if err != nil {
		t.Fatalf("DuplicateVocabulary() error = %v", err)
	}
	if clone.ID == "sys-biotech" || clone.System {
		t.Fatalf("clone = %+v", clone)
	}
	if clone.CategoryID != userCategoryID {
		t.Fatalf("category = %q, want %q", clone.CategoryID, userCategoryID)
	}
	if len(clone.Terms) == 0 {
		t.Fatal("clone lost its terms")
	}

	// The copy is a user vocabulary and can be edited.
	if _, err := s.UpdateVocabulary(context.Background(), clone.ID, VocabularyUpdate{Name: lo.ToPtr("Mine")}); err != nil {
		t.Fatalf("UpdateVocabulary(clone) error = %v", err)
	}
}

func TestCreateVocabularyCategorySlug(t *testing.T) {
	s := openTestStore(t)

	category, err := s.CreateVocabularyCategory(context.Background(), "Client Projects")
	if err != nil {
		t.Fatalf("CreateVocabularyCategory() error = %v", err)
	}
	if category.ID != "client-projects" || category.System {
		t.Fatalf("category = %+v", category)
	}

	if _, err := s.CreateVocabularyCategory(context.Background(), "Client Projects"); err == nil {
		t.Fatal("duplicate category creation should fail")
	}
}

func TestImportRegeneratesIDsAndStripsSystemFlag(t *testing.T) {
	s := openTestStore(t)

	payload := `{
		"categories": [{"id": "imported", "name": "Imported", "isSystem": true}],
		"vocabularies": [{"id": "keep-me", "name": "Acronyms", "category": "imported", "terms": ["API", "SLA"], "isSystem": true}]
	}`
	count, err := s.ImportVocabularies(context.Background(), payload)
	if err != nil {
		t.Fatalf("ImportVocabularies() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	data, err := s.LoadVocabularies(context.Background())
	if err != nil {
		t.Fatalf("LoadVocabularies() error = %v", err)
	}
	imported, found := lo.Find(data.Vocabularies, func(v Vocabulary) bool { return v.Name == "Acronyms" })
	if !found {
		t.Fatalf("imported vocabulary missing: %v", data.Vocabularies)
	}
	if imported.ID == "keep-me" || imported.System {
		t.Fatalf("imported = %+v", imported)
	}
	if len(imported.Terms) != 2 {
		t.Fatalf("terms = %v", imported.Terms)
	}

	category, found := lo.Find(data.Categories, func(c VocabularyCategory) bool { return c.ID == "imported" })
	if !found || category.System {
		t.Fatalf("imported category = %+v, found = %v", category, found)
	}
}

func TestExportOmitsSystemEntries(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CreateVocabulary(context.Background(), "Mine", "", []string{"term"}); err != nil {
		t.Fatalf("CreateVocabulary() error = %v", err)
	}

	out, err := s.ExportVocabularies(context.Background())
	if err != nil {
		t.Fatalf("ExportVocabularies() error = %v", err)
	}

	var data VocabularyData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	for _, category := range data.Categories {
		if category.System {
			t.Fatalf("export includes system category %q", category.ID)
		}
	}
	if len(data.Vocabularies) != 1 || data.Vocabularies[0].Name != "Mine" {
		t.Fatalf("export vocabularies = %+v", data.Vocabularies)
	}
}
