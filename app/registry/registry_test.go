package registry

import (
	"fmt"
	"testing"

	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/sources"
)

type fakeSourceRepo struct {
	byURL   map[string]string
	creates int
	touches int
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{byURL: make(map[string]string)}
}

func (f *fakeSourceRepo) GetOrCreate(url, kind, name string) (string, error) {
	if id, ok := f.byURL[url]; ok {
		return id, nil
	}
	f.creates++
	id := fmt.Sprintf("source-%d", f.creates)
	f.byURL[url] = id
	return id, nil
}

func (f *fakeSourceRepo) Touch(sourceID string) error {
	f.touches++
	return nil
}

func (f *fakeSourceRepo) GetByURL(url string) (*database.Source, error) { return nil, nil }
func (f *fakeSourceRepo) GetAll() ([]database.Source, error)           { return nil, nil }
func (f *fakeSourceRepo) GetCount() (int, error)                       { return len(f.byURL), nil }

type fakeItemRepo struct {
	byURL      map[string]database.RawItem
	byExternal map[string]bool
	processed  map[string]bool
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{
		byURL:      make(map[string]database.RawItem),
		byExternal: make(map[string]bool),
		processed:  make(map[string]bool),
	}
}

func (f *fakeItemRepo) Insert(draft database.RawItemDraft) (bool, error) {
	if draft.ExternalID != "" {
		key := draft.SourceID + "/" + draft.ExternalID
		if f.byExternal[key] {
			return false, nil
		}
		f.byExternal[key] = true
	}
	if _, ok := f.byURL[draft.URL]; ok {
		return false, nil
	}
	f.byURL[draft.URL] = database.RawItem{
		ID:       fmt.Sprintf("item-%d", len(f.byURL)+1),
		SourceID: draft.SourceID,
		Title:    draft.Title,
		URL:      draft.URL,
	}
	return true, nil
}

func (f *fakeItemRepo) GetUnprocessed(limit int) ([]database.RawItem, error) {
	var items []database.RawItem
	for _, item := range f.byURL {
		if !f.processed[item.ID] && len(items) < limit {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeItemRepo) MarkProcessed(itemID string) error {
	f.processed[itemID] = true
	return nil
}

func (f *fakeItemRepo) GetCounts() (int, int, error) {
	return len(f.byURL), len(f.byURL) - len(f.processed), nil
}

func TestResolveIsIdempotent(t *testing.T) {
	sourceRepo := newFakeSourceRepo()
	reg := New(sourceRepo, newFakeItemRepo())

	first, err := reg.Resolve("https://example.com/feed.xml", sources.KindRSS, "example")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	second, err := reg.Resolve("https://example.com/feed.xml", sources.KindRSS, "example")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected same source id, got %s and %s", first, second)
	}
	if sourceRepo.creates != 1 {
		t.Errorf("Expected exactly one source row, got %d", sourceRepo.creates)
	}
	if sourceRepo.touches != 2 {
		t.Errorf("Expected a fetch timestamp update per resolve, got %d", sourceRepo.touches)
	}
}

func TestIntakeCollapsesDuplicateURLs(t *testing.T) {
	reg := New(newFakeSourceRepo(), newFakeItemRepo())

	// Same URL reported by two different adapters in one batch.
	drafts := []sources.Draft{
		{SourceID: "source-1", Title: "Shared story", URL: "https://example.com/story"},
		{SourceID: "source-2", Title: "Shared story", URL: "https://example.com/story"},
		{SourceID: "source-2", Title: "Other story", URL: "https://example.com/other"},
	}

	saved, err := reg.Intake(drafts)
	if err != nil {
		t.Fatalf("Intake failed: %v", err)
	}

	if saved != 2 {
		t.Errorf("Expected 2 saved items, got %d", saved)
	}
}

func TestIntakeCollapsesDuplicateExternalIDs(t *testing.T) {
	reg := New(newFakeSourceRepo(), newFakeItemRepo())

	drafts := []sources.Draft{
		{SourceID: "source-1", ExternalID: "guid-1", Title: "Story", URL: "https://example.com/a"},
		{SourceID: "source-1", ExternalID: "guid-1", Title: "Story again", URL: "https://example.com/b"},
	}

	saved, err := reg.Intake(drafts)
	if err != nil {
		t.Fatalf("Intake failed: %v", err)
	}

	if saved != 1 {
		t.Errorf("Expected 1 saved item, got %d", saved)
	}
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	itemRepo := newFakeItemRepo()
	reg := New(newFakeSourceRepo(), itemRepo)

	if _, err := reg.Intake([]sources.Draft{
		{SourceID: "source-1", Title: "Story", URL: "https://example.com/story"},
	}); err != nil {
		t.Fatalf("Intake failed: %v", err)
	}

	items, err := reg.GetUnprocessed(10)
	if err != nil {
		t.Fatalf("GetUnprocessed failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 unprocessed item, got %d", len(items))
	}

	if err := reg.MarkProcessed(items[0].ID); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := reg.MarkProcessed(items[0].ID); err != nil {
		t.Errorf("MarkProcessed should be a no-op on repeat, got: %v", err)
	}

	remaining, err := reg.GetUnprocessed(10)
	if err != nil {
		t.Fatalf("GetUnprocessed failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected 0 unprocessed items, got %d", len(remaining))
	}
}
