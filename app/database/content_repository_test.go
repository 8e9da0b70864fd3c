package database

import (
	"context"
	"testing"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

func TestUpsertItemInsertThenUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepo(db)

	item := testItem(content.PlatformTwitter, "tw-1")

	outcome, err := repo.UpsertItem(item)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeInserted {
		t.Errorf("Expected inserted, got %s", outcome)
	}
	if item.ID == "" {
		t.Fatal("Expected generated item id")
	}

	// first insert creates the processing status row, all flags false
	status, err := repo.GetStatus(item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status == nil {
		t.Fatal("Expected processing status row after insert")
	}
	if status.IsProcessed || status.SentimentDone || status.LocationDone ||
		status.EntityDone || status.KeywordDone {
		t.Errorf("Expected all flags false on a new item, got %+v", status)
	}

	// re-fetch with fresh metrics
	refetched := testItem(content.PlatformTwitter, "tw-1")
	refetched.Metrics = content.Metrics{"likes": float64(50), "shares": float64(3)}
	refetched.Text = "changed text must not land"

	outcome, err = repo.UpsertItem(refetched)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("Expected updated, got %s", outcome)
	}
	if refetched.ID != item.ID {
		t.Errorf("Expected same id %s, got %s", item.ID, refetched.ID)
	}

	stored, err := repo.GetItem(content.PlatformTwitter, "tw-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := stored.Metrics.Metric("likes"); got != 50 {
		t.Errorf("Expected refreshed likes 50, got %v", got)
	}
	if stored.Text != "hello #test" {
		t.Errorf("Expected immutable text preserved, got '%s'", stored.Text)
	}

	count, err := repo.GetItemCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 item after re-fetch, got %d", count)
	}
}

func TestUpsertItemIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepo(db)

	for i := 0; i < 5; i++ {
		if _, err := repo.UpsertItem(testItem(content.PlatformInstagram, "ig-1")); err != nil {
			t.Fatal(err)
		}
	}

	count, err := repo.GetItemCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 item after 5 identical upserts, got %d", count)
	}
}

func TestUpsertItemDistinctKeys(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepo(db)

	// same source id on different platforms is two items
	if _, err := repo.UpsertItem(testItem(content.PlatformTwitter, "shared")); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpsertItem(testItem(content.PlatformTikTok, "shared")); err != nil {
		t.Fatal(err)
	}

	count, _ := repo.GetItemCount()
	if count != 2 {
		t.Errorf("Expected 2 items across platforms, got %d", count)
	}
}

func TestGetItemMissing(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepo(db)

	item, err := repo.GetItem(content.PlatformTwitter, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if item != nil {
		t.Errorf("Expected nil for missing item, got %+v", item)
	}
}

func TestGetItemsSinceFilters(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepo(db)

	now := time.Now().UTC()

	old := testItem(content.PlatformTwitter, "old")
	old.CollectedAt = now.Add(-48 * time.Hour)
	recent := testItem(content.PlatformTwitter, "recent")
	recent.CollectedAt = now.Add(-time.Hour)
	igRecent := testItem(content.PlatformInstagram, "ig-recent")
	igRecent.CollectedAt = now.Add(-2 * time.Hour)

	for _, item := range []*content.ContentItem{old, recent, igRecent} {
		if _, err := repo.UpsertItem(item); err != nil {
			t.Fatal(err)
		}
	}

	items, err := repo.GetItemsSince(now.Add(-24*time.Hour), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items in window, got %d", len(items))
	}
	// newest first
	if items[0].SourceID != "recent" {
		t.Errorf("Expected newest item first, got '%s'", items[0].SourceID)
	}

	items, err = repo.GetItemsSince(now.Add(-24*time.Hour), []content.Platform{content.PlatformInstagram}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].SourceID != "ig-recent" {
		t.Errorf("Expected only the instagram item, got %v", items)
	}

	items, err = repo.GetItemsSince(now.Add(-24*time.Hour), nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("Expected limit 1 respected, got %d items", len(items))
	}
}

func TestGetProcessingStats(t *testing.T) {
	db := openTestDB(t)
	repo := NewContentRepo(db)
	enrichRepo := NewEnrichmentRepo(db)

	a := testItem(content.PlatformTwitter, "a")
	b := testItem(content.PlatformTwitter, "b")
	for _, item := range []*content.ContentItem{a, b} {
		if _, err := repo.UpsertItem(item); err != nil {
			t.Fatal(err)
		}
	}

	// fully process item a, partially process item b
	tx, err := enrichRepo.BeginTx(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range content.AllTasks {
		if err := enrichRepo.MarkDoneTx(tx, task, a.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := enrichRepo.MarkDoneTx(tx, content.TaskSentiment, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.GetProcessingStats()
	if err != nil {
		t.Fatal(err)
	}

	if stats.Total != 2 {
		t.Errorf("Expected total 2, got %d", stats.Total)
	}
	if stats.FullyProcessed != 1 {
		t.Errorf("Expected 1 fully processed, got %d", stats.FullyProcessed)
	}
	if stats.PerTask[content.TaskSentiment] != 2 {
		t.Errorf("Expected 2 sentiment-done, got %d", stats.PerTask[content.TaskSentiment])
	}
	if stats.PerTask[content.TaskKeyword] != 1 {
		t.Errorf("Expected 1 keyword-done, got %d", stats.PerTask[content.TaskKeyword])
	}
}
