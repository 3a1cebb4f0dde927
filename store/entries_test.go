package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntryLifecycle(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")
	bob := signUp(t, uut, "bob", "password1")

	// Case 0: body required, label must exist
	noBody := uut.Entries.Create(utCtx, alice, store.EntryContent{Title: "empty"}, nil)
	assert.False(noBody.IsOk())
	assert.Equal("Entry body required", noBody.Error().Message)
	noLabel := uut.Entries.Create(utCtx, alice, store.EntryContent{
		Body: "hi", LabelID: uuid.NewString(),
	}, nil)
	assert.False(noLabel.IsOk())
	assert.Equal("Label doesn't exist", noLabel.Error().Message)

	// Case 1: create
	lat, lng := 51.5, -0.12
	entry := uut.Entries.Create(utCtx, alice, store.EntryContent{
		Title: "first", Body: "hello", AgentData: "ut-agent", Latitude: &lat, Longitude: &lng,
	}, nil)
	assert.True(entry.IsOk())
	assert.Equal("first", entry.Val().Title)
	assert.Equal("hello", entry.Val().Body)
	assert.Equal(lat, *entry.Val().Latitude)

	// Case 2: other users can not see it
	other := uut.Entries.FromID(utCtx, bob, entry.Val().ID, nil)
	assert.False(other.IsOk())
	assert.Equal("Entry not found", other.Error().Message)

	// Case 3: edit keeps the previous version
	edited := uut.Entries.Edit(utCtx, alice, entry.Val().ID, store.EntryContent{
		Title: "first", Body: "hello world",
	}, nil)
	assert.True(edited.IsOk())
	assert.Equal("hello world", edited.Val().Body)
	edits := uut.Entries.Edits(utCtx, alice, entry.Val().ID, nil)
	assert.True(edits.IsOk())
	assert.Len(edits.Val(), 1)
	assert.Equal("hello", edits.Val()[0].Body)
	assert.Equal("ut-agent", edits.Val()[0].AgentData)

	// Case 4: pin
	assert.True(uut.Entries.SetPinned(utCtx, alice, entry.Val().ID, true, nil).IsOk())
	readBack := uut.Entries.FromID(utCtx, alice, entry.Val().ID, nil)
	assert.True(readBack.Val().Pinned)

	// Case 5: soft delete and restore
	assert.False(uut.Entries.Delete(utCtx, alice, entry.Val().ID, true, nil).IsOk())
	assert.True(uut.Entries.Delete(utCtx, alice, entry.Val().ID, false, nil).IsOk())
	again := uut.Entries.Delete(utCtx, alice, entry.Val().ID, false, nil)
	assert.Equal("Entry already deleted", again.Error().Message)
	listed := uut.Entries.List(utCtx, alice, store.EntryListQuery{PageSize: 10}, nil)
	assert.True(listed.IsOk())
	assert.Empty(listed.Val().Entries)
	listed = uut.Entries.List(utCtx, alice, store.EntryListQuery{PageSize: 10, Deleted: true}, nil)
	assert.True(listed.IsOk())
	assert.Len(listed.Val().Entries, 1)
	assert.True(uut.Entries.Delete(utCtx, alice, entry.Val().ID, true, nil).IsOk())
}

func TestEntryListing(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")

	for idx := 0; idx < 7; idx++ {
		body := fmt.Sprintf("entry %d", idx)
		if idx%3 == 0 {
			body = fmt.Sprintf("Gardening day %d", idx)
		}
		assert.True(uut.Entries.Create(utCtx, alice, store.EntryContent{Body: body}, nil).IsOk())
	}

	// Case 0: bad paging
	assert.Equal(
		"Invalid page number",
		uut.Entries.List(utCtx, alice, store.EntryListQuery{Page: -1, PageSize: 5}, nil).Error().Message,
	)
	assert.Equal(
		"Invalid page size",
		uut.Entries.List(utCtx, alice, store.EntryListQuery{PageSize: 0}, nil).Error().Message,
	)

	// Case 1: pages
	page := uut.Entries.List(utCtx, alice, store.EntryListQuery{Page: 0, PageSize: 5}, nil)
	assert.True(page.IsOk())
	assert.Len(page.Val().Entries, 5)
	assert.Equal(2, page.Val().TotalPages)
	assert.Equal(7, page.Val().TotalEntries)
	page = uut.Entries.List(utCtx, alice, store.EntryListQuery{Page: 1, PageSize: 5}, nil)
	assert.True(page.IsOk())
	assert.Len(page.Val().Entries, 2)
	page = uut.Entries.List(utCtx, alice, store.EntryListQuery{Page: 4, PageSize: 5}, nil)
	assert.True(page.IsOk())
	assert.Empty(page.Val().Entries)

	// Case 2: search is case insensitive over decrypted content
	page = uut.Entries.List(
		utCtx, alice, store.EntryListQuery{PageSize: 10, Search: "gardening"}, nil,
	)
	assert.True(page.IsOk())
	assert.Equal(3, page.Val().TotalEntries)
	assert.Equal(1, page.Val().TotalPages)
}

func TestComputeStreaks(t *testing.T) {
	assert := assert.New(t)

	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, -offset) }

	// Case 0: nothing
	assert.Equal(0, store.ComputeStreaks(nil, now).Current)

	// Case 1: today, yesterday and the day before, with a longer old run
	streaks := store.ComputeStreaks([]time.Time{
		day(0), day(0).Add(-time.Hour), day(1), day(2),
		day(10), day(11), day(12), day(13), day(14),
	}, now)
	assert.Equal(3, streaks.Current)
	assert.Equal(5, streaks.Longest)
	assert.NotNil(streaks.RunningSince)
	assert.Equal(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), *streaks.RunningSince)

	// Case 2: run ending yesterday still counts
	streaks = store.ComputeStreaks([]time.Time{day(1), day(2)}, now)
	assert.Equal(2, streaks.Current)

	// Case 3: run ending two days ago is broken
	streaks = store.ComputeStreaks([]time.Time{day(2), day(3)}, now)
	assert.Equal(0, streaks.Current)
	assert.Equal(2, streaks.Longest)
	assert.Nil(streaks.RunningSince)
}

func TestEntryStreaks(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.DefaultLimits(), nil)

	alice := signUp(t, uut, "alice", "password1")
	assert.True(uut.Entries.Create(utCtx, alice, store.EntryContent{Body: "today"}, nil).IsOk())

	streaks := uut.Entries.Streaks(utCtx, alice, time.Now(), nil)
	assert.True(streaks.IsOk())
	assert.Equal(1, streaks.Val().Current)
	assert.Equal(1, streaks.Val().Longest)
}
