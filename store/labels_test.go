package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alwitt/halcyon/result"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLabelLifecycle(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut, _ := newTestStore(t, store.Limits{MaxLabels: 2, MaxEvents: 10}, nil)

	alice := signUp(t, uut, "alice", "password1")
	bob := signUp(t, uut, "bob", "password1")

	// Case 0: create
	work := uut.Labels.Create(utCtx, alice, "work", "#ff0000", nil)
	assert.True(work.IsOk())
	assert.Equal("work", work.Val().Name)

	// Case 1: duplicate name
	dup := uut.Labels.Create(utCtx, alice, "work", "#00ff00", nil)
	assert.False(dup.IsOk())
	assert.Equal("Label with that name already exists", dup.Error().Message)

	// Case 2: bad colour and overlong name
	bad := uut.Labels.Create(utCtx, alice, "home", "red", nil)
	assert.False(bad.IsOk())
	assert.Equal("Invalid colour", bad.Error().Message)
	long := uut.Labels.Create(utCtx, alice, strings.Repeat("x", 300), "#00ff00", nil)
	assert.False(long.IsOk())
	assert.Equal("Name too long", long.Error().Message)

	// Case 3: limit
	assert.True(uut.Labels.Create(utCtx, alice, "home", "#00ff00", nil).IsOk())
	full := uut.Labels.Create(utCtx, alice, "travel", "#0000ff", nil)
	assert.False(full.IsOk())
	assert.Equal("Maximum number of labels (2) reached", full.Error().Message)

	// Case 4: lookups
	byID := uut.Labels.FromID(utCtx, alice, work.Val().ID, nil)
	assert.True(byID.IsOk())
	assert.Equal("work", byID.Val().Name)
	byName := uut.Labels.FromName(utCtx, alice, "home", nil)
	assert.True(byName.IsOk())
	assert.Equal("#00ff00", byName.Val().Colour)
	all := uut.Labels.All(utCtx, alice, nil)
	assert.True(all.IsOk())
	assert.Len(all.Val(), 2)

	// Case 5: other users can not see the label
	other := uut.Labels.FromID(utCtx, bob, work.Val().ID, nil)
	assert.False(other.IsOk())
	assert.Equal(result.KindValidation, other.Error().Kind)
	assert.Equal("Label not found", other.Error().Message)
	missing := uut.Labels.FromID(utCtx, alice, uuid.NewString(), nil)
	assert.Equal("Label not found", missing.Error().Message)

	// Case 6: updates
	renamed := uut.Labels.UpdateName(utCtx, alice, work.Val().ID, "office", nil)
	assert.True(renamed.IsOk())
	assert.Equal("office", renamed.Val().Name)
	clash := uut.Labels.UpdateName(utCtx, alice, work.Val().ID, "home", nil)
	assert.Equal("Label with that name already exists", clash.Error().Message)
	recoloured := uut.Labels.UpdateColour(utCtx, alice, work.Val().ID, "#123456", nil)
	assert.True(recoloured.IsOk())
	byID = uut.Labels.FromID(utCtx, alice, work.Val().ID, nil)
	assert.Equal("office", byID.Val().Name)
	assert.Equal("#123456", byID.Val().Colour)
	assert.False(uut.Labels.UpdateColour(utCtx, bob, work.Val().ID, "#123456", nil).IsOk())

	// Case 7: usage counts
	entry := uut.Entries.Create(utCtx, alice, store.EntryContent{
		Body: "hello", LabelID: work.Val().ID,
	}, nil)
	assert.True(entry.IsOk())
	assert.True(uut.Entries.Edit(utCtx, alice, entry.Val().ID, store.EntryContent{
		Body: "hello again", LabelID: work.Val().ID,
	}, nil).IsOk())
	start := time.Now().UTC().Truncate(time.Second)
	assert.True(uut.Events.Create(utCtx, alice, store.EventContent{
		Name: "meeting", Start: start, End: start.Add(time.Hour), LabelID: work.Val().ID,
	}, nil).IsOk())

	counts := uut.Labels.AllWithCounts(utCtx, alice)
	assert.True(counts.IsOk())
	assert.Len(counts.Val(), 2)
	for _, label := range counts.Val() {
		if label.ID == work.Val().ID {
			assert.Equal(int64(1), label.EntryCount)
			assert.Equal(int64(1), label.EditCount)
			assert.Equal(int64(1), label.EventCount)
		} else {
			assert.Equal(int64(0), label.EntryCount+label.EditCount+label.EventCount)
		}
	}

	// Case 8: delete clears the label from its users
	assert.True(uut.Labels.Delete(utCtx, alice, work.Val().ID, nil).IsOk())
	readBack := uut.Entries.FromID(utCtx, alice, entry.Val().ID, nil)
	assert.True(readBack.IsOk())
	assert.Empty(readBack.Val().LabelID)
	assert.Nil(readBack.Val().Label)
	again := uut.Labels.Delete(utCtx, alice, work.Val().ID, nil)
	assert.Equal("Label not found", again.Error().Message)
}
