package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitgap/internal/decisionlog/models"
	id "fitgap/pkg/domain"
)

func newEntry(assessmentID id.AssessmentID) *models.Entry {
	return &models.Entry{
		ID:           id.NewEntryID(),
		AssessmentID: assessmentID,
		EntityType:   models.EntitySignature,
		EntityID:     uuid.NewString(),
		Action:       models.ActionExecutiveSigned,
		OldValue:     map[string]any{"status": "AREA_VALIDATION_COMPLETE"},
		NewValue: map[string]any{
			"status":    "EXECUTIVE_SIGNED",
			"signature": map[string]any{"documentHash": "abc", "signer": []any{"cfo"}},
		},
		ActorID:   id.UserID(uuid.New()),
		ActorRole: "executive",
		Timestamp: time.Now().UTC(),
	}
}

func TestInMemoryStore_EntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	assessmentID := id.AssessmentID(uuid.New())
	entry := newEntry(assessmentID)
	require.NoError(t, store.Append(ctx, entry))

	t.Run("caller's maps are not retained", func(t *testing.T) {
		entry.NewValue["signature"].(map[string]any)["documentHash"] = "forged"
		entry.OldValue["status"] = "COMPLETED"

		stored, err := store.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "abc", stored.NewValue["signature"].(map[string]any)["documentHash"])
		assert.Equal(t, "AREA_VALIDATION_COMPLETE", stored.OldValue["status"])
	})

	t.Run("returned maps are fresh copies", func(t *testing.T) {
		first, err := store.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		first.NewValue["signature"].(map[string]any)["signer"].([]any)[0] = "intruder"

		page, err := store.List(ctx, models.ListParams{AssessmentID: assessmentID, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, []any{"cfo"}, page[0].NewValue["signature"].(map[string]any)["signer"])
	})

	t.Run("nil documents stay nil", func(t *testing.T) {
		e := newEntry(assessmentID)
		e.OldValue = nil
		require.NoError(t, store.Append(ctx, e))

		stored, err := store.FindByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.OldValue)
	})
}
