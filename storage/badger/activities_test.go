package badger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/storage"
	bstorage "github.com/bounzy/bounzy-go/storage/badger"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

func TestActivities_StoreAndRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewActivities(db)
		activity := unittest.ActivityFixture(7)

		require.NoError(t, store.Store(activity))
		require.True(t, errors.Is(store.Store(activity), storage.ErrAlreadyExists))

		retrieved, err := store.ByID(activity.ID)
		require.NoError(t, err)
		assert.Equal(t, activity.ID, retrieved.ID)
		assert.Equal(t, activity.Account, retrieved.Account)
		assert.Equal(t, bounzy.ActivitySubmitted, retrieved.Status)
		assert.True(t, activity.CreatedAt.Equal(retrieved.CreatedAt))

		_, err = store.ByID(uuid.New())
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestActivities_Update(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewActivities(db)
		activity := unittest.ActivityFixture(7)
		require.ErrorIs(t, store.Update(activity), storage.ErrNotFound)

		require.NoError(t, store.Store(activity))
		tx := unittest.HashFixture()
		activity.Confirm(tx, time.Now())
		require.NoError(t, store.Update(activity))

		retrieved, err := store.ByID(activity.ID)
		require.NoError(t, err)
		assert.Equal(t, bounzy.ActivityConfirmed, retrieved.Status)
		assert.Equal(t, tx, retrieved.TxHash)
	})
}

func TestActivities_OrderedByCreation(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewActivities(db)
		base := time.Now().UTC()

		_, err := store.LatestByEvidence(9)
		require.ErrorIs(t, err, storage.ErrNotFound)

		// stored newest first, listed oldest first
		var expected []uuid.UUID
		for i := 4; i >= 0; i-- {
			a := unittest.ActivityFixture(9, unittest.WithCreatedAt(base.Add(time.Duration(i)*time.Second)))
			expected = append([]uuid.UUID{a.ID}, expected...)
			require.NoError(t, store.Store(a))
		}
		require.NoError(t, store.Store(unittest.ActivityFixture(10)))
		require.NoError(t, store.Store(unittest.ActivityFixture(90)))

		activities, err := store.ByEvidence(9)
		require.NoError(t, err)
		require.Len(t, activities, 5)
		for i, a := range activities {
			assert.Equal(t, expected[i], a.ID)
		}

		latest, err := store.LatestByEvidence(9)
		require.NoError(t, err)
		assert.Equal(t, expected[4], latest.ID)
	})
}

func TestActivities_ByCampaign(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store := bstorage.NewActivities(db)
		create := bounzy.NewActivity(0, 3, "create_campaign", unittest.AddressFixture(), time.Now())
		require.NoError(t, store.Store(create))

		activities, err := store.ByCampaign(3)
		require.NoError(t, err)
		require.Len(t, activities, 1)
		assert.Equal(t, create.ID, activities[0].ID)

		evidence, err := store.ByEvidence(0)
		require.NoError(t, err)
		assert.Empty(t, evidence)
	})
}
