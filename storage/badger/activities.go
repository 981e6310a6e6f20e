package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/storage"
	"github.com/bounzy/bounzy-go/storage/badger/operation"
)

// Activities implements storage.Activities on top of badger.
type Activities struct {
	db *badger.DB
}

var _ storage.Activities = (*Activities)(nil)

func NewActivities(db *badger.DB) *Activities {
	return &Activities{db: db}
}

func (a *Activities) Store(activity *bounzy.Activity) error {
	err := a.db.Update(operation.InsertActivity(activity))
	if err != nil {
		return fmt.Errorf("could not store activity %s: %w", activity.ID, err)
	}
	return nil
}

func (a *Activities) Update(activity *bounzy.Activity) error {
	err := a.db.Update(operation.UpdateActivity(activity))
	if err != nil {
		return fmt.Errorf("could not update activity %s: %w", activity.ID, err)
	}
	return nil
}

func (a *Activities) ByID(id uuid.UUID) (*bounzy.Activity, error) {
	var activity bounzy.Activity
	err := a.db.View(operation.RetrieveActivity(id, &activity))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve activity %s: %w", id, err)
	}
	return &activity, nil
}

func (a *Activities) ByEvidence(evidenceID uint32) ([]*bounzy.Activity, error) {
	var activities []*bounzy.Activity
	err := a.db.View(operation.LookupEvidenceActivities(evidenceID, &activities))
	if err != nil {
		return nil, fmt.Errorf("could not lookup activities of evidence %d: %w", evidenceID, err)
	}
	return activities, nil
}

func (a *Activities) ByCampaign(campaignID uint32) ([]*bounzy.Activity, error) {
	var activities []*bounzy.Activity
	err := a.db.View(operation.LookupCampaignActivities(campaignID, &activities))
	if err != nil {
		return nil, fmt.Errorf("could not lookup activities of campaign %d: %w", campaignID, err)
	}
	return activities, nil
}

func (a *Activities) LatestByEvidence(evidenceID uint32) (*bounzy.Activity, error) {
	var activities []*bounzy.Activity
	err := a.db.View(operation.LookupLatestEvidenceActivities(evidenceID, 1, &activities))
	if err != nil {
		return nil, fmt.Errorf("could not lookup latest activity of evidence %d: %w", evidenceID, err)
	}
	if len(activities) == 0 {
		return nil, storage.ErrNotFound
	}
	return activities[0], nil
}

// InitDB opens a badger database for the journal at the given directory.
func InitDB(dir string) (*badger.DB, error) {
	if dir == "" {
		return nil, errors.New("journal directory must not be empty")
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open journal db: %w", err)
	}
	return db, nil
}

// InitInMemoryDB opens a badger database that is never written to disk.
func InitInMemoryDB() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open in-memory journal db: %w", err)
	}
	return db, nil
}
