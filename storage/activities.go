package storage

import (
	"github.com/google/uuid"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// Activities is the journal of transactions this client submitted.
type Activities interface {
	// Store persists a new activity.
	// Returns ErrAlreadyExists if an activity with the same ID was stored before.
	Store(activity *bounzy.Activity) error

	// Update replaces a stored activity.
	// Returns ErrNotFound if the activity was never stored.
	Update(activity *bounzy.Activity) error

	// ByID returns the activity with the given ID.
	// Returns ErrNotFound if it does not exist.
	ByID(id uuid.UUID) (*bounzy.Activity, error)

	// ByEvidence returns all activities for an evidence item, oldest first.
	ByEvidence(evidenceID uint32) ([]*bounzy.Activity, error)

	// ByCampaign returns all campaign level activities, oldest first.
	ByCampaign(campaignID uint32) ([]*bounzy.Activity, error)

	// LatestByEvidence returns the most recent activity for an evidence item.
	// Returns ErrNotFound if there is none.
	LatestByEvidence(evidenceID uint32) (*bounzy.Activity, error)
}
