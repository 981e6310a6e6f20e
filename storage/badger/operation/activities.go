package operation

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/google/uuid"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

// activityKey orders activities of one subject by creation time. Evidence
// activities are keyed by evidence ID, campaign level ones by campaign ID.
func activityKey(activity *bounzy.Activity) []byte {
	created := uint64(activity.CreatedAt.UnixNano())
	if activity.EvidenceID == 0 {
		return makePrefix(codeCampaignActivity, activity.CampaignID, created, activity.ID)
	}
	return makePrefix(codeEvidenceActivity, activity.EvidenceID, created, activity.ID)
}

// InsertActivity stores the activity and indexes its key by activity ID.
func InsertActivity(activity *bounzy.Activity) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		key := activityKey(activity)
		err := insert(makePrefix(codeActivityIndex, activity.ID), key)(tx)
		if err != nil {
			return err
		}
		return insert(key, activity)(tx)
	}
}

// UpdateActivity replaces a stored activity. CreatedAt must not change.
func UpdateActivity(activity *bounzy.Activity) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var key []byte
		err := retrieve(makePrefix(codeActivityIndex, activity.ID), &key)(tx)
		if err != nil {
			return err
		}
		return update(key, activity)(tx)
	}
}

func RetrieveActivity(id uuid.UUID, activity *bounzy.Activity) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var key []byte
		err := retrieve(makePrefix(codeActivityIndex, id), &key)(tx)
		if err != nil {
			return err
		}
		return retrieve(key, activity)(tx)
	}
}

// LookupEvidenceActivities retrieves all activities of an evidence item, oldest first.
func LookupEvidenceActivities(evidenceID uint32, activities *[]*bounzy.Activity) func(*badger.Txn) error {
	return traverse(makePrefix(codeEvidenceActivity, evidenceID), false, collect(activities, 0))
}

// LookupCampaignActivities retrieves all campaign level activities, oldest first.
func LookupCampaignActivities(campaignID uint32, activities *[]*bounzy.Activity) func(*badger.Txn) error {
	return traverse(makePrefix(codeCampaignActivity, campaignID), false, collect(activities, 0))
}

// LookupLatestEvidenceActivities retrieves up to limit activities of an evidence
// item, newest first.
func LookupLatestEvidenceActivities(evidenceID uint32, limit int, activities *[]*bounzy.Activity) func(*badger.Txn) error {
	return traverse(makePrefix(codeEvidenceActivity, evidenceID), true, collect(activities, limit))
}

// collect appends each decoded activity to the slice. A positive limit stops
// the iteration once reached.
func collect(activities *[]*bounzy.Activity, limit int) iterationFunc {
	*activities = (*activities)[:0]
	return func() (createFunc, handleFunc) {
		var activity bounzy.Activity
		create := func() interface{} {
			return &activity
		}
		handle := func() error {
			if limit > 0 && len(*activities) >= limit {
				return errStopIteration
			}
			a := activity
			*activities = append(*activities, &a)
			return nil
		}
		return create, handle
	}
}
