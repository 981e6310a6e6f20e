package bounzy

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Campaign is a bounty campaign as reported by the contract.
type Campaign struct {
	ID            uint32
	Owner         common.Address
	Name          string
	BountyPool    *big.Int // wei
	ExpiryDate    time.Time
	EvidenceCount uint32
	// Active is false once the campaign expired or was deactivated by its owner.
	Active bool
}

// Expired returns true if the campaign expiry is at or before now.
func (c *Campaign) Expired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// OwnedBy returns true if the account owns the campaign.
func (c *Campaign) OwnedBy(account common.Address) bool {
	return c.Owner == account
}

// DurationDays converts a campaign duration into the whole number of days the
// contract expects, rounding up partial days.
func DurationDays(d time.Duration) uint64 {
	const day = 24 * time.Hour
	if d <= 0 {
		return 0
	}
	days := d / day
	if d%day != 0 {
		days++
	}
	return uint64(days)
}
