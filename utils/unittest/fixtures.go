package unittest

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func AddressFixture() common.Address {
	return common.BytesToAddress(randomBytes(common.AddressLength))
}

func HashFixture() common.Hash {
	return common.BytesToHash(randomBytes(common.HashLength))
}

func HandleFixture() bounzy.Handle {
	var h bounzy.Handle
	copy(h[:], randomBytes(bounzy.HandleLength))
	return h
}

// Uint256Fixture returns a random 256-bit value, e.g. an evidence file hash.
func Uint256Fixture() *uint256.Int {
	return new(uint256.Int).SetBytes(randomBytes(32))
}

func CampaignFixture(opts ...func(*bounzy.Campaign)) *bounzy.Campaign {
	c := &bounzy.Campaign{
		ID:            uint32(mrand.Intn(1000) + 1),
		Owner:         AddressFixture(),
		Name:          "campaign",
		BountyPool:    big.NewInt(1e17),
		ExpiryDate:    time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second),
		EvidenceCount: 0,
		Active:        true,
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

func EvidenceFixture(opts ...func(*bounzy.Evidence)) *bounzy.Evidence {
	ev := &bounzy.Evidence{
		ID:         uint32(mrand.Intn(1000) + 1),
		CampaignID: uint32(mrand.Intn(1000) + 1),
		Submitter:  AddressFixture(),
		Status:     bounzy.StatusPending,
		Timestamp:  time.Now().Truncate(time.Second),
	}
	for _, apply := range opts {
		apply(ev)
	}
	return ev
}

func WithEvidenceID(id uint32) func(*bounzy.Evidence) {
	return func(ev *bounzy.Evidence) {
		ev.ID = id
	}
}

func WithStatus(status bounzy.Status) func(*bounzy.Evidence) {
	return func(ev *bounzy.Evidence) {
		ev.Status = status
	}
}

func ActivityFixture(evidenceID uint32, opts ...func(*bounzy.Activity)) *bounzy.Activity {
	a := bounzy.NewActivity(evidenceID, uint32(mrand.Intn(1000)+1), "validate", AddressFixture(), time.Now().UTC().Truncate(time.Millisecond))
	for _, apply := range opts {
		apply(a)
	}
	return a
}

func WithCreatedAt(at time.Time) func(*bounzy.Activity) {
	return func(a *bounzy.Activity) {
		a.CreatedAt = at
		a.UpdatedAt = at
	}
}
