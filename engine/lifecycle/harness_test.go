package lifecycle_test

import (
	"context"
	"math/big"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/contract/contracttest"
	"github.com/bounzy/bounzy-go/module/fhe"
	"github.com/bounzy/bounzy-go/module/fhe/fhetest"
	"github.com/bounzy/bounzy-go/module/metrics"
	storage "github.com/bounzy/bounzy-go/storage/badger"
	"github.com/bounzy/bounzy-go/utils/unittest"
)

var (
	tenthEther     = big.NewInt(100_000_000_000_000_000)
	hundredthEther = big.NewInt(10_000_000_000_000_000)
)

// LifecycleSuite runs the orchestrator of a campaign owner and of a submitter
// against the same in-memory chain and relayer.
type LifecycleSuite struct {
	suite.Suite

	relayer *fhetest.Relayer
	chain   *contracttest.Chain
	db      *badger.DB
	journal *storage.Activities
	config  lifecycle.Config

	ownerAccount     contracttest.Account
	submitterAccount contracttest.Account
	owner            *lifecycle.Orchestrator
	submitter        *lifecycle.Orchestrator

	// stops shuts down components started by a test
	stops []func()
}

func (s *LifecycleSuite) SetupTest() {
	s.relayer = fhetest.New()
	s.chain = contracttest.NewChain(s.relayer)

	db, err := storage.InitInMemoryDB()
	s.Require().NoError(err)
	s.db = db
	s.journal = storage.NewActivities(db)

	s.config = lifecycle.Config{
		PollInterval:    5 * time.Millisecond,
		MaxPollAttempts: 40,
		CacheSize:       16,
		RefreshInterval: 10 * time.Millisecond,
		RefreshWorkers:  2,
		PreviewTimeout:  time.Second,
		SubscribeEvents: true,
	}

	s.ownerAccount = contracttest.NewAccount()
	s.submitterAccount = contracttest.NewAccount()
	s.owner = s.orchestrator(s.ownerAccount.Signer())
	s.submitter = s.orchestrator(s.submitterAccount.Signer())
}

func (s *LifecycleSuite) TearDownTest() {
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil
	s.Require().NoError(s.db.Close())
}

func (s *LifecycleSuite) gateway(signer contract.Signer) *contract.Client {
	config := contract.Config{
		ConfirmationTimeout: time.Second,
		ReceiptPollInterval: 2 * time.Millisecond,
	}
	client, err := contract.NewClient(unittest.Logger(), config, s.chain, s.chain.Address(), signer)
	s.Require().NoError(err)
	return client
}

func (s *LifecycleSuite) adapter() *fhe.Adapter {
	return fhe.NewAdapter(unittest.Logger(), metrics.NewNoopCollector(), s.relayer.Factory(), s.chain.Address(), time.Second)
}

func (s *LifecycleSuite) orchestrator(signer contract.Signer) *lifecycle.Orchestrator {
	return s.orchestratorWith(s.gateway(signer), s.adapter())
}

func (s *LifecycleSuite) orchestratorWith(gateway contract.Gateway, encryptor lifecycle.Encryptor) *lifecycle.Orchestrator {
	o, err := lifecycle.New(unittest.Logger(), s.config, gateway, encryptor, s.journal, metrics.NewNoopCollector())
	s.Require().NoError(err)
	return o
}

// createCampaign creates a campaign with minimum severity 5, 30 days and 0.1 ETH.
func (s *LifecycleSuite) createCampaign() uint32 {
	id, _, err := s.owner.CreateCampaign(context.Background(), lifecycle.NewCampaign{
		Name:        "Q3 compliance",
		MinSeverity: 5,
		Duration:    30 * 24 * time.Hour,
		BountyPool:  tenthEther,
	})
	s.Require().NoError(err)
	return id
}

func (s *LifecycleSuite) submitEvidence(campaignID uint32, severity uint8) uint32 {
	id, _, err := s.submitter.SubmitEvidence(context.Background(), lifecycle.NewEvidence{
		CampaignID:  campaignID,
		Hash:        unittest.Uint256Fixture(),
		Severity:    severity,
		Description: "ledger manipulation",
	})
	s.Require().NoError(err)
	return id
}

// underReview submits evidence and has its severity decrypted.
func (s *LifecycleSuite) underReview(severity uint8) uint32 {
	ctx := context.Background()
	id := s.submitEvidence(s.createCampaign(), severity)
	_, err := s.owner.RequestDecryption(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	_, err = s.owner.WaitDecryptable(ctx, id, bounzy.FieldSeverity)
	s.Require().NoError(err)
	return id
}

func (s *LifecycleSuite) status(evidenceID uint32) bounzy.Status {
	view, err := s.owner.Refresh(context.Background(), evidenceID)
	require.NoError(s.T(), err)
	return view.Evidence.Status
}
