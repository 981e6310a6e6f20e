package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BounzyABI is the ABI of the deployed Bounzy contract.
const BounzyABI = `[
	{"type":"function","name":"createCampaign","inputs":[{"internalType":"externalEuint8","name":"minSeverityInput","type":"bytes32"},{"internalType":"bytes","name":"inputProof","type":"bytes"},{"internalType":"string","name":"name","type":"string"},{"internalType":"uint256","name":"durationDays","type":"uint256"}],"outputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"}],"stateMutability":"payable"},
	{"type":"function","name":"fundCampaign","inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"}],"outputs":[],"stateMutability":"payable"},
	{"type":"function","name":"deactivateCampaign","inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"withdrawCampaignFunds","inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"submitEvidence","inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"},{"internalType":"externalEuint256","name":"evidenceHashInput","type":"bytes32"},{"internalType":"externalEuint8","name":"severityInput","type":"bytes32"},{"internalType":"externalEuint256","name":"descriptionInput","type":"bytes32"},{"internalType":"bytes","name":"inputProof","type":"bytes"}],"outputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"requestSeverityDecryption","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"requestDescriptionDecryption","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"validateEvidence","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"},{"internalType":"uint8","name":"severityClear","type":"uint8"},{"internalType":"externalEuint64","name":"bountyAmountInput","type":"bytes32"},{"internalType":"bytes","name":"inputProof","type":"bytes"},{"internalType":"bytes","name":"decryptionProof","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"declineEvidence","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"},{"internalType":"string","name":"reason","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"requestBountyDecryption","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"claimBounty","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"},{"internalType":"uint64","name":"bountyClear","type":"uint64"},{"internalType":"bytes","name":"decryptionProof","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getCampaign","inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"}],"outputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"string","name":"name","type":"string"},{"internalType":"uint256","name":"bountyPool","type":"uint256"},{"internalType":"uint256","name":"expiryDate","type":"uint256"},{"internalType":"uint32","name":"evidenceCount","type":"uint32"},{"internalType":"bool","name":"active","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"getEvidence","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"},{"internalType":"address","name":"submitter","type":"address"},{"internalType":"uint8","name":"status","type":"uint8"},{"internalType":"uint256","name":"timestamp","type":"uint256"},{"internalType":"bool","name":"severityDecryptable","type":"bool"},{"internalType":"bool","name":"bountyDecryptable","type":"bool"},{"internalType":"bool","name":"descriptionDecryptable","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"campaignCounter","inputs":[],"outputs":[{"internalType":"uint32","name":"","type":"uint32"}],"stateMutability":"view"},
	{"type":"function","name":"evidenceCounter","inputs":[],"outputs":[{"internalType":"uint32","name":"","type":"uint32"}],"stateMutability":"view"},
	{"type":"function","name":"getSubmitterEvidenceIds","inputs":[{"internalType":"address","name":"submitter","type":"address"}],"outputs":[{"internalType":"uint32[]","name":"","type":"uint32[]"}],"stateMutability":"view"},
	{"type":"function","name":"getCampaignEvidenceIds","inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32"}],"outputs":[{"internalType":"uint32[]","name":"","type":"uint32[]"}],"stateMutability":"view"},
	{"type":"function","name":"getActiveCampaigns","inputs":[],"outputs":[{"internalType":"uint32[]","name":"","type":"uint32[]"}],"stateMutability":"view"},
	{"type":"function","name":"getEvidenceSeverityHandle","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[{"internalType":"euint8","name":"","type":"bytes32"}],"stateMutability":"view"},
	{"type":"function","name":"getEvidenceBountyHandle","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[{"internalType":"euint64","name":"","type":"bytes32"}],"stateMutability":"view"},
	{"type":"function","name":"getDescriptionHandle","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[{"internalType":"euint256","name":"","type":"bytes32"}],"stateMutability":"view"},
	{"type":"function","name":"getDeclinedReason","inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32"}],"outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view"},
	{"type":"event","name":"CampaignCreated","anonymous":false,"inputs":[{"internalType":"uint32","name":"campaignId","type":"uint32","indexed":true},{"internalType":"address","name":"owner","type":"address","indexed":true},{"internalType":"string","name":"name","type":"string","indexed":false},{"internalType":"uint256","name":"bountyPool","type":"uint256","indexed":false},{"internalType":"uint256","name":"expiryDate","type":"uint256","indexed":false}]},
	{"type":"event","name":"EvidenceSubmitted","anonymous":false,"inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32","indexed":true},{"internalType":"uint32","name":"campaignId","type":"uint32","indexed":true},{"internalType":"address","name":"submitter","type":"address","indexed":true},{"internalType":"uint256","name":"timestamp","type":"uint256","indexed":false}]},
	{"type":"event","name":"EvidenceValidated","anonymous":false,"inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32","indexed":true},{"internalType":"uint32","name":"campaignId","type":"uint32","indexed":true}]},
	{"type":"event","name":"EvidenceDeclined","anonymous":false,"inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32","indexed":true},{"internalType":"uint32","name":"campaignId","type":"uint32","indexed":true},{"internalType":"string","name":"reason","type":"string","indexed":false}]},
	{"type":"event","name":"BountyClaimed","anonymous":false,"inputs":[{"internalType":"uint32","name":"evidenceId","type":"uint32","indexed":true},{"internalType":"address","name":"submitter","type":"address","indexed":true},{"internalType":"uint256","name":"amount","type":"uint256","indexed":false}]},
	{"type":"error","name":"NotCampaignOwner","inputs":[]},
	{"type":"error","name":"CampaignNotActive","inputs":[]},
	{"type":"error","name":"InvalidCampaignId","inputs":[]},
	{"type":"error","name":"InsufficientBountyPool","inputs":[]},
	{"type":"receive","stateMutability":"payable"}
]`

// ParseABI parses BounzyABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(BounzyABI))
}

// MustParseABI parses BounzyABI and panics on failure.
func MustParseABI() abi.ABI {
	parsed, err := ParseABI()
	if err != nil {
		panic(err)
	}
	return parsed
}
