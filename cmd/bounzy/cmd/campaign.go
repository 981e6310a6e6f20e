package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/engine/rest"
	"github.com/bounzy/bounzy-go/model/bounzy"
)

var (
	flagActiveOnly   bool
	flagName         string
	flagMinSeverity  uint8
	flagDurationDays uint64
	flagBountyPool   string
	flagAmount       string
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "list, create and manage campaigns",
}

func init() {
	rootCmd.AddCommand(campaignCmd)

	campaignCmd.AddCommand(campaignListCmd)
	campaignListCmd.Flags().BoolVar(&flagActiveOnly, "active", false, "only campaigns accepting submissions")

	campaignCmd.AddCommand(campaignShowCmd)
	campaignCmd.AddCommand(campaignEvidenceCmd)

	campaignCmd.AddCommand(campaignCreateCmd)
	campaignCreateCmd.Flags().StringVar(&flagName, "name", "", "name of the campaign")
	campaignCreateCmd.Flags().Uint8Var(&flagMinSeverity, "min-severity", 5, "minimum severity (1-10) evidence needs to be validated, encrypted on chain")
	campaignCreateCmd.Flags().Uint64Var(&flagDurationDays, "days", 30, "days the campaign accepts submissions")
	campaignCreateCmd.Flags().StringVar(&flagBountyPool, "pool", "0", "initial bounty pool in ether")
	_ = campaignCreateCmd.MarkFlagRequired("name")

	campaignCmd.AddCommand(campaignFundCmd)
	campaignFundCmd.Flags().StringVar(&flagAmount, "amount", "", "amount in ether")
	_ = campaignFundCmd.MarkFlagRequired("amount")

	campaignCmd.AddCommand(campaignDeactivateCmd)
	campaignCmd.AddCommand(campaignWithdrawCmd)
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "list campaigns",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := mustInitServices(cmd.Context())
		defer s.Close()

		var (
			campaigns []*bounzy.Campaign
			err       error
		)
		if flagActiveOnly {
			campaigns, err = s.orchestrator.ActiveCampaigns(cmd.Context())
		} else {
			campaigns, err = s.orchestrator.AllCampaigns(cmd.Context())
		}
		if err != nil {
			if len(campaigns) == 0 {
				fatal(err, "could not list campaigns")
			}
			log.Warn().Err(err).Msg("some campaigns could not be read")
		}

		response := make([]rest.Campaign, len(campaigns))
		for i, campaign := range campaigns {
			response[i].Build(campaign, s.orchestrator.Account())
		}
		prettyPrint(response)
	},
}

var campaignShowCmd = &cobra.Command{
	Use:   "show <campaign-id>",
	Short: "show a campaign",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		campaign, err := s.orchestrator.Campaign(cmd.Context(), id)
		if err != nil {
			fatal(err, "could not read campaign")
		}
		var response rest.Campaign
		response.Build(campaign, s.orchestrator.Account())
		prettyPrint(response)
	},
}

var campaignEvidenceCmd = &cobra.Command{
	Use:   "evidence <campaign-id>",
	Short: "list the evidence submitted to a campaign",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		evidence, err := s.orchestrator.CampaignEvidence(cmd.Context(), id)
		if err != nil {
			if len(evidence) == 0 {
				fatal(err, "could not list evidence")
			}
			log.Warn().Err(err).Msg("some evidence could not be read")
		}
		printEvidence(evidence)
	},
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "create a campaign",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		pool, err := bounzy.ParseEther(flagBountyPool)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid bounty pool")
		}
		s := mustInitServices(cmd.Context())
		defer s.Close()

		id, receipt, err := s.orchestrator.CreateCampaign(cmd.Context(), lifecycle.NewCampaign{
			Name:        flagName,
			MinSeverity: flagMinSeverity,
			Duration:    time.Duration(flagDurationDays) * 24 * time.Hour,
			BountyPool:  pool,
		})
		if err != nil {
			fatal(err, "could not create campaign")
		}
		var response rest.Receipt
		response.Build(receipt)
		response.CampaignID = id
		prettyPrint(response)
	},
}

var campaignFundCmd = &cobra.Command{
	Use:   "fund <campaign-id>",
	Short: "add ether to the bounty pool of a campaign",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		amount, err := bounzy.ParseEther(flagAmount)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid amount")
		}
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.FundCampaign(cmd.Context(), id, amount)
		if err != nil {
			fatal(err, "could not fund campaign")
		}
		printReceipt(receipt)
	},
}

var campaignDeactivateCmd = &cobra.Command{
	Use:   "deactivate <campaign-id>",
	Short: "stop accepting submissions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.DeactivateCampaign(cmd.Context(), id)
		if err != nil {
			fatal(err, "could not deactivate campaign")
		}
		printReceipt(receipt)
	},
}

var campaignWithdrawCmd = &cobra.Command{
	Use:   "withdraw <campaign-id>",
	Short: "withdraw the remaining pool of an inactive campaign",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.WithdrawCampaignFunds(cmd.Context(), id)
		if err != nil {
			fatal(err, "could not withdraw campaign funds")
		}
		printReceipt(receipt)
	},
}

func mustParseID(raw string) uint32 {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		log.Fatal().Str("id", raw).Msg("ids are positive integers")
	}
	return uint32(id)
}

func printEvidence(evidence []bounzy.Evidence) {
	response := make([]rest.Evidence, len(evidence))
	for i := range evidence {
		response[i].Build(&evidence[i])
	}
	prettyPrint(response)
}
