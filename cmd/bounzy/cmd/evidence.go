package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/engine/rest"
	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
)

var (
	flagCampaignID  uint32
	flagFile        string
	flagHash        string
	flagSeverity    uint8
	flagDescription string
	flagSubmitter   string
	flagWait        bool
	flagBounty      string
	flagReason      string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "submit, review and claim evidence",
}

func init() {
	rootCmd.AddCommand(evidenceCmd)

	evidenceCmd.AddCommand(evidenceSubmitCmd)
	evidenceSubmitCmd.Flags().Uint32Var(&flagCampaignID, "campaign", 0, "campaign to submit to")
	evidenceSubmitCmd.Flags().StringVar(&flagFile, "file", "", "evidence file, only its SHA-256 digest is submitted")
	evidenceSubmitCmd.Flags().StringVar(&flagHash, "hash", "", "hex encoded digest of the evidence, instead of --file")
	evidenceSubmitCmd.Flags().Uint8Var(&flagSeverity, "severity", 0, "severity from 1 to 10, encrypted on chain")
	evidenceSubmitCmd.Flags().StringVar(&flagDescription, "description", "", "short description of at most 32 bytes, encrypted on chain")
	_ = evidenceSubmitCmd.MarkFlagRequired("campaign")
	_ = evidenceSubmitCmd.MarkFlagRequired("severity")

	evidenceCmd.AddCommand(evidenceShowCmd)

	evidenceCmd.AddCommand(evidenceListCmd)
	evidenceListCmd.Flags().StringVar(&flagSubmitter, "submitter", "", "submitter address, the configured account if empty")

	evidenceCmd.AddCommand(evidenceRequestCmd)
	evidenceRequestCmd.Flags().BoolVar(&flagWait, "wait", false, "wait until the field is decryptable")

	evidenceCmd.AddCommand(evidencePreviewCmd)
	evidencePreviewCmd.Flags().BoolVar(&flagWait, "wait", false, "wait until the field is decryptable")

	evidenceCmd.AddCommand(evidenceValidateCmd)
	evidenceValidateCmd.Flags().StringVar(&flagBounty, "bounty", "", "bounty in ether, encrypted on chain")
	_ = evidenceValidateCmd.MarkFlagRequired("bounty")

	evidenceCmd.AddCommand(evidenceDeclineCmd)
	evidenceDeclineCmd.Flags().StringVar(&flagReason, "reason", "", "reason shown to the submitter")

	evidenceCmd.AddCommand(evidenceClaimCmd)
	evidenceCmd.AddCommand(evidenceReasonCmd)
	evidenceCmd.AddCommand(evidenceActivitiesCmd)
}

var evidenceSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "submit evidence to a campaign",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if (flagFile == "") == (flagHash == "") {
			log.Fatal().Msg("exactly one of --file and --hash is required")
		}
		s := mustInitServices(cmd.Context())
		defer s.Close()

		var (
			id      uint32
			receipt *contract.Receipt
			err     error
		)
		if flagFile != "" {
			file, openErr := os.Open(flagFile)
			if openErr != nil {
				log.Fatal().Err(openErr).Msg("could not open evidence file")
			}
			defer file.Close()
			id, receipt, err = s.orchestrator.SubmitEvidenceFile(cmd.Context(), flagCampaignID, file, flagSeverity, flagDescription)
		} else {
			hash, parseErr := parseHash(flagHash)
			if parseErr != nil {
				log.Fatal().Err(parseErr).Msg("invalid evidence hash")
			}
			id, receipt, err = s.orchestrator.SubmitEvidence(cmd.Context(), lifecycle.NewEvidence{
				CampaignID:  flagCampaignID,
				Hash:        hash,
				Severity:    flagSeverity,
				Description: flagDescription,
			})
		}
		if err != nil {
			fatal(err, "could not submit evidence")
		}
		var response rest.Receipt
		response.Build(receipt)
		response.EvidenceID = id
		prettyPrint(response)
	},
}

var evidenceShowCmd = &cobra.Command{
	Use:   "show <evidence-id>",
	Short: "show an evidence item with its phase and the actions available to this account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		view, err := s.orchestrator.Refresh(cmd.Context(), id)
		if err != nil {
			fatal(err, "could not read evidence")
		}
		var response rest.View
		response.Build(view)
		prettyPrint(response)
	},
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "list the evidence of a submitter",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := mustInitServices(cmd.Context())
		defer s.Close()

		submitter := s.orchestrator.Account()
		if flagSubmitter != "" {
			if !common.IsHexAddress(flagSubmitter) {
				log.Fatal().Str("submitter", flagSubmitter).Msg("invalid submitter address")
			}
			submitter = common.HexToAddress(flagSubmitter)
		}
		evidence, err := s.orchestrator.SubmitterEvidence(cmd.Context(), submitter)
		if err != nil {
			if len(evidence) == 0 {
				fatal(err, "could not list evidence")
			}
			log.Warn().Err(err).Msg("some evidence could not be read")
		}
		printEvidence(evidence)
	},
}

var evidenceRequestCmd = &cobra.Command{
	Use:   "request <evidence-id> <severity|description|bounty>",
	Short: "request public decryption of a field",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, field := mustParseIDAndField(args)
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.RequestDecryption(cmd.Context(), id, field)
		if err != nil {
			fatal(err, "could not request decryption")
		}
		printReceipt(receipt)

		if flagWait {
			log.Info().Uint32("evidence_id", id).Str("field", field.String()).Msg("waiting for decryption")
			if _, err := s.orchestrator.WaitDecryptable(cmd.Context(), id, field); err != nil {
				fatal(err, "field did not become decryptable")
			}
			log.Info().Uint32("evidence_id", id).Str("field", field.String()).Msg("field is decryptable")
		}
	},
}

var evidencePreviewCmd = &cobra.Command{
	Use:   "preview <evidence-id> <severity|description|bounty>",
	Short: "decrypt a publicly decryptable field",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, field := mustParseIDAndField(args)
		s := mustInitServices(cmd.Context())
		defer s.Close()

		if flagWait {
			if _, err := s.orchestrator.WaitDecryptable(cmd.Context(), id, field); err != nil {
				fatal(err, "field did not become decryptable")
			}
		}
		preview, err := s.orchestrator.Preview(cmd.Context(), id, field)
		if err != nil {
			fatal(err, "could not decrypt field")
		}
		var response rest.Preview
		response.Build(preview)
		prettyPrint(response)
	},
}

var evidenceValidateCmd = &cobra.Command{
	Use:   "validate <evidence-id>",
	Short: "validate evidence and assign its bounty",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		bounty, err := bounzy.ParseEther(flagBounty)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid bounty")
		}
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.Validate(cmd.Context(), id, bounty)
		if err != nil {
			fatal(err, "could not validate evidence")
		}
		printReceipt(receipt)
	},
}

var evidenceDeclineCmd = &cobra.Command{
	Use:   "decline <evidence-id>",
	Short: "decline evidence",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.Decline(cmd.Context(), id, flagReason)
		if err != nil {
			fatal(err, "could not decline evidence")
		}
		printReceipt(receipt)
	},
}

var evidenceClaimCmd = &cobra.Command{
	Use:   "claim <evidence-id>",
	Short: "claim the bounty of validated evidence",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		receipt, err := s.orchestrator.Claim(cmd.Context(), id)
		if err != nil {
			fatal(err, "could not claim bounty")
		}
		printReceipt(receipt)
	},
}

var evidenceReasonCmd = &cobra.Command{
	Use:   "reason <evidence-id>",
	Short: "show why evidence was declined",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		reason, err := s.orchestrator.DeclinedReason(cmd.Context(), id)
		if err != nil {
			fatal(err, "could not read declined reason")
		}
		prettyPrint(rest.DeclinedReason{EvidenceID: id, Reason: reason})
	},
}

var evidenceActivitiesCmd = &cobra.Command{
	Use:   "activities <evidence-id>",
	Short: "list the transactions this client sent for an evidence item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := mustParseID(args[0])
		s := mustInitServices(cmd.Context())
		defer s.Close()

		activities, err := s.orchestrator.Activities(id)
		if err != nil {
			log.Fatal().Err(err).Msg("could not read activity journal")
		}
		response := make([]rest.Activity, len(activities))
		for i, activity := range activities {
			response[i].Build(activity)
		}
		prettyPrint(response)
	},
}

func mustParseIDAndField(args []string) (uint32, bounzy.Field) {
	id := mustParseID(args[0])
	field, err := bounzy.ParseField(args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid field")
	}
	return id, field
}

// parseHash accepts a hex encoded digest of at most 32 bytes, 0x prefix optional.
func parseHash(raw string) (*uint256.Int, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("evidence hash is not hex encoded: %w", err)
	}
	if len(b) == 0 || len(b) > 32 {
		return nil, fmt.Errorf("evidence hash must be 1 to 32 bytes, got %d", len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}
