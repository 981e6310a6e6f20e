package bounzy

const (
	// MinSeverity and MaxSeverity bound the severity scale used by campaigns
	// and submissions.
	MinSeverity = 1
	MaxSeverity = 10

	// DescriptionLength is the number of description bytes that fit into a
	// single 256-bit ciphertext.
	DescriptionLength = 32

	// DefaultDeclineReason is used when a validator declines without a reason.
	DefaultDeclineReason = "Evidence does not meet criteria"
)
