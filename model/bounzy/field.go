package bounzy

import (
	"fmt"
)

// Field names one of the encrypted evidence values that can be made publicly
// decryptable.
type Field uint8

const (
	FieldSeverity Field = iota
	FieldDescription
	FieldBounty
)

// Fields lists every decryptable field.
var Fields = []Field{FieldSeverity, FieldDescription, FieldBounty}

func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown evidence field %q", name)
}

func (f Field) String() string {
	switch f {
	case FieldSeverity:
		return "severity"
	case FieldDescription:
		return "description"
	case FieldBounty:
		return "bounty"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}

// RequestAction returns the action that asks the contract to make this field
// publicly decryptable.
func (f Field) RequestAction() Action {
	switch f {
	case FieldSeverity:
		return ActionRequestSeverityDecryption
	case FieldDescription:
		return ActionRequestDescriptionDecryption
	default:
		return ActionRequestBountyDecryption
	}
}

// PreviewAction returns the action that reads the decrypted value of this field.
func (f Field) PreviewAction() Action {
	switch f {
	case FieldSeverity:
		return ActionPreviewSeverity
	case FieldDescription:
		return ActionPreviewDescription
	default:
		return ActionPreviewBounty
	}
}

func (f Field) MarshalText() ([]byte, error) {
	if f > FieldBounty {
		return nil, fmt.Errorf("unknown evidence field %d", uint8(f))
	}
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
