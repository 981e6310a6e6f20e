package contracttest

import (
	"fmt"

	"github.com/bounzy/bounzy-go/model/bounzy"
)

type decryptionRequest struct {
	evidenceID uint32
	field      bounzy.Field
}

// Oracle flips decryptable flags for requested fields, the way the decryption
// oracle does on chain some time after a request was mined. By default it
// answers at the end of the block; in manual mode requests wait for Reveal.
//
// All state is guarded by the chain mutex.
type Oracle struct {
	chain   *Chain
	manual  bool
	pending []decryptionRequest
}

func newOracle(chain *Chain) *Oracle {
	return &Oracle{chain: chain}
}

// SetManual switches between answering requests at the end of each block and
// answering only on Reveal.
func (o *Oracle) SetManual(manual bool) {
	o.chain.mu.Lock()
	defer o.chain.mu.Unlock()
	o.manual = manual
}

// Pending returns the number of unanswered requests.
func (o *Oracle) Pending() int {
	o.chain.mu.Lock()
	defer o.chain.mu.Unlock()
	return len(o.pending)
}

// Reveal answers the pending request for a field.
func (o *Oracle) Reveal(evidenceID uint32, field bounzy.Field) error {
	o.chain.mu.Lock()
	defer o.chain.mu.Unlock()

	for i, req := range o.pending {
		if req.evidenceID == evidenceID && req.field == field {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return o.reveal(req)
		}
	}
	return fmt.Errorf("no pending %s request for evidence %d", field, evidenceID)
}

// RevealAll answers every pending request and returns how many it answered.
func (o *Oracle) RevealAll() (int, error) {
	o.chain.mu.Lock()
	defer o.chain.mu.Unlock()
	return o.revealAll()
}

func (o *Oracle) revealAll() (int, error) {
	pending := o.pending
	o.pending = nil
	for _, req := range pending {
		if err := o.reveal(req); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

// request records a decryption request. Repeated requests for the same field
// are ignored.
func (o *Oracle) request(evidenceID uint32, field bounzy.Field) {
	e := o.chain.state.evidence[evidenceID]
	if flag(e, field) != nil && *flag(e, field) {
		return
	}
	for _, req := range o.pending {
		if req.evidenceID == evidenceID && req.field == field {
			return
		}
	}
	o.pending = append(o.pending, decryptionRequest{evidenceID: evidenceID, field: field})
}

func (o *Oracle) afterBlock() {
	if o.manual {
		return
	}
	if _, err := o.revealAll(); err != nil {
		panic(err)
	}
}

func (o *Oracle) reveal(req decryptionRequest) error {
	e, ok := o.chain.state.evidence[req.evidenceID]
	if !ok {
		return fmt.Errorf("evidence %d: %w", req.evidenceID, ErrUnknownEvidence)
	}
	var handle bounzy.Handle
	switch req.field {
	case bounzy.FieldSeverity:
		handle = e.severity
	case bounzy.FieldDescription:
		handle = e.description
	case bounzy.FieldBounty:
		handle = e.bounty
	}
	if err := o.chain.relayer.AllowPublicDecryption(handle); err != nil {
		return fmt.Errorf("could not allow decryption of %s for evidence %d: %w", req.field, req.evidenceID, err)
	}
	*flag(e, req.field) = true
	return nil
}

func flag(e *evidenceState, field bounzy.Field) *bool {
	switch field {
	case bounzy.FieldSeverity:
		return &e.severityDecryptable
	case bounzy.FieldDescription:
		return &e.descriptionDecryptable
	case bounzy.FieldBounty:
		return &e.bountyDecryptable
	default:
		return nil
	}
}
