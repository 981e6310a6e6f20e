package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/sethvargo/go-retry"

	"github.com/bounzy/bounzy-go/model/bounzy"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe"
)

// Preview is the cleartext of a publicly decryptable field.
type Preview struct {
	EvidenceID uint32
	Field      bounzy.Field
	Handle     bounzy.Handle
	Value      *big.Int
	// Display is the value formatted for people: the severity as a number, the
	// bounty in ETH, the description as text.
	Display string
	// Cached is true if the preview was served without calling the relayer.
	Cached bool
}

func newPreview(evidenceID uint32, field bounzy.Field, handle bounzy.Handle, value *big.Int) *Preview {
	p := &Preview{
		EvidenceID: evidenceID,
		Field:      field,
		Handle:     handle,
		Value:      new(big.Int).Set(value),
	}
	switch field {
	case bounzy.FieldSeverity:
		p.Display = value.String()
	case bounzy.FieldBounty:
		p.Display = bounzy.FormatEther(value)
	case bounzy.FieldDescription:
		p.Display = fhe.DecodeDescription(value)
	}
	return p
}

func (p *Preview) copy(cached bool) *Preview {
	c := *p
	c.Value = new(big.Int).Set(p.Value)
	c.Cached = cached
	return &c
}

// RequestDecryption asks the contract to have the field flagged publicly
// decryptable. While the request is in flight a second one returns
// ErrActionInFlight; once it was confirmed, further requests return
// ErrDecryptionRequested until the oracle flagged the field. Neither sends a
// transaction.
func (o *Orchestrator) RequestDecryption(ctx context.Context, evidenceID uint32, field bounzy.Field) (*contract.Receipt, error) {
	action := field.RequestAction()
	release, err := o.acquire(evidenceID, action)
	if err != nil {
		return nil, err
	}
	defer release()

	ev, err := o.checkAllowed(ctx, evidenceID, action)
	if err != nil {
		return nil, err
	}
	if o.guard.isRequested(evidenceID, field) {
		o.metrics.ActionRejected(action.String(), "requested")
		return nil, fmt.Errorf("%s of evidence %d: %w", field, evidenceID, ErrDecryptionRequested)
	}

	receipt, err := o.transact(evidenceID, ev.CampaignID, action.String(), func() (*contract.Receipt, error) {
		switch field {
		case bounzy.FieldSeverity:
			return o.gateway.RequestSeverityDecryption(ctx, evidenceID)
		case bounzy.FieldDescription:
			return o.gateway.RequestDescriptionDecryption(ctx, evidenceID)
		default:
			return o.gateway.RequestBountyDecryption(ctx, evidenceID)
		}
	})
	if err != nil {
		return receipt, err
	}
	o.guard.markRequested(evidenceID, field)
	return receipt, nil
}

// Preview returns the cleartext of a decryptable field. Values never change
// once known, so the first successful decryption is cached and concurrent
// previews of the same handle share one relayer call.
func (o *Orchestrator) Preview(ctx context.Context, evidenceID uint32, field bounzy.Field) (*Preview, error) {
	ev, err := o.observe(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if !ev.Decryptable(field) {
		o.metrics.PreviewNotReady(field.String())
		return nil, fmt.Errorf("%s of evidence %d: %w", field, evidenceID, ErrNotDecryptable)
	}
	handle, err := o.handle(ctx, evidenceID, field)
	if err != nil {
		return nil, err
	}

	if preview, ok := o.previews.Get(handle); ok {
		o.metrics.PreviewServed(field.String(), true)
		return preview.copy(true), nil
	}

	shared := o.decrypts.DoChan(handle.Hex(), func() (interface{}, error) {
		// the call serves every waiting caller, so it is not bound to any of their contexts
		decryptCtx, cancel := context.WithTimeout(context.Background(), o.config.PreviewTimeout)
		defer cancel()
		preview, _, err := o.decrypt(decryptCtx, evidenceID, field, handle)
		return preview, err
	})
	var result interface{}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("preview of %s of evidence %d abandoned: %w", field, evidenceID, ctx.Err())
	case res := <-shared:
		result, err = res.Val, res.Err
	}
	if err != nil {
		if errors.Is(err, ErrNotDecryptable) {
			o.metrics.PreviewNotReady(field.String())
		}
		return nil, err
	}
	o.metrics.PreviewServed(field.String(), false)
	return result.(*Preview).copy(false), nil
}

// decrypt always calls the relayer. A successful result is cached for
// previews, and the proof is returned for the transaction that needs it.
func (o *Orchestrator) decrypt(ctx context.Context, evidenceID uint32, field bounzy.Field, handle bounzy.Handle) (*Preview, []byte, error) {
	decryption, err := o.encryptor.PublicDecrypt(ctx, handle)
	if err != nil {
		return nil, nil, fmt.Errorf("could not decrypt %s of evidence %d: %w", field, evidenceID, err)
	}
	if decryption.Empty() {
		return nil, nil, fmt.Errorf("relayer returned no value for %s of evidence %d: %w", field, evidenceID, ErrNotDecryptable)
	}
	value, ok := decryption.Value(handle)
	if !ok {
		return nil, nil, fmt.Errorf("%w: result does not contain handle %s", fhe.ErrDecryption, handle.TerminalString())
	}

	preview := newPreview(evidenceID, field, handle, value)
	o.previews.Add(handle, preview)
	return preview, decryption.DecryptionProof, nil
}

// cachedPreview returns a preview without any remote call, if one is known.
func (o *Orchestrator) cachedPreview(ev *bounzy.Evidence, field bounzy.Field) (*Preview, bool) {
	if !ev.Decryptable(field) {
		return nil, false
	}
	handle, ok := o.handles.Get(requestKey{ev.ID, field})
	if !ok {
		return nil, false
	}
	preview, ok := o.previews.Get(handle)
	if !ok {
		return nil, false
	}
	return preview.copy(true), true
}

// handle reads the ciphertext handle of a field. Handles never change once
// assigned, so non-zero handles are cached.
func (o *Orchestrator) handle(ctx context.Context, evidenceID uint32, field bounzy.Field) (bounzy.Handle, error) {
	key := requestKey{evidenceID, field}
	if handle, ok := o.handles.Get(key); ok {
		return handle, nil
	}

	var (
		handle bounzy.Handle
		err    error
	)
	switch field {
	case bounzy.FieldSeverity:
		handle, err = o.gateway.EvidenceSeverityHandle(ctx, evidenceID)
	case bounzy.FieldDescription:
		handle, err = o.gateway.DescriptionHandle(ctx, evidenceID)
	case bounzy.FieldBounty:
		handle, err = o.gateway.EvidenceBountyHandle(ctx, evidenceID)
	default:
		return bounzy.Handle{}, fmt.Errorf("unknown field %d: %w", field, ErrInvalidInput)
	}
	if err != nil {
		return bounzy.Handle{}, fmt.Errorf("could not read %s handle of evidence %d: %w", field, evidenceID, err)
	}
	if handle.IsZero() {
		return bounzy.Handle{}, fmt.Errorf("%s of evidence %d has no ciphertext: %w", field, evidenceID, ErrNotDecryptable)
	}
	o.handles.Add(key, handle)
	return handle, nil
}

// WaitDecryptable polls the evidence item until the field is decryptable. A
// flag is observed at most PollInterval after the oracle set it. Read
// failures are retried within the same attempt budget.
func (o *Orchestrator) WaitDecryptable(ctx context.Context, evidenceID uint32, field bounzy.Field) (*bounzy.Evidence, error) {
	var retries uint64
	if o.config.MaxPollAttempts > 0 {
		retries = o.config.MaxPollAttempts - 1
	}
	backoff := retry.WithMaxRetries(retries, retry.NewConstant(o.config.PollInterval))

	var result *bounzy.Evidence
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ev, err := o.observe(ctx, evidenceID)
		if err != nil {
			if Classify(err) == KindRead {
				o.log.Debug().Err(err).Uint32("evidence_id", evidenceID).Msg("read failed while polling, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		if !ev.Decryptable(field) {
			return retry.RetryableError(ErrNotDecryptable)
		}
		result = ev
		return nil
	})
	if errors.Is(err, ErrNotDecryptable) {
		return nil, fmt.Errorf("%s of evidence %d after %d polls: %w", field, evidenceID, o.config.MaxPollAttempts, ErrPollExhausted)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
