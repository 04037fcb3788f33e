// Package pairing completes the pairing of a companion device.
//
// CompletePairing consumes the pair-success stanza relayed by the server once the primary
// device scanned the pairing QR code. It authenticates the pairing record, co-signs it and
// returns the acknowledgment stanza together with the credentials.Delta to persist.
// CompletePairing does no I/O, the caller sends the reply and applies the delta.
package pairing

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"code.linkpair.org/golang/internal/observability"
	"code.linkpair.org/golang/internal/replay"
	"code.linkpair.org/golang/pkg/adv"
	"code.linkpair.org/golang/pkg/credentials"
	"code.linkpair.org/golang/pkg/jid"
	"code.linkpair.org/golang/pkg/stanza"
)

type (
	ResultingIdentity = credentials.Identity
	CredentialDelta   = credentials.Delta
	Me                = credentials.Me
)

// Result holds the outcome of a successful pairing.
type Result struct {
	Delta CredentialDelta
	Reply *stanza.Node
}

// pairSuccess holds the fields extracted from a pair-success stanza.
type pairSuccess struct {
	id       string
	record   []byte
	jid      jid.JID
	lid      jid.JID
	bizName  string
	platform string
}

// CompletePairing verifies the pairing record carried by node and returns the reply & delta.
//
// It errors with ErrMalformedStanza if node lacks a required element, no cryptographic
// operation runs in this case. It errors with ErrVerificationFailed if the record does not
// verify. local & current are not modified.
func CompletePairing(ctx context.Context, node *stanza.Node, local adv.LocalIdentity, current []ResultingIdentity) (Result, error) {
	ctx = withAttempt(ctx)
	result, err := completeAndLog(ctx, node, local, current)
	observability.GetObservability(ctx).Metric().PairingResult(resultOf(err))

	return result, err
}

// withAttempt returns a Context whose logger carries a new pairing attempt id.
func withAttempt(ctx context.Context) context.Context {
	obs := observability.GetObservability(ctx).With("pId", uuid.NewString())
	return observability.SetObservability(ctx, obs)
}

// completeAndLog runs completePairing and logs its outcome, it records no metric.
func completeAndLog(ctx context.Context, node *stanza.Node, local adv.LocalIdentity, current []ResultingIdentity) (Result, error) {
	log := observability.GetObservability(ctx).Log()

	result, err := completePairing(ctx, node, local, current)
	switch {
	case nil == err:
		log.Info("pairing verified", "me", result.Delta.Me.ID.String(), "platform", result.Delta.Platform)
	case errors.Is(err, adv.ErrDeviceSigningFailure):
		log.Error("pairing failed, local signing fault", "result", resultOf(err), "error", err)
	default:
		log.Warn("pairing failed", "result", resultOf(err), "error", err)
	}

	return result, err
}

func completePairing(ctx context.Context, node *stanza.Node, local adv.LocalIdentity, current []ResultingIdentity) (Result, error) {
	log := observability.GetObservability(ctx).Log()

	ps, err := extract(node)
	if nil != err {
		return Result{}, err
	}
	log.Debug("extracted pair-success", "id", ps.id, "jid", ps.jid.String(), "lid", ps.lid.String())

	rec, err := adv.UnmarshalPairingRecord(ps.record)
	if nil != err {
		return Result{}, flagError(ErrVerificationFailed, err, "failed decoding device-identity")
	}
	log.Debug("decoded pairing record", "accountType", rec.AccountType.String())

	ci, err := adv.VerifyAndCosign(rec, local)
	if nil != err {
		return Result{}, flagError(ErrVerificationFailed, err, "failed adv.VerifyAndCosign")
	}
	log.Debug("co-signed identity record", "keyIndex", ci.Body.KeyIndex, "deviceType", ci.Body.DeviceType.String())

	linked := ResultingIdentity{LinkedId: ps.lid.ToNonAD(), SigningKey: ci.LinkedIdentityKey}

	srzrec, err := adv.MarshalSignedIdentity(ci.Record, adv.ForTransmission)
	if nil != err {
		return Result{}, wrapError(err, "failed serializing co-signed record")
	}

	reply := stanza.Node{
		Tag: "iq",
		Attrs: stanza.Attrs{
			"to":   jid.ServerJID.String(),
			"type": "result",
			"id":   ps.id,
		},
		Content: []stanza.Node{{
			Tag: "pair-device-sign",
			Content: []stanza.Node{{
				Tag:     "device-identity",
				Attrs:   stanza.Attrs{"key-index": strconv.FormatUint(uint64(ci.Body.KeyIndex), 10)},
				Content: srzrec,
			}},
		}},
	}

	delta := CredentialDelta{
		Account:            ci.Record,
		Me:                 Me{ID: ps.jid, Name: ps.bizName, LinkedId: ps.lid},
		AppendedIdentities: credentials.MergeIdentities(current, linked),
		Platform:           ps.platform,
	}

	return Result{Delta: delta, Reply: &reply}, nil
}

// extract reads the pair-success fields of node.
func extract(node *stanza.Node) (pairSuccess, error) {
	var rv pairSuccess
	if nil == node {
		return rv, malformed(stanza.Node{}, "stanza")
	}
	ps, found := node.ChildByTag("pair-success")
	if !found {
		return rv, malformed(*node, "pair-success")
	}
	identity, found := ps.ChildByTag("device-identity")
	if !found {
		return rv, malformed(*node, "pair-success/device-identity")
	}
	device, found := ps.ChildByTag("device")
	if !found {
		return rv, malformed(*node, "pair-success/device")
	}

	var exists bool
	rv.id, exists = node.LookupAttr("id")
	if !exists {
		return rv, malformed(*node, "id attribute")
	}
	rv.record = identity.Bytes()
	if 0 == len(rv.record) {
		return rv, malformed(*node, "device-identity content")
	}

	var err error
	rv.jid, err = jid.Parse(device.Attr("jid"))
	if nil != err {
		return rv, wrapError(&MalformedStanzaError{Node: *node, Missing: "device jid"}, "invalid device jid, %v", err)
	}
	rv.lid, err = jid.Parse(device.Attr("lid"))
	if nil != err {
		return rv, wrapError(&MalformedStanzaError{Node: *node, Missing: "device lid"}, "invalid device lid, %v", err)
	}

	if biz := ps.OptionalChildByTag("biz"); nil != biz {
		rv.bizName = biz.Attr("name")
	}
	if platform := ps.OptionalChildByTag("platform"); nil != platform {
		rv.platform = platform.Attr("name")
	}

	return rv, nil
}

func malformed(node stanza.Node, missing string) error {
	return wrapError(&MalformedStanzaError{Node: node, Missing: missing}, "malformed pair-success stanza")
}

// resultOf classifies err into an observability result label.
func resultOf(err error) string {
	switch {
	case nil == err:
		return observability.ResultSuccess
	case errors.Is(err, ErrMalformedStanza):
		return observability.ResultMalformed
	case errors.Is(err, adv.ErrAccountHmacInvalid):
		return observability.ResultHmacInvalid
	case errors.Is(err, adv.ErrStructuralDecode):
		return observability.ResultDecodeError
	case errors.Is(err, adv.ErrAccountSignatureInvalid):
		return observability.ResultSignatureInvalid
	case errors.Is(err, adv.ErrDeviceSigningFailure):
		return observability.ResultSigningFailure
	case errors.Is(err, replay.ErrReplayed):
		return observability.ResultReplayed
	case errors.Is(err, ErrStore):
		return observability.ResultStoreError
	default:
		return observability.ResultInternalError
	}
}
