package pairing

import (
	"context"

	"code.linkpair.org/golang/internal/observability"
	"code.linkpair.org/golang/internal/replay"
	"code.linkpair.org/golang/pkg/credentials"
	"code.linkpair.org/golang/pkg/stanza"
)

// PairerCfg holds the configuration of a Pairer.
type PairerCfg struct {
	Store credentials.DeviceStore

	// Replay, if set, rejects pair-success stanzas whose id was already paired.
	Replay *replay.Guard
}

// Check returns an error if the PairerCfg is invalid.
func (self PairerCfg) Check() error {
	if nil == self.Store {
		return newError("nil Store")
	}
	return nil
}

// Pairer completes pairing for the Device of its Store.
type Pairer struct {
	store  credentials.DeviceStore
	replay *replay.Guard
}

// NewPairer returns a Pairer configured with cfg.
func NewPairer(cfg PairerCfg) (*Pairer, error) {
	err := cfg.Check()
	if nil != err {
		return nil, flagError(ErrValidation, err, "invalid cfg")
	}
	return &Pairer{store: cfg.Store, replay: cfg.Replay}, nil
}

// HandlePairSuccess completes pairing with node and applies the resulting delta to the Store.
// It returns the stanza to send back, an error acknowledgment if pairing failed.
// One pairing attempt result is recorded per call.
func (self *Pairer) HandlePairSuccess(ctx context.Context, node *stanza.Node) (*stanza.Node, error) {
	ctx = withAttempt(ctx)
	reply, err := self.handlePairSuccess(ctx, node)
	observability.GetObservability(ctx).Metric().PairingResult(resultOf(err))

	return reply, err
}

func (self *Pairer) handlePairSuccess(ctx context.Context, node *stanza.Node) (*stanza.Node, error) {
	var id string
	if nil != node {
		id = node.Attr("id")
	}

	if nil != self.replay {
		err := self.replay.Reserve(id)
		if nil != err {
			return ErrorReply(id, err), wrapError(err, "replayed pair-success")
		}
	}

	reply, err := self.pair(ctx, id, node)
	if nil != err && nil != self.replay {
		self.replay.Release(id)
	}

	return reply, err
}

func (self *Pairer) pair(ctx context.Context, id string, node *stanza.Node) (*stanza.Node, error) {
	dev, err := self.store.LoadDevice(ctx)
	if nil != err {
		return ErrorReply(id, err), flagError(ErrStore, err, "failed loading device")
	}

	result, err := completeAndLog(ctx, node, dev.LocalIdentity(), dev.Identities)
	if nil != err {
		return ErrorReply(id, err), err
	}

	err = self.store.ApplyPairing(ctx, result.Delta)
	if nil != err {
		observability.GetObservability(ctx).Log().Error("failed applying pairing delta", "error", err)
		return ErrorReply(id, err), flagError(ErrStore, err, "failed applying pairing delta")
	}

	return result.Reply, nil
}
