package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pairing attempt results, used as "result" label values.
const (
	ResultSuccess          = "success"
	ResultMalformed        = "malformed"
	ResultHmacInvalid      = "hmac_invalid"
	ResultDecodeError      = "decode_error"
	ResultSignatureInvalid = "signature_invalid"
	ResultSigningFailure   = "signing_failure"
	ResultStoreError       = "store_error"
	ResultInternalError    = "internal_error"
	ResultReplayed         = "replayed"
)

// Metrics holds the prometheus collectors of the pairing core.
// nil *Metrics are safe to use, they record nothing.
type Metrics struct {
	PairingAttempts *prometheus.CounterVec
}

// NewMetrics returns Metrics whose collectors are registered in reg.
// If reg is nil, collectors are left unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	rv := &Metrics{
		PairingAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linkpair",
				Name:      "pairing_attempts_total",
				Help:      "Number of pair-success stanzas processed, by result.",
			},
			[]string{"result"},
		),
	}
	if nil != reg {
		err := reg.Register(rv.PairingAttempts)
		if nil != err {
			return nil, err
		}
	}

	return rv, nil
}

// PairingResult increments the pairing attempt counter for result.
func (self *Metrics) PairingResult(result string) {
	if nil == self || nil == self.PairingAttempts {
		return
	}
	self.PairingAttempts.WithLabelValues(result).Inc()
}
