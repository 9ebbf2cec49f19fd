package codec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wippyai/region-codec/errors"
)

// Metrics counts codec activity. A nil *Metrics records nothing.
type Metrics struct {
	recordsEncoded prometheus.Counter
	bytesEncoded   prometheus.Counter
	encodeErrors   *prometheus.CounterVec
	recordsDecoded prometheus.Counter
	bytesDecoded   prometheus.Counter
	decodeErrors   *prometheus.CounterVec
}

// NewMetrics creates the codec collectors and registers them with reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		recordsEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "region",
			Subsystem: "codec",
			Name:      "records_encoded_total",
			Help:      "Records appended to a region",
		}),
		bytesEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "region",
			Subsystem: "codec",
			Name:      "bytes_encoded_total",
			Help:      "Bytes appended to regions, including alignment padding",
		}),
		encodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "region",
			Subsystem: "codec",
			Name:      "encode_errors_total",
			Help:      "Rejected encodes by error kind",
		}, []string{"kind"}),
		recordsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "region",
			Subsystem: "codec",
			Name:      "records_decoded_total",
			Help:      "Records fixed up in place",
		}),
		bytesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "region",
			Subsystem: "codec",
			Name:      "bytes_decoded_total",
			Help:      "Bytes consumed by successful decodes",
		}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "region",
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Rejected decodes by error kind",
		}, []string{"kind"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.recordsEncoded, m.bytesEncoded, m.encodeErrors,
		m.recordsDecoded, m.bytesDecoded, m.decodeErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) encoded(n int) {
	if m == nil {
		return
	}
	m.recordsEncoded.Inc()
	m.bytesEncoded.Add(float64(n))
}

func (m *Metrics) decoded(n int) {
	if m == nil {
		return
	}
	m.recordsDecoded.Inc()
	m.bytesDecoded.Add(float64(n))
}

func (m *Metrics) encodeFailed(err error) {
	if m == nil {
		return
	}
	m.encodeErrors.WithLabelValues(kindLabel(err)).Inc()
}

func (m *Metrics) decodeFailed(err error) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(kindLabel(err)).Inc()
}

func kindLabel(err error) string {
	if kind, ok := errors.KindOf(err); ok {
		return string(kind)
	}
	return "other"
}
