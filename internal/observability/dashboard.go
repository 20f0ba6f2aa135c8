package observability

import "time"

// RefreshCompleted records one snapshot cycle.
func (m *Metrics) RefreshCompleted(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.refreshRuns.WithLabelValues(status).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}

// PushMessage counts an inbound push message by kind (sale, ignored, malformed).
func (m *Metrics) PushMessage(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.pushMessages.WithLabelValues(kind).Inc()
}

// LinkChanged flips the link state gauge to the given state.
func (m *Metrics) LinkChanged(state string) {
	if m == nil {
		return
	}
	for _, s := range linkStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.linkState.WithLabelValues(s).Set(v)
	}
}

// Reconnected counts a push stream that came back after dropping.
func (m *Metrics) Reconnected() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
