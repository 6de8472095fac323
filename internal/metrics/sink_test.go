package metrics

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		want       string
	}{
		{"success", 200, nil, StatusClass2xx},
		{"created", 201, nil, StatusClass2xx},
		{"not found", 404, nil, StatusClass4xx},
		{"rate limited", 429, nil, StatusClass4xx},
		{"server error", 500, nil, StatusClass5xx},
		{"bad gateway", 502, nil, StatusClass5xx},
		{"zero status", 0, nil, StatusClassOtherError},
		{"timeout", 0, errors.New("context deadline exceeded"), StatusClassTimeout},
		{"client timeout", 0, errors.New("Client.Timeout exceeded"), StatusClassTimeout},
		{"refused", 0, errors.New("dial tcp: connection refused"), StatusClassConnectionError},
		{"dns", 0, errors.New("no such host"), StatusClassConnectionError},
		{"other", 0, errors.New("boom"), StatusClassOtherError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.statusCode, tt.err); got != tt.want {
				t.Errorf("ClassifyStatus(%d, %v) = %q, want %q", tt.statusCode, tt.err, got, tt.want)
			}
		})
	}
}

// Compile-time checks that both implementations satisfy Sink.
var (
	_ Sink = (*NoopSink)(nil)
	_ Sink = (*PrometheusSink)(nil)
)
