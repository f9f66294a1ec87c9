package telemetry

import (
	"testing"

	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/flowtest"
)

func TestDecodeLinkRows(t *testing.T) {
	payload := []byte("timestamp,throughput,queueDepth\n" +
		"0.0,10.5,1\n" +
		"0.1,20.25,2\n" +
		"0.2,30.0,3\n")

	rows, err := DecodeLinkRows("r", payload)
	if err != nil {
		t.Fatalf("DecodeLinkRows: %v", err)
	}

	flowtest.WantFloats(t, "timestamps", rows.Timestamps, []float64{0, 0.1, 0.2})
	flowtest.WantFloats(t, "throughput", rows.Throughput, []float64{10.5, 20.25, 30})
	flowtest.WantFloats(t, "queueDepth", rows.QueueDepth, []float64{1, 2, 3})
}

func TestDecodeScalarRows(t *testing.T) {
	payload := []byte("timestamp,value\n" +
		"1.0, 42\n" + // leading space is tolerated
		"2.0,43.5\n")

	rows, err := DecodeScalarRows("r", payload)
	if err != nil {
		t.Fatalf("DecodeScalarRows: %v", err)
	}

	flowtest.WantFloats(t, "timestamps", rows.Timestamps, []float64{1, 2})
	flowtest.WantFloats(t, "values", rows.Values, []float64{42, 43.5})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{
			name:    "empty payload",
			payload: "",
			want:    errors.ErrEmptySeries,
		},
		{
			name:    "header only",
			payload: "timestamp,throughput,queueDepth\n",
			want:    errors.ErrEmptySeries,
		},
		{
			name:    "wrong column count",
			payload: "timestamp,throughput,queueDepth\n1,2\n",
			want:    errors.ErrMalformedPayload,
		},
		{
			name:    "non numeric field",
			payload: "timestamp,throughput,queueDepth\n1,abc,3\n",
			want:    errors.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLinkRows("r", []byte(tt.payload))
			if err == nil {
				t.Fatal("decode accepted a bad payload")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeScalarRejectsLinkShape(t *testing.T) {
	payload := []byte("timestamp,throughput,queueDepth\n1,2,3\n")
	if _, err := DecodeScalarRows("r", payload); !errors.Is(err, errors.ErrMalformedPayload) {
		t.Errorf("error = %v, want ErrMalformedPayload", err)
	}
}
