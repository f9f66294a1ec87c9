// Package telemetry decodes the two CSV resource shapes the data server
// produces: per-link direction rows and per-host scalar rows.
//
// Both shapes carry a header row, which is skipped. Any structural problem
// (wrong column count, unparseable number) yields ErrMalformedPayload so
// the aligner treats the resource exactly like a failed fetch.
package telemetry

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flowscope/flowscope/internal/errors"
)

// LinkRows is the decoded content of one link direction resource:
// (timestamp, throughput, queueDepth) per row.
type LinkRows struct {
	Timestamps []float64
	Throughput []float64
	QueueDepth []float64
}

// ScalarRows is the decoded content of one host scalar resource:
// (timestamp, value) per row.
type ScalarRows struct {
	Timestamps []float64
	Values     []float64
}

// DecodeLinkRows decodes a link direction payload.
func DecodeLinkRows(resource string, payload []byte) (LinkRows, error) {
	rows, err := decode(resource, payload, 3)
	if err != nil {
		return LinkRows{}, err
	}
	return LinkRows{
		Timestamps: rows[0],
		Throughput: rows[1],
		QueueDepth: rows[2],
	}, nil
}

// DecodeScalarRows decodes a host scalar payload.
func DecodeScalarRows(resource string, payload []byte) (ScalarRows, error) {
	rows, err := decode(resource, payload, 2)
	if err != nil {
		return ScalarRows{}, err
	}
	return ScalarRows{
		Timestamps: rows[0],
		Values:     rows[1],
	}, nil
}

// decode reads a CSV payload into ncols parallel columns, skipping the
// header row.
func decode(resource string, payload []byte, ncols int) ([][]float64, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = ncols
	r.TrimLeadingSpace = true

	// Header row is present and skipped.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(errors.ErrEmptySeries, resource)
		}
		return nil, errors.NewMalformed(resource, err.Error())
	}

	cols := make([][]float64, ncols)
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewMalformed(resource, err.Error())
		}
		row++
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.NewMalformed(resource,
					fmt.Sprintf("row %d col %d: %v", row, i, err))
			}
			cols[i] = append(cols[i], v)
		}
	}

	if row == 0 {
		return nil, errors.Wrap(errors.ErrEmptySeries, resource)
	}
	return cols, nil
}
