package decoder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/eqstudio/eqstudio/internal/domain"
)

// CSVDecoder reads sampled traces such as ECG recordings. Rows are either
// "time,value" or a single value column; a non-numeric first row is treated
// as a header. With a time column the sample rate is derived from the mean
// time step, otherwise SampleRate is used.
type CSVDecoder struct {
	SampleRate float64
}

func (d *CSVDecoder) Format() domain.SourceFormat {
	return domain.FormatCSV
}

func (d *CSVDecoder) Decode(reader io.ReadSeeker) (*Result, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var times, values []float64
	row := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		if blank(record) {
			continue
		}
		row++

		nums, err := parseRow(record)
		if err != nil {
			// The first data row may be a header.
			if row == 1 {
				continue
			}
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}
		if len(nums) >= 2 {
			times = append(times, nums[0])
			values = append(values, nums[1])
		} else {
			values = append(values, nums[0])
		}
	}
	if len(values) == 0 {
		return nil, ErrEmptyStream
	}

	rate := d.SampleRate
	if len(times) == len(values) && len(times) >= 2 {
		span := times[len(times)-1] - times[0]
		if span <= 0 {
			return nil, fmt.Errorf("%w: time column is not increasing", ErrInvalidData)
		}
		rate = float64(len(times)-1) / span
	}
	if !(rate > 0) {
		return nil, fmt.Errorf("%w: no sample rate for trace", ErrInvalidData)
	}

	return &Result{
		Samples: values,
		Format: AudioFormat{
			SampleRate: rate,
			Channels:   1,
			Encoding:   "csv",
		},
		Metadata: &Metadata{Duration: durationOf(len(values), rate)},
	}, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func parseRow(record []string) ([]float64, error) {
	nums := make([]float64, 0, 2)
	for _, field := range record {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("value %q is not finite", field)
		}
		nums = append(nums, v)
		if len(nums) == 2 {
			break
		}
	}
	if len(nums) == 0 {
		return nil, errors.New("empty row")
	}
	return nums, nil
}
