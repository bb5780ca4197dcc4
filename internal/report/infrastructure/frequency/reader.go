package frequency

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gocarina/gocsv"

	dataset "flexmarket-report/internal/dataset/domain"
	"flexmarket-report/internal/table"
)

// Output columns.
const (
	ColTime      = "dtm"
	ColFrequency = "f"
)

var ErrBadTimestamp = errors.New("frequency: bad timestamp")

// Timestamp is a sample time in any layout table.ParseTime accepts.
type Timestamp struct {
	time.Time
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (t *Timestamp) UnmarshalCSV(s string) error {
	ts, ok := table.ParseTime(s)
	if !ok {
		return fmt.Errorf("%w %q", ErrBadTimestamp, s)
	}
	t.Time = ts
	return nil
}

// Sample is one row of a system frequency file: a timestamp and the
// measured frequency in Hz, usually one per second.
type Sample struct {
	Time      Timestamp `csv:"dtm"`
	Frequency float64   `csv:"f"`
}

// ReadFile reads the samples of a CSV file dated within rng.
func ReadFile(path string, rng dataset.Range) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frequency: open %s: %w", path, err)
	}
	defer f.Close()
	t, err := Read(f, rng)
	if err != nil {
		return nil, fmt.Errorf("frequency: %s: %w", path, err)
	}
	return t, nil
}

// Read decodes samples and keeps those dated within rng, in file order.
func Read(r io.Reader, rng dataset.Range) (*table.Table, error) {
	var samples []Sample
	if err := gocsv.Unmarshal(r, &samples); err != nil {
		return nil, err
	}
	b := table.NewBuilder(ColTime, ColFrequency)
	for _, s := range samples {
		d := civil.DateOf(s.Time.Time)
		if d.Before(rng.From) || rng.To.Before(d) {
			continue
		}
		b.Add(table.Time(s.Time.Time), table.Num(s.Frequency))
	}
	return b.Table(), nil
}
