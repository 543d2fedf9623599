package data

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// ReadDelimited parses a tab-delimited table: a header row whose first cell
// labels the ID column and whose remaining cells name data points, followed by
// one row per instance. Empty cells and "?" are missing values.
func ReadDelimited(r io.Reader) (*Collection, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if len(header) < 2 {
		return nil, errors.NewValueError("ReadDelimited", "header must name an ID column and at least one data point")
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	c := NewCollection()
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read line %d", line)
		}
		id := strings.TrimSpace(record[0])
		if id == "" {
			return nil, errors.NewValueError("ReadDelimited", "empty instance ID")
		}
		c.AddInstance(id)
		for i := 1; i < len(record) && i < len(names); i++ {
			c.Add(names[i], id, record[i])
		}
	}
	return c, nil
}

// LoadDelimited reads a tab-delimited file with ReadDelimited.
func LoadDelimited(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	c, err := ReadDelimited(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return c, nil
}

// WriteDelimited writes c in the format ReadDelimited parses, with idLabel
// heading the ID column. Missing values are written as "?".
func WriteDelimited(w io.Writer, c *Collection, idLabel string) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	names := c.DataPointNames()
	if err := writer.Write(append([]string{idLabel}, names...)); err != nil {
		return errors.Wrap(err, "write header")
	}
	row := make([]string, len(names)+1)
	for _, id := range c.IDs() {
		row[0] = id
		for i, name := range names {
			row[i+1] = c.GetValue(id, name)
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "write %s", id)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush")
}

// SaveDelimited writes c to path with WriteDelimited.
func SaveDelimited(path string, c *Collection, idLabel string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteDelimited(f, c, idLabel); err != nil {
		f.Close()
		return errors.Wrapf(err, "save %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
