package commit

import (
	"io"
	"slices"
	"strings"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// FeatureListCodec stores a ranked feature list as one comma-joined line, best first.
type FeatureListCodec struct{}

// Encode implements Codec.
func (FeatureListCodec) Encode(w io.Writer, features []string) error {
	for _, f := range features {
		if strings.Contains(f, ",") {
			return errors.NewValueError("FeatureListCodec", "feature name contains a comma: "+f)
		}
	}
	_, err := io.WriteString(w, strings.Join(features, ",")+"\n")
	return err
}

// Decode implements Codec.
func (FeatureListCodec) Decode(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return []string{}, nil
	}
	return strings.Split(line, ","), nil
}

// EqualFeatures compares two feature lists element by element.
func EqualFeatures(a, b []string) bool {
	return slices.Equal(a, b)
}

// TextCodec stores free text as is.
type TextCodec struct{}

// Encode implements Codec.
func (TextCodec) Encode(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

// Decode implements Codec.
func (TextCodec) Decode(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	return string(raw), err
}

// EqualText compares two strings.
func EqualText(a, b string) bool {
	return a == b
}
