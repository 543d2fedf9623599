package commit

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func TestCommitFeatureList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proc", "relief", "OuterFold1", "OuterFold_SelectedFeatures.txt")
	features := []string{"gene7", "gene2", "gene10"}

	require.NoError(t, Commit[[]string](path, features, FeatureListCodec{}, EqualFeatures))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gene7,gene2,gene10\n", string(raw))

	got, ok, err := Load[[]string](path, FeatureListCodec{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, features, got)
	assert.True(t, Exists(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are renamed away")
}

func TestCommitPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OuterFold_Predictions.txt")
	classes := []string{"A", "B"}
	p := model.NewPredictions(classes,
		model.Prediction{InstanceID: "2", Actual: "B", Predicted: "A", Probabilities: []float64{0.6, 0.4}},
		model.Prediction{InstanceID: "1", Actual: "A", Predicted: "A"},
	)

	err := Commit[*model.Predictions](path, p, model.PredictionsCodec{Classes: classes},
		func(a, b *model.Predictions) bool { return a.Equal(b) })
	require.NoError(t, err)

	loaded, ok, err := Load[*model.Predictions](path, model.PredictionsCodec{Classes: classes})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Equal(loaded))
}

// lossyCodec drops everything after the first element, simulating a write
// that does not survive the round trip.
type lossyCodec struct{}

func (lossyCodec) Encode(w io.Writer, v []string) error {
	_, err := io.WriteString(w, strings.Join(v[:1], ","))
	return err
}

func (lossyCodec) Decode(r io.Reader) ([]string, error) {
	return FeatureListCodec{}.Decode(r)
}

func TestCommitDetectsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.txt")

	err := Commit[[]string](path, []string{"a", "b"}, lossyCodec{}, EqualFeatures)

	var verr *errors.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, path, verr.Path)
	assert.False(t, Exists(path), "a file that failed verification is removed")
}

func TestLoadMissing(t *testing.T) {
	_, ok, err := Load[string](filepath.Join(t.TempDir(), "nope.txt"), TextCodec{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nope.txt")))
}

func TestFeatureListCodec(t *testing.T) {
	var sb strings.Builder
	err := FeatureListCodec{}.Encode(&sb, []string{"bad,name"})
	assert.Error(t, err)

	got, err := FeatureListCodec{}.Decode(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCommitText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Algorithm_Output.txt")
	require.NoError(t, Commit[string](path, "J48 pruned tree\n", TextCodec{}, EqualText))

	got, ok, err := Load[string](path, TextCodec{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "J48 pruned tree\n", got)
}
