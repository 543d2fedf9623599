package experiment

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/nestcv/core/commit"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// SeedFileName is the per-iteration file recording the random seed.
const SeedFileName = "Random_Seed.txt"

// EnsureSeed returns the seed recorded at path, creating the file on first
// use. An empty configured value uses the iteration number, "0" draws a
// random seed and anything else must parse as an integer.
func EnsureSeed(path string, iteration int, configured string) (int64, error) {
	if text, ok, err := commit.Load[string](path, commit.TextCodec{}); err != nil {
		return 0, err
	} else if ok {
		return parseSeedFile(path, text)
	}

	seed, err := deriveSeed(iteration, configured)
	if err != nil {
		return 0, err
	}
	content := fmt.Sprintf("# Random seed for iteration %d\n%d\n", iteration, seed)
	if err := commit.Commit[string](path, content, commit.TextCodec{}, commit.EqualText); err != nil {
		return 0, err
	}
	return seed, nil
}

func deriveSeed(iteration int, configured string) (int64, error) {
	configured = strings.TrimSpace(configured)
	switch configured {
	case "":
		return int64(iteration), nil
	case "0":
		return rand.Int64N(1 << 31), nil
	}
	seed, err := strconv.ParseInt(configured, 10, 64)
	if err != nil {
		return 0, errors.NewConfigurationError("random_seed", "not an integer: "+configured)
	}
	return seed, nil
}

func parseSeedFile(path, text string) (int64, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seed, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse seed in %s", path)
		}
		return seed, nil
	}
	return 0, errors.NewValueError("EnsureSeed", "no seed found in "+path)
}
