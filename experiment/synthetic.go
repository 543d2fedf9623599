package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// SyntheticDataset builds a deterministic dataset for smoke runs and tests:
// instances "id1".."idN" cycle through classes, and one processor named
// "synthetic" carries features "f1".."fM" with integer values.
func SyntheticDataset(instances, features int, classes ...string) *Dataset {
	const dvName = "Class"
	dv := data.NewCollection()
	proc := data.NewCollection()
	for i := 1; i <= instances; i++ {
		id := "id" + strconv.Itoa(i)
		dv.Add(dvName, id, classes[(i-1)%len(classes)])
		for j := 1; j <= features; j++ {
			proc.Add(fmt.Sprintf("f%d", j), id, strconv.Itoa((i*j)%7))
		}
	}
	return &Dataset{
		DependentVariable:     dv,
		DependentVariableName: dvName,
		Processors:            []*Processor{{Name: "synthetic", Data: proc}},
	}
}

// Save writes the dependent variable and each processor as tab-delimited
// files under dir and returns matching config entries with relative paths.
func (d *Dataset) Save(dir string) (config.DependentVariableConfig, []config.ProcessorConfig, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return config.DependentVariableConfig{}, nil, errors.Wrapf(err, "create %s", dir)
	}

	dv := config.DependentVariableConfig{Path: d.DependentVariableName + ".txt", Name: d.DependentVariableName}
	if err := data.SaveDelimited(filepath.Join(dir, dv.Path), d.DependentVariable, "ID"); err != nil {
		return config.DependentVariableConfig{}, nil, err
	}

	procs := make([]config.ProcessorConfig, 0, len(d.Processors))
	for _, p := range d.Processors {
		pc := config.ProcessorConfig{Name: p.Name, Path: p.Name + ".txt", PriorKnowledge: p.PriorKnowledge}
		if err := data.SaveDelimited(filepath.Join(dir, pc.Path), p.Data, "ID"); err != nil {
			return config.DependentVariableConfig{}, nil, err
		}
		procs = append(procs, pc)
	}
	return dv, procs, nil
}
