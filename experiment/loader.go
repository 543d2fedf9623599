package experiment

import (
	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// Dataset is the raw input of an experiment.
type Dataset struct {
	DependentVariable     *data.Collection
	DependentVariableName string
	Processors            []*Processor
}

// LoadDataset reads the dependent variable and every processor from the
// tab-delimited files named in cfg.
func LoadDataset(cfg *config.Config, logger log.Logger) (*Dataset, error) {
	if logger == nil {
		logger = log.Nop()
	}

	dvPath := cfg.Path(cfg.DependentVariable.Path)
	dv, err := data.LoadDelimited(dvPath)
	if err != nil {
		return nil, errors.Wrap(err, "load dependent variable")
	}
	name := cfg.DependentVariable.Name
	if name == "" {
		names := dv.DataPointNames()
		if len(names) != 1 {
			return nil, errors.NewConfigurationError("dependent_variable.name",
				"must be set when the file has more than one data column")
		}
		name = names[0]
	}
	if !dv.HasDataPoint(name) {
		return nil, errors.NewConfigurationError("dependent_variable.name", "no column named "+name+" in "+dvPath)
	}

	ds := &Dataset{DependentVariable: dv, DependentVariableName: name}
	for _, pc := range cfg.Processors {
		path := cfg.Path(pc.Path)
		c, err := data.LoadDelimited(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load processor %s", pc.Name)
		}

		var prior []string
		for _, f := range pc.PriorKnowledge {
			if c.HasDataPoint(f) {
				prior = append(prior, f)
			} else {
				logger.Warn("Prior knowledge feature not found in processor data",
					log.ProcessorKey, pc.Name, "feature", f)
			}
		}

		logger.Debug("Loaded processor", log.ProcessorKey, pc.Name, log.PathKey, path,
			log.SamplesKey, c.Size(), log.FeaturesKey, c.NumDataPoints(),
			"missing", c.ProportionMissingValues())
		ds.Processors = append(ds.Processors, &Processor{Name: pc.Name, Data: c, PriorKnowledge: prior})
	}
	return ds, nil
}
