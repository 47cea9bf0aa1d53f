package config

import (
	"io/ioutil"

	"github.com/grailbio/base/errors"
	"gopkg.in/yaml.v2"

	"github.com/discoal-go/discoal/arg"
)

// yamlFile mirrors the section layout in §6: simulation, genetics,
// populations, selection, events, output, and an optional demes pointer.
type yamlFile struct {
	Simulation struct {
		SampleSize    int `yaml:"sample_size"`
		NumReplicates int `yaml:"num_replicates"`
		NSites        int `yaml:"n_sites"`
		Seed1         int `yaml:"seed1"`
		Seed2         int `yaml:"seed2"`
	} `yaml:"simulation"`
	Genetics struct {
		Theta float64 `yaml:"theta"`
		Rho   float64 `yaml:"rho"`
		Gamma float64 `yaml:"gamma"`
		GCMean int    `yaml:"gc_mean"`
	} `yaml:"genetics"`
	Populations struct {
		Sizes       []int       `yaml:"sizes"`
		MigrationMatrix [][]float64 `yaml:"migration_matrix"`
	} `yaml:"populations"`
	Selection struct {
		Mode      string  `yaml:"mode"` // "d" | "s" | "N"
		Tau       float64 `yaml:"tau"`
		Alpha     float64 `yaml:"alpha"`
		Site      float64 `yaml:"site"`
		F0        float64 `yaml:"f0"`
		UA        float64 `yaml:"ua"`
		FinalFreq float64 `yaml:"final_freq"`
	} `yaml:"selection"`
	Events []struct {
		Time  float64 `yaml:"time"`
		Type  string  `yaml:"type"`
		Pop   int     `yaml:"pop"`
		Pop2  int     `yaml:"pop2"`
		Pop3  int     `yaml:"pop3"`
		Size  float64 `yaml:"size"`
		Prop  float64 `yaml:"prop"`
		Count int     `yaml:"count"`
	} `yaml:"events"`
	Output struct {
		TSPath  string `yaml:"ts_path"`
		FullARG bool   `yaml:"full_arg"`
	} `yaml:"output"`
	Demes string `yaml:"demes"`
}

// LoadYAML parses a YAML configuration file with the same content as the
// CLI flags (§6) into Params. A selection section schedules a sweep at its
// tau, as the -w* flags do. Events are appended in file order; when the
// file names a demes file, LoadYAML loads it and appends its events too.
func LoadYAML(path string) (Params, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Params{}, errors.E(err, "config: read yaml", path)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Params{}, errors.E(err, "config: parse yaml", path)
	}

	p := NewDefault()
	p.SampleSize = f.Simulation.SampleSize
	p.NumReplicates = f.Simulation.NumReplicates
	p.NSites = f.Simulation.NSites
	p.Seed1, p.Seed2 = uint64(f.Simulation.Seed1), uint64(f.Simulation.Seed2)

	p.Theta = f.Genetics.Theta
	p.Rho = f.Genetics.Rho
	p.GammaConvRate = f.Genetics.Gamma
	p.GCMean = f.Genetics.GCMean

	if len(f.Populations.Sizes) > 0 {
		p.NPops = len(f.Populations.Sizes)
		p.SampleSizes = append([]int(nil), f.Populations.Sizes...)
	} else {
		p.SampleSizes = []int{p.SampleSize}
	}
	if f.Populations.MigrationMatrix != nil {
		p.MigMatConst = f.Populations.MigrationMatrix
	}

	if f.Selection.Mode != "" {
		p.SweepMode = SweepMode(f.Selection.Mode[0])
		p.Tau = f.Selection.Tau * 2.0
		p.Alpha = f.Selection.Alpha
		p.SweepSite = f.Selection.Site
		p.F0 = f.Selection.F0
		p.SoftSweep = f.Selection.F0 > 0
		p.UA = f.Selection.UA
		if f.Selection.FinalFreq > 0 {
			p.PartialSweep = true
			p.PartialFinalFreq = f.Selection.FinalFreq
		}
	}

	p.Events = []arg.Event{{Time: 0, Type: arg.EventPopSize, PopID: 0, SizeOrRate: 1.0}}
	if f.Selection.Mode != "" {
		p.Events = append(p.Events, arg.Event{Time: p.Tau, Type: arg.EventSweep})
	}
	for _, e := range f.Events {
		var t arg.EventType
		switch e.Type {
		case "size":
			t = arg.EventPopSize
		case "merge":
			t = arg.EventMerge
		case "admix":
			t = arg.EventAdmix
		case "ancient":
			t = arg.EventAncientSample
		case "sweep":
			t = arg.EventSweep
		case "migration":
			t = arg.EventMigRate
		default:
			return Params{}, errf("config: unknown yaml event type %q", e.Type)
		}
		p.Events = append(p.Events, arg.Event{
			Time: e.Time * 2.0, Type: t,
			PopID: e.Pop, PopID2: e.Pop2, PopID3: e.Pop3,
			SizeOrRate: e.Size, AdmixProp: e.Prop, LineageNumber: e.Count,
		})
	}

	p.TSOutputPath = f.Output.TSPath
	p.FullARG = f.Output.FullARG

	if f.Demes != "" {
		demesEvents, err := LoadDemes(f.Demes, 1.0, float64(p.EffectivePopnSize))
		if err != nil {
			return Params{}, err
		}
		p.Events = append(p.Events, demesEvents...)
	}

	return p, nil
}
