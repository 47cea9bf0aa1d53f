package config

import (
	"io/ioutil"

	"github.com/grailbio/base/errors"
	"gopkg.in/yaml.v2"

	"github.com/discoal-go/discoal/arg"
)

// demesFile is a minimal subset of the demes specification (demographic
// epochs and pulses), sufficient to translate into this simulator's event
// schema (§6: "Demographic events loaded from a demes file are translated
// into the event-descriptor schema, with times rescaled by the generation
// time and sizes by the reference population size").
type demesFile struct {
	Description  string  `yaml:"description"`
	TimeUnits    string  `yaml:"time_units"`
	GenerationTime float64 `yaml:"generation_time"`
	Demes        []struct {
		Name   string `yaml:"name"`
		Epochs []struct {
			EndTime    float64 `yaml:"end_time"`
			StartSize  float64 `yaml:"start_size"`
			EndSize    float64 `yaml:"end_size"`
		} `yaml:"epochs"`
		Ancestors []string `yaml:"ancestors"`
	} `yaml:"demes"`
	Pulses []struct {
		Sources []string  `yaml:"sources"`
		Dest    string    `yaml:"dest"`
		Proportions []float64 `yaml:"proportions"`
		Time    float64   `yaml:"time"`
	} `yaml:"pulses"`
}

// LoadDemes reads a demes-format YAML file and translates its demographic
// epochs/pulses into coalescent-time Events, rescaling times by genTime
// and sizes by refN (§6). Population indices are assigned in file order of
// first appearance.
func LoadDemes(path string, genTime, refN float64) ([]arg.Event, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.E(err, "config: read demes file", path)
	}
	var d demesFile
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.E(err, "config: parse demes file", path)
	}
	if genTime <= 0 {
		genTime = 1.0
	}
	if d.GenerationTime > 0 {
		genTime = d.GenerationTime
	}
	if refN <= 0 {
		refN = 1.0
	}

	popIndex := map[string]int{}
	for _, dm := range d.Demes {
		if _, ok := popIndex[dm.Name]; !ok {
			popIndex[dm.Name] = len(popIndex)
		}
	}

	var events []arg.Event
	for _, dm := range d.Demes {
		pid := popIndex[dm.Name]
		for _, ep := range dm.Epochs {
			t := (ep.EndTime * genTime) / (2.0 * refN)
			size := ep.StartSize / refN
			if ep.EndSize > 0 {
				size = ep.EndSize / refN
			}
			events = append(events, arg.Event{Time: t, Type: arg.EventPopSize, PopID: pid, SizeOrRate: size})
		}
		for _, anc := range dm.Ancestors {
			if ancID, ok := popIndex[anc]; ok {
				events = append(events, arg.Event{
					Time: 0, Type: arg.EventMerge, PopID: pid, PopID2: ancID,
				})
			}
		}
	}

	for _, pulse := range d.Pulses {
		destID, ok := popIndex[pulse.Dest]
		if !ok {
			continue
		}
		t := (pulse.Time * genTime) / (2.0 * refN)
		for i, src := range pulse.Sources {
			srcID, ok := popIndex[src]
			if !ok {
				continue
			}
			prop := 0.0
			if i < len(pulse.Proportions) {
				prop = pulse.Proportions[i]
			}
			events = append(events, arg.Event{
				Time: t, Type: arg.EventAdmix, PopID: destID, PopID2: srcID, AdmixProp: prop,
			})
		}
	}

	return events, nil
}
