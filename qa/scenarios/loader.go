// Package scenarios holds the preset dispatch scenarios and runs them
// against an optimizer.
package scenarios

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cogendispatch/core/model"
)

//go:embed catalog.yaml
var catalog []byte

type RequestDef struct {
	ElecDemand  float64        `yaml:"elec_demand"`
	SteamDemand float64        `yaml:"steam_demand"`
	Hour        *int           `yaml:"hour,omitempty"`
	Constraints map[string]any `yaml:"constraints,omitempty"`
}

func (r RequestDef) ToModel() model.DemandRequest {
	req := model.DemandRequest{
		ElecDemandMW:   r.ElecDemand,
		SteamDemandTPH: r.SteamDemand,
		Constraints:    r.Constraints,
	}
	if r.Hour != nil {
		h := *r.Hour
		req.Hour = &h
	}
	return req
}

type Expected struct {
	Status string `yaml:"status"`
	// MaxAdmission bounds the admission of a unit, by unit id.
	MaxAdmission map[int]float64 `yaml:"max_admission,omitempty"`
	MinSteam     float64         `yaml:"min_steam,omitempty"`
}

type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Request     RequestDef `yaml:"request"`
	Expected    Expected   `yaml:"expect"`
}

type file struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Catalog returns the built-in presets.
func Catalog() ([]Scenario, error) {
	return Parse(catalog)
}

// Load reads a scenario file.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document with a top-level scenarios list.
func Parse(data []byte) ([]Scenario, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for i, sc := range f.Scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("scenario %d: name is required", i)
		}
		if sc.Expected.Status != "" {
			var st model.SolveStatus
			if err := st.UnmarshalText([]byte(sc.Expected.Status)); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
		}
	}
	return f.Scenarios, nil
}

// Find returns the scenario whose name matches, case-insensitively.
func Find(list []Scenario, name string) (Scenario, bool) {
	for _, sc := range list {
		if strings.EqualFold(sc.Name, name) {
			return sc, true
		}
	}
	return Scenario{}, false
}
