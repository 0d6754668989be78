package config

import "sort"

// Preset is a named fixed-effect structure for the pooled linear model.
type Preset struct {
	Name        string `yaml:"name"`
	Formula     string `yaml:"formula"`
	Description string `yaml:"description"`
	Horizon     bool   `yaml:"horizon"`
	Interaction bool   `yaml:"interaction"`
}

var Presets = map[string]Preset{
	"treatment": {
		Name: "treatment", Formula: "d14c ~ trt",
		Description: "treatment only, horizons pooled",
	},
	"additive": {
		Name: "additive", Formula: "d14c ~ trt + hzn",
		Description: "treatment and horizon main effects",
		Horizon:     true,
	},
	"interaction": {
		Name: "interaction", Formula: "d14c ~ trt * hzn",
		Description: "main effects plus treatment by horizon interaction",
		Horizon:     true, Interaction: true,
	},
}

func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
