package config

import "sort"

func preset(mode string, prompts []string, steps, batch, fps int, output string) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.Prompts = prompts
	cfg.Steps = steps
	cfg.BatchSize = batch
	cfg.Output.FPS = fps
	cfg.Output.Path = output
	cfg.Output.RubberBand = DefaultRubberBand(mode)
	return cfg
}

var (
	doggo = []string{
		"A watercolor painting of a Golden Retriever at the beach",
		"A still life DSLR photo of a bowl of fruit",
	}
	ducky = []string{"A rubber duck swimming in a bowl of cereal"}
	cows  = []string{"An oil paintings of cows in a field next to a windmill in Holland"}
)

var Presets = map[string]*Config{
	"doggo-and-fruit-5":   preset(ModeInterpolate, doggo, 5, 5, 2, "doggo-and-fruit-5.gif"),
	"doggo-and-fruit-160": preset(ModeInterpolate, doggo, 160, 16, DefaultFPS, "doggo-and-fruit-160.gif"),
	"ducky":               preset(ModeRandom, ducky, 160, 16, DefaultFPS, "ducky.gif"),
	"cows":                preset(ModeCircular, cows, 160, 16, DefaultFPS, "cows.gif"),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns preset names, sorted. An empty mode lists all of them.
func ListPresets(mode string) []string {
	names := make([]string, 0, len(Presets))
	for name, cfg := range Presets {
		if mode == "" || cfg.Mode == mode {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return names
}
