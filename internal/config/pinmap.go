package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PinMap describes which GPIO chip and line numbers back each named pin, and
// is loaded once at boot from a YAML file — a concern original_source hard-
// coded as constants in gpio::defaults.
type PinMap struct {
	Chip string `yaml:"chip"`

	BodyDirA  int `yaml:"body_dir_a"`
	BodyDirB  int `yaml:"body_dir_b"`
	BodySpeed int `yaml:"body_speed"`

	MouthDirA  int `yaml:"mouth_dir_a"`
	MouthDirB  int `yaml:"mouth_dir_b"`
	MouthSpeed int `yaml:"mouth_speed"`
}

// DefaultPinMap matches the pin assignment in
// original_source/b3/gpio.h (gpio::defaults).
func DefaultPinMap() PinMap {
	return PinMap{
		Chip:       "/dev/gpiochip0",
		BodyDirA:   17,
		BodyDirB:   27,
		BodySpeed:  12,
		MouthDirA:  24,
		MouthDirB:  25,
		MouthSpeed: 13,
	}
}

// LoadPinMap reads a PinMap from a YAML file, starting from DefaultPinMap so
// a partial file only needs to override what differs from the default
// wiring.
func LoadPinMap(path string) (PinMap, error) {
	pm := DefaultPinMap()

	data, err := os.ReadFile(path)
	if err != nil {
		return pm, fmt.Errorf("reading pin map: %w", err)
	}

	if err := yaml.Unmarshal(data, &pm); err != nil {
		return pm, fmt.Errorf("parsing pin map: %w", err)
	}

	return pm, nil
}

// Lines returns every configured line number, in a fixed order, for pin
// setup/teardown enumeration.
func (pm PinMap) Lines() []int {
	return []int{pm.BodyDirA, pm.BodyDirB, pm.BodySpeed, pm.MouthDirA, pm.MouthDirB, pm.MouthSpeed}
}
