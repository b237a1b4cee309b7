// Package factory describes the plant the assistant reports on: machines,
// shifts, and the vocabularies used for defects and downtime.
package factory

import (
	"fmt"
	"os"
	"sort"

	"factoryops.app/assistant/internal/model"
	"gopkg.in/yaml.v3"
)

type DefectType struct {
	Severity    model.Severity `yaml:"severity"`
	Description string         `yaml:"description"`
}

type Inventory struct {
	Name            string                `yaml:"name"`
	Machines        []model.Machine       `yaml:"machines"`
	Shifts          []model.Shift         `yaml:"shifts"`
	DefectTypes     map[string]DefectType `yaml:"defect_types"`
	DowntimeReasons map[string]string     `yaml:"downtime_reasons"`
}

// Default returns the demo plant: four machines over two shifts.
func Default(name string) Inventory {
	return Inventory{
		Name: name,
		Machines: []model.Machine{
			{ID: 1, Name: "CNC-001", Type: "CNC Machining Center", IdealCycleTimeSecs: 45},
			{ID: 2, Name: "Assembly-001", Type: "Assembly Station", IdealCycleTimeSecs: 120},
			{ID: 3, Name: "Packaging-001", Type: "Automated Packaging Line", IdealCycleTimeSecs: 30},
			{ID: 4, Name: "Testing-001", Type: "Quality Testing Station", IdealCycleTimeSecs: 90},
		},
		Shifts: []model.Shift{
			{ID: 1, Name: "Day", StartHour: 6, EndHour: 14},
			{ID: 2, Name: "Night", StartHour: 14, EndHour: 22},
		},
		DefectTypes: map[string]DefectType{
			"dimensional": {Severity: model.SeverityHigh, Description: "Out of tolerance"},
			"surface":     {Severity: model.SeverityMedium, Description: "Surface defect"},
			"assembly":    {Severity: model.SeverityHigh, Description: "Assembly issue"},
			"material":    {Severity: model.SeverityLow, Description: "Material quality"},
		},
		DowntimeReasons: map[string]string{
			"mechanical":  "Mechanical failure",
			"electrical":  "Electrical issue",
			"material":    "Material shortage",
			"changeover":  "Product changeover",
			"maintenance": "Scheduled maintenance",
		},
	}
}

// Load reads an inventory YAML file. Sections missing from the file keep
// the defaults, so a file may override only the machine list.
func Load(path, name string) (Inventory, error) {
	inv := Default(name)
	if path == "" {
		return inv, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("reading inventory %s: %w", path, err)
	}

	var override Inventory
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Inventory{}, fmt.Errorf("parsing inventory %s: %w", path, err)
	}

	if override.Name != "" {
		inv.Name = override.Name
	}
	if len(override.Machines) > 0 {
		inv.Machines = override.Machines
	}
	if len(override.Shifts) > 0 {
		inv.Shifts = override.Shifts
	}
	if len(override.DefectTypes) > 0 {
		inv.DefectTypes = override.DefectTypes
	}
	if len(override.DowntimeReasons) > 0 {
		inv.DowntimeReasons = override.DowntimeReasons
	}

	if err := inv.validate(); err != nil {
		return Inventory{}, fmt.Errorf("invalid inventory %s: %w", path, err)
	}
	return inv, nil
}

func (inv Inventory) validate() error {
	seen := make(map[string]bool, len(inv.Machines))
	for _, m := range inv.Machines {
		if m.Name == "" {
			return fmt.Errorf("machine %d has no name", m.ID)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate machine %s", m.Name)
		}
		seen[m.Name] = true
	}
	for name, d := range inv.DefectTypes {
		if !d.Severity.Valid() {
			return fmt.Errorf("defect type %s has unknown severity %q", name, d.Severity)
		}
	}
	return nil
}

// DefectTypeNames returns defect type keys sorted for stable iteration.
func (inv Inventory) DefectTypeNames() []string {
	return sortedKeys(inv.DefectTypes)
}

// DowntimeReasonNames returns downtime reason keys sorted for stable iteration.
func (inv Inventory) DowntimeReasonNames() []string {
	return sortedKeys(inv.DowntimeReasons)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
