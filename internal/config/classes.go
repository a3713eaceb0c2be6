package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"recicleai/internal/model"
)

type dataYAMLList struct {
	Names []string `yaml:"names"`
}

type dataYAMLMap struct {
	Names map[int]string `yaml:"names"`
}

// LoadClassNames reads the class list of a YOLO data.yaml. Both the list form
// (names: [a, b]) and the indexed form (names: {0: a, 1: b}) are accepted.
// Names are normalized to upper case.
func LoadClassNames(path string) ([]model.Label, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class file: %w", err)
	}
	return ParseClassNames(data)
}

// ParseClassNames parses the names section of a data.yaml document.
func ParseClassNames(data []byte) ([]model.Label, error) {
	var list dataYAMLList
	if err := yaml.Unmarshal(data, &list); err == nil && len(list.Names) > 0 {
		labels := make([]model.Label, 0, len(list.Names))
		for _, name := range list.Names {
			labels = append(labels, model.NormalizeLabel(name))
		}
		return labels, nil
	}

	var indexed dataYAMLMap
	if err := yaml.Unmarshal(data, &indexed); err != nil {
		return nil, fmt.Errorf("failed to parse class names: %w", err)
	}
	if len(indexed.Names) == 0 {
		return nil, fmt.Errorf("no class names found")
	}

	ids := make([]int, 0, len(indexed.Names))
	for id := range indexed.Names {
		if id < 0 {
			return nil, fmt.Errorf("negative class id %d", id)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	labels := make([]model.Label, ids[len(ids)-1]+1)
	for i := range labels {
		labels[i] = model.Label(fmt.Sprintf("CLASS%d", i))
	}
	for _, id := range ids {
		labels[id] = model.NormalizeLabel(indexed.Names[id])
	}
	return labels, nil
}
