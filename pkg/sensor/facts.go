package sensor

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/partition"
)

// factsFile is the YAML shape of a static facts file, used by one-shot
// command line evaluation. Unpartitioned assets use the implicit partition
// key "__default__".
type factsFile struct {
	Facts []factSpec `yaml:"facts"`
}

type factSpec struct {
	Asset        string   `yaml:"asset"`
	UpdateSeq    uint64   `yaml:"update_seq"`
	Materialized []string `yaml:"materialized"`
	InProgress   []string `yaml:"in_progress"`
	Failed       []string `yaml:"failed"`
}

// LoadFactsFile reads a static facts file and returns a FactSource that
// serves the same snapshot on every tick.
func LoadFactsFile(path string) (FactSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file %q: %w", path, err)
	}
	return ParseFacts(data)
}

// ParseFacts parses a static facts document from YAML bytes.
func ParseFacts(data []byte) (FactSource, error) {
	var file factsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse facts: %w", err)
	}

	for _, spec := range file.Facts {
		if spec.Asset == "" {
			return nil, fmt.Errorf("fact entry missing asset key")
		}
	}

	specs := file.Facts
	return FactSourceFunc(func(ctx context.Context, evaluationTime time.Time) (*facts.Snapshot, error) {
		builder := facts.NewBuilder(evaluationTime)
		for _, spec := range specs {
			key := asset.Key(spec.Asset)
			if len(spec.Materialized) > 0 {
				builder.WithMaterialized(key, spec.UpdateSeq, toPartitionKeys(spec.Materialized)...)
			}
			if len(spec.InProgress) > 0 {
				builder.WithInProgress(key, toPartitionKeys(spec.InProgress)...)
			}
			if len(spec.Failed) > 0 {
				builder.WithFailed(key, toPartitionKeys(spec.Failed)...)
			}
		}
		return builder.Build(), nil
	}), nil
}

func toPartitionKeys(keys []string) []partition.Key {
	out := make([]partition.Key, len(keys))
	for i, k := range keys {
		out[i] = partition.Key(k)
	}
	return out
}
