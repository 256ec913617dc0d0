package sensor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/partition"
)

// Definitions is the loaded content of a definitions file: the dependency
// graph plus the automation condition attached to each target.
type Definitions struct {
	Graph      *asset.Graph
	Conditions map[asset.Key]*ast.Condition
}

// definitionsFile is the YAML shape of the definitions file.
type definitionsFile struct {
	Assets []assetSpec `yaml:"assets"`
}

type assetSpec struct {
	Key         string         `yaml:"key"`
	Kind        string         `yaml:"kind"`
	CodeVersion string         `yaml:"code_version"`
	Partitions  *partitionSpec `yaml:"partitions"`
	Deps        []depSpec      `yaml:"deps"`
	Automation  *conditionSpec `yaml:"automation"`
}

type partitionSpec struct {
	Type   string    `yaml:"type"` // "static" or "time_window"
	Keys   []string  `yaml:"keys"`
	Cron   string    `yaml:"cron"`
	Start  time.Time `yaml:"start"`
	Layout string    `yaml:"layout"`
}

type depSpec struct {
	Parent  string `yaml:"parent"`
	Mapping string `yaml:"mapping"` // "", "identity" or "all"
}

// conditionSpec is one node of a condition tree in YAML form.
type conditionSpec struct {
	Type  string `yaml:"type"`
	Label string `yaml:"label"`

	// Operand parameters
	Cron     string        `yaml:"cron"`
	Timezone string        `yaml:"timezone"`
	Lookback time.Duration `yaml:"lookback"`
	Name     string        `yaml:"name"`

	// Operator children
	Children []conditionSpec `yaml:"children"`
	Child    *conditionSpec  `yaml:"child"`
	Trigger  *conditionSpec  `yaml:"trigger"`
	Reset    *conditionSpec  `yaml:"reset"`

	// Dependency selection
	Selection *selectionSpec `yaml:"selection"`
}

type selectionSpec struct {
	Mode string   `yaml:"mode"` // "allow" or "ignore"
	Keys []string `yaml:"keys"`
}

// LoadDefinitions reads and validates a YAML definitions file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file %q: %w", path, err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions parses definitions from YAML bytes.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("definitions file declares no assets")
	}

	defs := make([]*asset.Def, 0, len(file.Assets))
	conditions := make(map[asset.Key]*ast.Condition)

	for _, spec := range file.Assets {
		def, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", spec.Key, err)
		}
		defs = append(defs, def)

		if spec.Automation != nil {
			cond, err := spec.Automation.build()
			if err != nil {
				return nil, fmt.Errorf("asset %q automation: %w", spec.Key, err)
			}
			conditions[def.Key] = cond
		}
	}

	graph, err := asset.NewGraph(defs)
	if err != nil {
		return nil, err
	}

	return &Definitions{
		Graph:      graph,
		Conditions: conditions,
	}, nil
}

func (s *assetSpec) build() (*asset.Def, error) {
	if s.Key == "" {
		return nil, fmt.Errorf("missing key")
	}

	kind := asset.KindAsset
	switch s.Kind {
	case "", "asset":
	case "check":
		kind = asset.KindCheck
	default:
		return nil, fmt.Errorf("unknown kind %q (must be asset or check)", s.Kind)
	}

	var partitions partition.Definition
	if s.Partitions != nil {
		var err error
		partitions, err = s.Partitions.build()
		if err != nil {
			return nil, err
		}
	}

	deps := make([]asset.Dep, 0, len(s.Deps))
	for _, d := range s.Deps {
		if d.Parent == "" {
			return nil, fmt.Errorf("dependency missing parent key")
		}
		var mapping asset.PartitionMapping
		switch d.Mapping {
		case "":
			// Default resolved per edge at evaluation time.
		case "identity":
			mapping = asset.IdentityMapping{}
		case "all":
			mapping = asset.AllMapping{}
		default:
			return nil, fmt.Errorf("unknown partition mapping %q (must be identity or all)", d.Mapping)
		}
		deps = append(deps, asset.Dep{Parent: asset.Key(d.Parent), Mapping: mapping})
	}

	return &asset.Def{
		Key:         asset.Key(s.Key),
		Kind:        kind,
		Partitions:  partitions,
		Deps:        deps,
		CodeVersion: s.CodeVersion,
	}, nil
}

func (s *partitionSpec) build() (partition.Definition, error) {
	switch s.Type {
	case "static":
		if len(s.Keys) == 0 {
			return nil, fmt.Errorf("static partitions require keys")
		}
		keys := make([]partition.Key, len(s.Keys))
		for i, k := range s.Keys {
			keys[i] = partition.Key(k)
		}
		return partition.NewStatic(keys...), nil

	case "time_window":
		if s.Cron == "" {
			return nil, fmt.Errorf("time_window partitions require a cron expression")
		}
		if s.Start.IsZero() {
			return nil, fmt.Errorf("time_window partitions require a start time")
		}
		return partition.NewTimeWindow(s.Cron, s.Start, s.Layout)

	default:
		return nil, fmt.Errorf("unknown partition type %q (must be static or time_window)", s.Type)
	}
}

func (s *conditionSpec) build() (*ast.Condition, error) {
	cond, err := s.buildNode()
	if err != nil {
		return nil, err
	}
	if s.Label != "" {
		cond = cond.WithLabel(s.Label)
	}
	return cond, nil
}

func (s *conditionSpec) buildNode() (*ast.Condition, error) {
	switch s.Type {
	case "eager":
		return ast.Eager(), nil

	case "missing":
		return ast.Missing(), nil
	case "in_progress":
		return ast.InProgress(), nil
	case "failed":
		return ast.Failed(), nil
	case "newly_updated":
		return ast.NewlyUpdated(), nil
	case "newly_requested":
		return ast.NewlyRequested(), nil
	case "code_version_changed":
		return ast.CodeVersionChanged(), nil
	case "will_be_requested":
		return ast.WillBeRequested(), nil
	case "initial_evaluation":
		return ast.InitialEvaluation(), nil

	case "cron_tick_passed":
		if s.Cron == "" {
			return nil, fmt.Errorf("cron_tick_passed requires a cron expression")
		}
		return ast.CronTickPassed(s.Cron, s.Timezone), nil

	case "in_latest_time_window":
		return ast.InLatestTimeWindow(s.Lookback), nil

	case "custom":
		if s.Name == "" {
			return nil, fmt.Errorf("custom operand requires a name")
		}
		return ast.Custom(s.Name), nil

	case "not":
		child, err := s.requireChild()
		if err != nil {
			return nil, err
		}
		return ast.Not(child), nil

	case "and", "or":
		if len(s.Children) < 2 {
			return nil, fmt.Errorf("%s requires at least two children", s.Type)
		}
		children := make([]*ast.Condition, len(s.Children))
		for i := range s.Children {
			child, err := s.Children[i].build()
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		if s.Type == "and" {
			return ast.And(children...), nil
		}
		return ast.Or(children...), nil

	case "newly_true":
		child, err := s.requireChild()
		if err != nil {
			return nil, err
		}
		return ast.NewlyTrue(child), nil

	case "since":
		if s.Trigger == nil || s.Reset == nil {
			return nil, fmt.Errorf("since requires trigger and reset children")
		}
		trigger, err := s.Trigger.build()
		if err != nil {
			return nil, err
		}
		reset, err := s.Reset.build()
		if err != nil {
			return nil, err
		}
		return ast.Since(trigger, reset), nil

	case "any_deps_match", "all_deps_match":
		child, err := s.requireChild()
		if err != nil {
			return nil, err
		}
		var cond *ast.Condition
		if s.Type == "any_deps_match" {
			cond = ast.AnyDepsMatch(child)
		} else {
			cond = ast.AllDepsMatch(child)
		}
		if s.Selection != nil {
			selection, err := s.Selection.build()
			if err != nil {
				return nil, err
			}
			cond = cond.WithSelection(selection)
		}
		return cond, nil

	case "any_downstream_condition":
		return ast.AnyDownstreamCondition(), nil

	default:
		return nil, fmt.Errorf("unknown condition type %q", s.Type)
	}
}

func (s *conditionSpec) requireChild() (*ast.Condition, error) {
	if s.Child == nil {
		return nil, fmt.Errorf("%s requires a child condition", s.Type)
	}
	return s.Child.build()
}

func (s *selectionSpec) build() (*asset.Selection, error) {
	keys := make([]asset.Key, len(s.Keys))
	for i, k := range s.Keys {
		keys[i] = asset.Key(k)
	}
	switch s.Mode {
	case "allow":
		return asset.Allow(keys...), nil
	case "ignore":
		return asset.Ignore(keys...), nil
	default:
		return nil, fmt.Errorf("unknown selection mode %q (must be allow or ignore)", s.Mode)
	}
}
