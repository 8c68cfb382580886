package script

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/pkg/domain"
)

// Operation names accepted as step keys.
const (
	OpAdd         = "add"
	OpMove        = "move"
	OpSetProp     = "set_prop"
	OpSetRef      = "set_ref"
	OpCanDrag     = "can_drag"
	OpSetEvent    = "set_event"
	OpClearEvent  = "clear_event"
	OpPlaceholder = "placeholder"
	OpDrop        = "drop"
	OpUndo        = "undo"
	OpRedo        = "redo"
)

// Script is a decoded scenario.
type Script struct {
	Name       string
	Components []domain.ComponentType
	Steps      []Step
}

// Step is one editor action. Args holds a pointer to the typed arguments of Op.
type Step struct {
	Op          string
	Args        any
	ExpectError domain.Code
	Comment     string
}

// NodeSpec describes a node to create.
type NodeSpec struct {
	ID    string         `mapstructure:"id"`
	Type  string         `mapstructure:"type"`
	Props map[string]any `mapstructure:"props"`
	Index *int           `mapstructure:"index"`

	// Accept restricts incoming children to these component types.
	Accept []string `mapstructure:"accept"`
	// RejectIncoming and RejectOutgoing list node ids refused by the policies.
	RejectIncoming []string `mapstructure:"reject_incoming"`
	RejectOutgoing []string `mapstructure:"reject_outgoing"`
	// Draggable false pins the node.
	Draggable *bool `mapstructure:"draggable"`
	// Box is the element geometry used for placeholder computation.
	Box *Box `mapstructure:"box"`
}

// Box is a measurable element handle.
type Box struct {
	Left   float64 `mapstructure:"left" json:"left"`
	Top    float64 `mapstructure:"top" json:"top"`
	Width  float64 `mapstructure:"width" json:"width"`
	Height float64 `mapstructure:"height" json:"height"`
	Inline bool    `mapstructure:"inline" json:"inline"`
}

// Dimensions implements domain.Measurable.
func (b *Box) Dimensions() domain.Dimensions {
	return domain.Dimensions{
		Left:        b.Left,
		Top:         b.Top,
		OuterWidth:  b.Width,
		OuterHeight: b.Height,
		InFlow:      !b.Inline,
	}
}

// AddArgs are the arguments of an add step. A nil Index appends.
type AddArgs struct {
	Parent string     `mapstructure:"parent"`
	Index  *int       `mapstructure:"index"`
	Nodes  []NodeSpec `mapstructure:"nodes"`
}

// MoveArgs are the arguments of a move step.
type MoveArgs struct {
	Node   string `mapstructure:"node"`
	Parent string `mapstructure:"parent"`
	Index  int    `mapstructure:"index"`
}

// SetPropArgs are the arguments of a set_prop step.
type SetPropArgs struct {
	Node  string         `mapstructure:"node"`
	Set   map[string]any `mapstructure:"set"`
	Unset []string       `mapstructure:"unset"`
}

// SetRefArgs are the arguments of a set_ref step. Only the policies and geometry
// that are given replace the current ones; draggable true restores dragging.
type SetRefArgs struct {
	Node           string   `mapstructure:"node"`
	Accept         []string `mapstructure:"accept"`
	RejectIncoming []string `mapstructure:"reject_incoming"`
	RejectOutgoing []string `mapstructure:"reject_outgoing"`
	Draggable      *bool    `mapstructure:"draggable"`
	Box            *Box     `mapstructure:"box"`
}

// NodeArgs names the node of a can_drag step.
type NodeArgs struct {
	Node string `mapstructure:"node"`
}

// EventArgs are the arguments of set_event and clear_event steps.
type EventArgs struct {
	Name string `mapstructure:"name"`
	Node string `mapstructure:"node"`
}

// DragArgs are the arguments of placeholder and drop steps: either an existing Node
// or a New one, hovered over Target at (X, Y).
type DragArgs struct {
	Node   string    `mapstructure:"node"`
	New    *NodeSpec `mapstructure:"new"`
	Target string    `mapstructure:"target"`
	X      float64   `mapstructure:"x"`
	Y      float64   `mapstructure:"y"`
}

// NoArgs is used by undo and redo.
type NoArgs struct{}

type rawScript struct {
	Name       string                 `yaml:"name"`
	Components []domain.ComponentType `yaml:"components"`
	Steps      []map[string]any       `yaml:"steps"`
}

var argTypes = map[string]func() any{
	OpAdd:         func() any { return &AddArgs{} },
	OpMove:        func() any { return &MoveArgs{} },
	OpSetProp:     func() any { return &SetPropArgs{} },
	OpSetRef:      func() any { return &SetRefArgs{} },
	OpCanDrag:     func() any { return &NodeArgs{} },
	OpSetEvent:    func() any { return &EventArgs{} },
	OpClearEvent:  func() any { return &EventArgs{} },
	OpPlaceholder: func() any { return &DragArgs{} },
	OpDrop:        func() any { return &DragArgs{} },
	OpUndo:        func() any { return &NoArgs{} },
	OpRedo:        func() any { return &NoArgs{} },
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML script. Every step is checked; all problems are reported.
func Parse(data []byte) (*Script, error) {
	var raw rawScript
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	s := &Script{Name: raw.Name, Components: raw.Components}
	var errs []error
	for i, m := range raw.Steps {
		step, err := decodeStep(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			continue
		}
		s.Steps = append(s.Steps, step)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeStep(m map[string]any) (Step, error) {
	var step Step
	var ops []string
	for key, value := range m {
		switch key {
		case "expect_error":
			code, ok := value.(string)
			if !ok {
				return step, fmt.Errorf("expect_error must be a string, got %T", value)
			}
			step.ExpectError = domain.Code(code)
		case "comment":
			step.Comment = fmt.Sprint(value)
		default:
			ops = append(ops, key)
		}
	}

	if len(ops) != 1 {
		slices.Sort(ops)
		return step, fmt.Errorf("expected exactly one operation, got %v", ops)
	}

	decoded, err := NewStep(ops[0], m[ops[0]])
	if err != nil {
		return step, err
	}
	decoded.ExpectError = step.ExpectError
	decoded.Comment = step.Comment
	return decoded, nil
}

// NewStep decodes the raw arguments of op, typically a map produced by a YAML or JSON
// decoder. Unknown argument keys are rejected.
func NewStep(op string, raw any) (Step, error) {
	newArgs, ok := argTypes[op]
	if !ok {
		return Step{}, fmt.Errorf("unknown operation %q", op)
	}
	step := Step{Op: op, Args: newArgs()}
	if raw == nil {
		return step, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      step.Args,
	})
	if err != nil {
		return step, err
	}
	if err := decoder.Decode(raw); err != nil {
		return step, fmt.Errorf("%s: %w", op, err)
	}
	return step, nil
}
