package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/factory"
	"github.com/aretw0/arbor/pkg/ports"
)

// ErrUnexpected is returned by Play when a step does not end as expected.
var ErrUnexpected = errors.New("script step did not end as expected")

// Result is the outcome of one step.
type Result struct {
	Index    int           `json:"index"`
	Op       string        `json:"op"`
	Comment  string        `json:"comment,omitempty"`
	Code     domain.Code   `json:"code,omitempty"`
	Expected domain.Code   `json:"expected,omitempty"`
	Err      error         `json:"-"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
}

// Report collects the results of a played script.
type Report struct {
	Script  string   `json:"script"`
	Results []Result `json:"results"`
}

// Passed reports whether every played step ended as expected.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Player applies scripts to an editor.
type Player struct {
	logger *slog.Logger
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithLogger sets the logger used to trace steps.
func WithLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPlayer creates a player. It logs nothing unless a logger is supplied.
func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play registers the script components in the editor registry and runs the steps in
// order. It stops at the first step that does not end as expected, returning the
// partial report and an error wrapping ErrUnexpected.
func (p *Player) Play(ctx context.Context, ed ports.Editor, s *Script) (*Report, error) {
	for _, t := range s.Components {
		ed.Registry().Register(t)
	}

	report := &Report{Script: s.Name}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		started := time.Now()
		err := Apply(ed, step)
		res := Result{
			Index:    i + 1,
			Op:       step.Op,
			Comment:  step.Comment,
			Code:     domain.CodeOf(err),
			Expected: step.ExpectError,
			Err:      err,
			Duration: time.Since(started),
		}
		res.OK = step.ExpectError == res.Code && (err == nil || res.Code != "")
		report.Results = append(report.Results, res)

		p.logger.Debug("script step", "index", res.Index, "op", res.Op, "code", res.Code, "ok", res.OK)
		if !res.OK {
			if err == nil {
				return report, fmt.Errorf("%w: step %d (%s) succeeded, expected %s", ErrUnexpected, res.Index, step.Op, step.ExpectError)
			}
			return report, fmt.Errorf("%w: step %d (%s): %w", ErrUnexpected, res.Index, step.Op, err)
		}
	}
	return report, nil
}

// Play runs s with a default player.
func Play(ctx context.Context, ed ports.Editor, s *Script) (*Report, error) {
	return NewPlayer().Play(ctx, ed, s)
}

// Apply performs a single step on the editor.
func Apply(ed ports.Editor, step Step) error {
	switch args := step.Args.(type) {
	case *AddArgs:
		nodes := make([]*domain.Node, 0, len(args.Nodes))
		for _, spec := range args.Nodes {
			n, err := spec.Build(ed)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		if args.Index == nil {
			return ed.Add(args.Parent, nodes...)
		}
		return ed.AddAt(args.Parent, *args.Index, nodes...)

	case *MoveArgs:
		return ed.Move(args.Node, args.Parent, args.Index)

	case *SetPropArgs:
		return ed.SetProp(args.Node, func(props domain.Props) domain.Props {
			for k, v := range args.Set {
				props[k] = v
			}
			for _, k := range args.Unset {
				delete(props, k)
			}
			return props
		})

	case *SetRefArgs:
		return ed.SetRef(args.Node, args.patch)

	case *NodeArgs:
		return ed.CanDrag(args.Node)

	case *EventArgs:
		if step.Op == OpClearEvent {
			return ed.ClearNodeEvent(args.Name, args.Node)
		}
		return ed.SetNodeEvent(args.Name, args.Node)

	case *DragArgs:
		subject, err := args.subject(ed)
		if err != nil {
			return err
		}
		info := ed.ComputePlaceholder(subject, args.Target, args.X, args.Y)
		if step.Op == OpDrop {
			return ed.Drop(subject, info)
		}
		if info.Error != nil {
			return info.Error
		}
		return ed.SetPlaceholder(info)

	case *NoArgs:
		if step.Op == OpRedo {
			return ed.Redo()
		}
		return ed.Undo()
	}
	return fmt.Errorf("unsupported step %q", step.Op)
}

// patch overlays the given fields on ref.
func (a *SetRefArgs) patch(ref domain.Ref) domain.Ref {
	next := NodeSpec{
		Accept:         a.Accept,
		RejectIncoming: a.RejectIncoming,
		RejectOutgoing: a.RejectOutgoing,
		Draggable:      a.Draggable,
		Box:            a.Box,
	}.Ref()
	if a.Box != nil {
		ref.DOM = next.DOM
	}
	if len(a.Accept) > 0 || len(a.RejectIncoming) > 0 {
		ref.Incoming = next.Incoming
	}
	if len(a.RejectOutgoing) > 0 {
		ref.Outgoing = next.Outgoing
	}
	if a.Draggable != nil {
		ref.CanDrag = next.CanDrag
	}
	return ref
}

func (a *DragArgs) subject(ed ports.Editor) (domain.DragSubject, error) {
	if a.New == nil {
		return domain.DragSubject{NodeID: a.Node}, nil
	}
	n, err := a.New.Build(ed)
	if err != nil {
		return domain.DragSubject{}, err
	}
	return domain.DragSubject{Node: n}, nil
}

// Build creates the described node through the editor's factory.
func (s NodeSpec) Build(ed ports.Editor) (*domain.Node, error) {
	opts := []factory.Option{factory.WithProps(s.Props), factory.WithRef(s.Ref())}
	if s.ID != "" {
		opts = append(opts, factory.WithID(s.ID))
	}
	if s.Index != nil {
		opts = append(opts, factory.WithIndex(*s.Index))
	}
	return ed.Create(s.Type, opts...)
}

// Ref translates the declarative policies and geometry into a ref record.
func (s NodeSpec) Ref() domain.Ref {
	var ref domain.Ref
	if s.Box != nil {
		ref.DOM = s.Box
	}
	if len(s.Accept) > 0 || len(s.RejectIncoming) > 0 {
		accept, reject := s.Accept, s.RejectIncoming
		ref.Incoming = func(n *domain.Node) bool {
			if slices.Contains(reject, n.ID) {
				return false
			}
			return len(accept) == 0 || slices.Contains(accept, n.Data.Type.Name)
		}
	}
	if len(s.RejectOutgoing) > 0 {
		reject := s.RejectOutgoing
		ref.Outgoing = func(n *domain.Node) bool {
			return !slices.Contains(reject, n.ID)
		}
	}
	if s.Draggable != nil && !*s.Draggable {
		ref.CanDrag = func(*domain.Node) bool { return false }
	}
	return ref
}
