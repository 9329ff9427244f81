package flowsync

import (
	"context"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/floworacle"
)

func (s *Service) AddPipe(ctx context.Context, typ, name string) error {
	return s.Submit(ctx, "add pipe", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		b, _, err := floworacle.AddPipe(st, typ, name)
		return b, err
	})
}

func (s *Service) AddListener(ctx context.Context, typ, name string) error {
	return s.Submit(ctx, "add listener", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		b, _, err := floworacle.AddListener(st, typ, name)
		return b, err
	})
}

func (s *Service) AddSender(ctx context.Context, typ, name string) error {
	return s.Submit(ctx, "add sender", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		b, _, err := floworacle.AddSender(st, typ, name)
		return b, err
	})
}

func (s *Service) AddExit(ctx context.Context, name string, pos *flowast.Point) error {
	return s.Submit(ctx, "add exit", func(st *flowast.Structure, text floworacle.TextReader) (*flowast.Batch, error) {
		b, _, err := floworacle.AddExit(st, text, name, pos)
		return b, err
	})
}

func (s *Service) AddDefaultExit(ctx context.Context) error {
	return s.Submit(ctx, "add default exit", func(st *flowast.Structure, text floworacle.TextReader) (*flowast.Batch, error) {
		b, _, err := floworacle.AddDefaultExit(st, text)
		return b, err
	})
}

// AddConnection connects the source pipe to the target with a success forward. When the
// source already has one, the user is prompted for another name and the connection is
// made by CreateForwardName. Without a prompt the first free success name is used.
func (s *Service) AddConnection(ctx context.Context, sourceID, targetID string) error {
	st, err := s.current()
	if err != nil {
		return err
	}
	source, err := floworacle.GetSourceNode(st, sourceID)
	if err != nil {
		return err
	}

	name := "success"
	if floworacle.HasSuccessForward(source) {
		if s.opts.Prompt != nil {
			s.opts.Prompt.PromptForwardName(ctx, source, targetID)
			return nil
		}
		var names []string
		for _, f := range source.Forwards {
			names = append(names, f.Attributes.Value("name"))
		}
		name = floworacle.UniqueName(names, name)
	}
	return s.CreateForwardName(ctx, source, targetID, name)
}

// CreateForwardName connects source to the target with a forward called name. source is
// looked up again by uid so it may come from an older structure.
func (s *Service) CreateForwardName(ctx context.Context, source *flowast.Node, targetID, name string) error {
	sourceID := source.UID
	return s.Submit(ctx, "add connection", func(st *flowast.Structure, text floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.AddConnection(st, text, sourceID, targetID, name)
	})
}

func (s *Service) DeleteConnection(ctx context.Context, sourceID, targetID string) error {
	return s.Submit(ctx, "delete connection", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.DeleteConnection(st, sourceID, targetID)
	})
}

func (s *Service) MoveConnection(ctx context.Context, sourceID, targetID, newTargetID string) error {
	return s.Submit(ctx, "move connection", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.MoveConnection(st, sourceID, targetID, newTargetID)
	})
}

func (s *Service) SetFirstPipe(ctx context.Context, uid string) error {
	return s.Submit(ctx, "set first pipe", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.SetFirstPipeByID(st, uid)
	})
}

func (s *Service) RemoveFirstPipe(ctx context.Context) error {
	return s.Submit(ctx, "remove first pipe", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.RemoveFirstPipe(st)
	})
}

func (s *Service) DeleteNode(ctx context.Context, uid string, nested bool) error {
	return s.Submit(ctx, "delete node", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.DeleteNode(st, uid, nested)
	})
}

func (s *Service) CreateNestedElement(ctx context.Context, parentID, typ, name string) error {
	return s.Submit(ctx, "create nested element", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.CreateNestedElement(st, parentID, typ, name)
	})
}

func (s *Service) DeleteFlowSettings(ctx context.Context) error {
	return s.Submit(ctx, "delete flow settings", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.DeleteFlowSettings(st), nil
	})
}

func (s *Service) SetFlowSetting(ctx context.Context, name, value string) error {
	return s.Submit(ctx, "set flow setting", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.SetFlowSetting(st, name, value)
	})
}

func (s *Service) DeleteFlowSetting(ctx context.Context, name string) error {
	return s.Submit(ctx, "delete flow setting", func(st *flowast.Structure, _ floworacle.TextReader) (*flowast.Batch, error) {
		return floworacle.DeleteFlowSetting(st, name)
	})
}
