package container

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simonhull/audiotag/internal/binary"
	"github.com/simonhull/audiotag/internal/types"
)

// ErrUnknownChunk is wrapped in a ChunkError when a walker configured with
// FailUnknown meets an identifier it has no handler for.
var ErrUnknownChunk = errors.New("unknown chunk")

// HandlerFunc decodes one chunk payload. c is a view bounded to exactly the
// payload; h describes the chunk.
type HandlerFunc func(h Header, c *binary.Cursor) error

// Handler pairs a decode function with its failure policy.
type Handler struct {
	Fn HandlerFunc

	// Required handlers abort the walk on failure. Failures in optional
	// handlers become warnings and the walk continues past the chunk.
	Required bool
}

// UnknownPolicy decides what happens to chunks without a handler.
type UnknownPolicy int

const (
	// SkipUnknown skips unknown chunks by their declared length.
	SkipUnknown UnknownPolicy = iota
	// FailUnknown aborts the walk at the first unknown chunk.
	FailUnknown
)

// Node is one visited chunk. Parent chunks carry their children.
type Node struct {
	Header
	Children []*Node
	Handled  bool
}

// Walker traverses a chunk sequence, dispatching known identifiers to
// handlers and skipping the rest.
type Walker struct {
	Layout   Layout
	Handlers map[string]Handler

	// Match is consulted for identifiers missing from Handlers.
	Match func(id string) (Handler, bool)

	// Required lists identifiers that must appear somewhere in the walk.
	Required []string

	Unknown UnknownPolicy

	// Stop ends the walk after the chunk it returns true for.
	Stop func(h Header) bool

	Logger zerolog.Logger

	// Warnings collects non-fatal handler failures.
	Warnings []types.Warning

	seen map[string]bool
}

// NewWalker creates a walker for the layout with no handlers.
func NewWalker(l Layout) *Walker {
	return &Walker{
		Layout:   l,
		Handlers: make(map[string]Handler),
		Logger:   zerolog.Nop(),
	}
}

// Handle registers an optional handler.
func (w *Walker) Handle(id string, fn HandlerFunc) {
	w.Handlers[id] = Handler{Fn: fn}
}

// Require registers a handler whose failure aborts the walk and whose
// identifier must be present.
func (w *Walker) Require(id string, fn HandlerFunc) {
	w.Handlers[id] = Handler{Fn: fn, Required: true}
	w.Required = append(w.Required, id)
}

// Walk visits every chunk in [start, end) of c and returns the node tree.
//
// The walk succeeds only when the last chunk (plus alignment) ends exactly
// at end, or when Stop or trailing padding ends it early. Nodes visited
// before a failure are returned alongside the error. Warnings and the set
// of seen identifiers start empty on every call.
func (w *Walker) Walk(c *binary.Cursor, start, end int64) ([]*Node, error) {
	w.seen = make(map[string]bool)
	w.Warnings = nil

	if start > end {
		return nil, &types.CorruptedFileError{
			Path:   c.Path(),
			Reason: fmt.Sprintf("%s container ends at %d before it starts", w.Layout.Name, end),
			Offset: start,
		}
	}
	view, err := c.View(start, end-start)
	if err != nil {
		return nil, err
	}

	nodes, err := w.walk(view, "")
	if err != nil {
		return nodes, err
	}

	for _, id := range w.Required {
		if !w.seen[id] {
			return nodes, &types.RequiredChunkMissingError{Path: c.Path(), Layout: w.Layout.Name, ID: id}
		}
	}
	return nodes, nil
}

// walk consumes v from its position to its limit.
func (w *Walker) walk(v *binary.Cursor, parent string) ([]*Node, error) {
	l := w.Layout
	end := v.Limit()
	var nodes []*Node

	for v.Position() < end {
		h, err := ReadHeader(v, l)
		if errors.Is(err, ErrPadding) {
			w.Logger.Debug().
				Str("layout", l.Name).
				Int64("offset", v.Position()).
				Int64("size", end-v.Position()).
				Msg("padding")
			break
		}
		if err != nil {
			return nodes, err
		}
		h.Parent = parent

		if h.End() > end {
			return nodes, &types.InvalidChunkSizeError{
				Path:      v.Path(),
				ID:        h.ID,
				Reason:    "payload runs past end of container",
				Offset:    h.Offset,
				Declared:  h.Declared,
				Available: end - h.PayloadOffset(),
			}
		}

		node := &Node{Header: h}
		nodes = append(nodes, node)
		w.seen[h.ID] = true

		if err := w.visit(v, node); err != nil {
			return nodes, err
		}

		if err := v.SeekTo(h.End()); err != nil {
			return nodes, err
		}
		// A missing final pad byte at the container end is tolerated.
		if l.Align == AlignEven && h.Payload%2 == 1 && v.Position() < end {
			if err := v.Skip(1); err != nil {
				return nodes, err
			}
		}

		if w.Stop != nil && w.Stop(h) {
			return nodes, nil
		}
	}

	return nodes, nil
}

func (w *Walker) visit(v *binary.Cursor, node *Node) error {
	h := node.Header
	payload, err := v.View(h.PayloadOffset(), h.Payload)
	if err != nil {
		return err
	}

	if handler, ok := w.handler(h.ID); ok {
		w.debug(h, "chunk")
		if err := handler.Fn(h, payload); err != nil {
			if handler.Required {
				return &types.ChunkError{Err: err, Path: v.Path(), ID: h.ID, Offset: h.Offset}
			}
			w.warn(h, err)
			return nil
		}
		if w.Layout.Strict && payload.Remaining() != 0 {
			return &types.InvalidChunkSizeError{
				Path:      v.Path(),
				ID:        h.ID,
				Reason:    fmt.Sprintf("handler left %d bytes unconsumed", payload.Remaining()),
				Offset:    h.Offset,
				Declared:  h.Declared,
				Available: h.Payload,
			}
		}
		node.Handled = true
		return nil
	}

	if prefix, ok := w.Layout.ParentPrefix(h); ok {
		w.debug(h, "parent")
		if int64(prefix) > h.Payload {
			return &types.InvalidChunkSizeError{
				Path:      v.Path(),
				ID:        h.ID,
				Reason:    fmt.Sprintf("payload shorter than %d-byte parent prefix", prefix),
				Offset:    h.Offset,
				Declared:  h.Declared,
				Available: h.Payload,
			}
		}
		children, err := payload.View(h.PayloadOffset()+int64(prefix), h.Payload-int64(prefix))
		if err != nil {
			return err
		}
		kids, err := w.walk(children, h.ID)
		node.Children = kids
		return err
	}

	w.debug(h, "skip")
	if w.Unknown == FailUnknown {
		return &types.ChunkError{Err: ErrUnknownChunk, Path: v.Path(), ID: h.ID, Offset: h.Offset}
	}
	return nil
}

func (w *Walker) handler(id string) (Handler, bool) {
	if h, ok := w.Handlers[id]; ok {
		return h, true
	}
	if w.Match != nil {
		return w.Match(id)
	}
	return Handler{}, false
}

func (w *Walker) debug(h Header, msg string) {
	w.Logger.Debug().
		Str("layout", w.Layout.Name).
		Str("id", h.ID).
		Int64("offset", h.Offset).
		Int64("size", h.Payload).
		Msg(msg)
}

func (w *Walker) warn(h Header, err error) {
	msg := fmt.Sprintf("%s %q: %v", w.Layout.Name, h.ID, err)
	w.Logger.Warn().
		Str("layout", w.Layout.Name).
		Str("id", h.ID).
		Int64("offset", h.Offset).
		Err(err).
		Msg("chunk skipped")
	w.Warnings = append(w.Warnings, types.Warning{Stage: "container", Message: msg, Offset: h.Offset})
}
