package domain

import "fmt"

// DrawState is the drawing-tool state machine for a session. Listener
// attach/detach on the map surface belongs to the transitions here, not to
// ad hoc per-mode wiring in event handlers.
type DrawState string

const (
	DrawIdle      DrawState = "idle"
	DrawRectangle DrawState = "drawing_rectangle"
	DrawCircle    DrawState = "drawing_circle"
	DrawPolygon   DrawState = "drawing_polygon"
	DrawCorridor  DrawState = "drawing_corridor"
)

// drawTool maps a selectable tool to the state it enters.
var drawTool = map[ShapeKind]DrawState{
	ShapeRectangle: DrawRectangle,
	ShapeCircle:    DrawCircle,
	ShapePolygon:   DrawPolygon,
	ShapeCorridor:  DrawCorridor,
}

// SelectTool transitions from any state into drawing the given shape kind.
// Selecting a tool while another draw is in progress cancels it first.
func (d DrawState) SelectTool(kind ShapeKind) (DrawState, error) {
	next, ok := drawTool[kind]
	if !ok {
		return d, fmt.Errorf("unknown drawing tool %q", kind)
	}
	return next, nil
}

// Complete finishes the current draw and returns to idle. Completing while
// idle is a protocol error: there is nothing to finish.
func (d DrawState) Complete() (DrawState, error) {
	if d == DrawIdle {
		return d, fmt.Errorf("no drawing in progress")
	}
	return DrawIdle, nil
}

// Cancel abandons the current draw. Cancelling while idle is a no-op.
func (d DrawState) Cancel() DrawState {
	return DrawIdle
}

// Kind returns the shape kind being drawn, or "" when idle.
func (d DrawState) Kind() ShapeKind {
	for kind, state := range drawTool {
		if state == d {
			return kind
		}
	}
	return ""
}
