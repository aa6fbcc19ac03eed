package plugin

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/interval"
)

// Command ops a plugin may return from a hook callback, as the "op" field
// of each element in the returned JSON array.
const (
	OpInsertText    = "insert_text"
	OpDeleteRange   = "delete_range"
	OpReplaceRange  = "replace_range"
	OpAddOverlay    = "add_overlay"
	OpRemoveOverlay = "remove_overlay"
	OpClearOverlays = "clear_overlays"
	OpSetStatus     = "set_status"
	OpShowPopup     = "show_popup"
	OpHidePopup     = "hide_popup"
)

// capabilityFor maps a command op to the capability that authorizes it.
func capabilityFor(op string) (Capability, bool) {
	switch op {
	case OpInsertText, OpDeleteRange, OpReplaceRange:
		return CapBufferWrite, true
	case OpAddOverlay, OpRemoveOverlay, OpClearOverlays:
		return CapOverlays, true
	case OpSetStatus:
		return CapStatus, true
	case OpShowPopup, OpHidePopup:
		return CapPopups, true
	default:
		return "", false
	}
}

// Command is one decoded plugin instruction.
type Command struct {
	Op string

	// Buffer ops.
	Position int64
	Start    int64
	End      int64
	Text     string

	// Overlay ops.
	OverlayID interval.ID
	Priority  int32
	FaceKind  uint8
	FaceRGB   [3]float64

	// Status / popup ops.
	Message   string
	Items     []string
	Transient bool
	PopupID   uint64
}

// ParseCommands decodes the JSON array a hook callback returned. A nil
// slice with nil error means the callback returned nothing actionable
// (empty string, "null", or an empty array).
func ParseCommands(raw string) ([]Command, error) {
	if raw == "" {
		return nil, nil
	}
	parsed := gjson.Parse(raw)
	if parsed.Type == gjson.Null {
		return nil, nil
	}
	if !parsed.IsArray() {
		return nil, fmt.Errorf("plugin result must be a JSON array, got %s", parsed.Type)
	}

	var cmds []Command
	var parseErr error
	parsed.ForEach(func(_, item gjson.Result) bool {
		cmd, err := parseCommand(item)
		if err != nil {
			parseErr = err
			return false
		}
		cmds = append(cmds, cmd)
		return true
	})
	return cmds, parseErr
}

func parseCommand(item gjson.Result) (Command, error) {
	op := item.Get("op").String()
	if _, ok := capabilityFor(op); !ok {
		return Command{}, fmt.Errorf("unknown plugin op %q", op)
	}

	cmd := Command{
		Op:        op,
		Position:  item.Get("position").Int(),
		Start:     item.Get("start").Int(),
		End:       item.Get("end").Int(),
		Text:      item.Get("text").String(),
		OverlayID: interval.ID(item.Get("overlay_id").Uint()),
		Priority:  int32(item.Get("priority").Int()),
		FaceKind:  uint8(item.Get("face_kind").Uint()),
		Message:   item.Get("message").String(),
		Transient: item.Get("transient").Bool(),
		PopupID:   item.Get("popup_id").Uint(),
	}
	rgb := item.Get("rgb")
	if rgb.IsArray() {
		for i, v := range rgb.Array() {
			if i > 2 {
				break
			}
			cmd.FaceRGB[i] = v.Float()
		}
	}
	item.Get("items").ForEach(func(_, v gjson.Result) bool {
		cmd.Items = append(cmd.Items, v.String())
		return true
	})
	return cmd, nil
}

// Event converts a command to the engine event it submits, or nil for
// commands handled outside the event stream (set_status).
func (c Command) Event() *event.Event {
	switch c.Op {
	case OpInsertText:
		return event.NewInsert(c.Position, c.Text)
	case OpDeleteRange:
		return event.NewDelete(buffer.Range{Start: c.Start, End: c.End})
	case OpReplaceRange:
		return event.NewReplace(buffer.Range{Start: c.Start, End: c.End}, c.Text)
	case OpAddOverlay:
		return &event.Event{
			Kind: event.KindAddOverlay,
			Overlay: event.OverlaySpec{
				Start:    c.Start,
				End:      c.End,
				Priority: c.Priority,
				FaceKind: c.FaceKind,
				FaceRGB:  c.FaceRGB,
			},
		}
	case OpRemoveOverlay:
		return &event.Event{Kind: event.KindRemoveOverlay, OverlayID: c.OverlayID}
	case OpClearOverlays:
		return &event.Event{Kind: event.KindClearOverlays}
	case OpShowPopup:
		return &event.Event{
			Kind:      event.KindShowPopup,
			PopupSpec: event.PopupSpec{Items: c.Items, Transient: c.Transient},
		}
	case OpHidePopup:
		return &event.Event{Kind: event.KindHidePopup, PopupID: c.PopupID}
	default:
		return nil
	}
}
