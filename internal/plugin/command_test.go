package plugin

import (
	"testing"

	"github.com/ninelines/scribe/internal/engine/event"
)

func TestParseCommands(t *testing.T) {
	raw := `[
		{"op": "insert_text", "position": 5, "text": "hi"},
		{"op": "add_overlay", "start": 0, "end": 4, "priority": 100, "face_kind": 1, "rgb": [1.0, 0.2, 0.2]},
		{"op": "set_status", "message": "done"},
		{"op": "show_popup", "items": ["a", "b"], "transient": true}
	]`
	cmds, err := ParseCommands(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 4 {
		t.Fatalf("len = %d, want 4", len(cmds))
	}

	if c := cmds[0]; c.Op != OpInsertText || c.Position != 5 || c.Text != "hi" {
		t.Errorf("insert = %+v", c)
	}
	if c := cmds[1]; c.Op != OpAddOverlay || c.End != 4 || c.FaceRGB[0] != 1.0 {
		t.Errorf("overlay = %+v", c)
	}
	if c := cmds[2]; c.Message != "done" {
		t.Errorf("status = %+v", c)
	}
	if c := cmds[3]; len(c.Items) != 2 || !c.Transient {
		t.Errorf("popup = %+v", c)
	}
}

func TestParseCommandsEmptyForms(t *testing.T) {
	for _, raw := range []string{"", "null", "[]"} {
		cmds, err := ParseCommands(raw)
		if err != nil || len(cmds) != 0 {
			t.Errorf("ParseCommands(%q) = %v, %v", raw, cmds, err)
		}
	}
}

func TestParseCommandsRejectsUnknownOp(t *testing.T) {
	if _, err := ParseCommands(`[{"op": "format_disk"}]`); err == nil {
		t.Fatal("expected error for unknown op")
	}
	if _, err := ParseCommands(`{"op": "insert_text"}`); err == nil {
		t.Fatal("expected error for non-array result")
	}
}

func TestCommandToEvent(t *testing.T) {
	ins := Command{Op: OpInsertText, Position: 3, Text: "x"}
	if e := ins.Event(); e.Kind != event.KindInsert || e.Range.Start != 3 || e.NewText != "x" {
		t.Errorf("insert event = %+v", e)
	}

	del := Command{Op: OpDeleteRange, Start: 1, End: 5}
	if e := del.Event(); e.Kind != event.KindDelete || e.Range.End != 5 {
		t.Errorf("delete event = %+v", e)
	}

	status := Command{Op: OpSetStatus, Message: "hello"}
	if e := status.Event(); e != nil {
		t.Errorf("set_status produced an event: %+v", e)
	}
}
