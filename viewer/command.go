package viewer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
	"github.com/gekko3d/splitworld/world"
)

var ErrUnknownCommand = errors.New("unknown command")

// command is a message sent by a spectator. Which fields matter depends on
// Type:
//
//	mouse     X, Y, Left, Right
//	reset     respawn the blobby
//	session   Action: host, join or leave
//	colors    Mode: intrinsic, ownership, mass or motion
//	viewport  Min, Max in world units
type command struct {
	Type   string     `json:"type"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Left   bool       `json:"left"`
	Right  bool       `json:"right"`
	Action string     `json:"action"`
	Mode   string     `json:"mode"`
	Min    mgl64.Vec2 `json:"min"`
	Max    mgl64.Vec2 `json:"max"`
}

func (c command) apply(src Source) error {
	w := src.World()
	switch c.Type {
	case "mouse":
		w.UpdateMouseInput(mgl64.Vec2{c.X, c.Y}, c.Left, c.Right)
	case "reset":
		w.ResetBlobby()
	case "session":
		switch c.Action {
		case "host":
			src.CreateSession()
		case "join":
			src.JoinSession()
		case "leave":
			src.TerminateSession()
		default:
			return fmt.Errorf("%w: session %q", ErrUnknownCommand, c.Action)
		}
	case "colors":
		m, ok := parseColorMode(c.Mode)
		if !ok {
			return fmt.Errorf("%w: colors %q", ErrUnknownCommand, c.Mode)
		}
		w.SetColorMode(m)
	case "viewport":
		w.SetClientBounds(geom.NewAABB(c.Min, c.Max))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
	return nil
}

func parseColorMode(s string) (world.ColorMode, bool) {
	for m := world.ColorIntrinsic; m <= world.ColorMotion; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}
