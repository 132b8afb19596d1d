package handler

import (
	"fmt"
	"strings"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

const maxTalkLen = 160

// handleTalk shows the line to everyone in visual range, sender included.
func (d *Deps) handleTalk(sess any, r *packet.Reader) {
	s := sess.(Session)
	msg := strings.TrimSpace(r.String())
	if r.Err() != nil || msg == "" {
		return
	}
	if len(msg) > maxTalkLen {
		msg = msg[:maxTalkLen]
	}
	v, ok := d.State.PlayerView(s.UserID())
	if !ok {
		return
	}
	d.Bcast.ConsoleToArea(v.Map, v.X, v.Y, 0, fmt.Sprintf("%s: %s", v.Username, msg), game.ColorTalk)
}
