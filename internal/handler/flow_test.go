package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// TestFullSessionFlow drives one session through the whole happy path:
// dice, account creation, world entry, movement, chat, melee kill and a
// clean quit.
func TestFullSessionFlow(t *testing.T) {
	d, _ := newTestDeps(t)
	ctx := context.Background()
	s := &fakeSession{}

	d.handleThrowDices(s, reader(packet.CThrowDices))
	require.True(t, s.rolled, "dice must be cached on the session")
	require.True(t, s.has(packet.SDiceRoll))

	body := wireStr("Aventurero")
	body = append(body, wireStr("secreta")...)
	body = append(body, 1, 0, 0, 1, 2, 0, 5, 0)
	body = append(body, wireStr("a@b.c")...)
	body = append(body, 1)
	d.handleCreateAccount(s, reader(packet.CCreateAccount, body...))
	require.True(t, s.authed, "account creation must enter the world")

	mapID, x, y, ok := d.State.PlayerPos(s.userID)
	require.True(t, ok)
	require.Equal(t, int16(1), mapID)

	s.reset()
	d.handleWalk(s, reader(packet.CWalk, byte(world.North)))
	_, _, ny, _ := d.State.PlayerPos(s.userID)
	require.Equal(t, y-1, ny, "walk north is one tile up")

	d.handleTalk(s, reader(packet.CTalk, wireStr("hola mundo")...))
	require.True(t, s.has(packet.SConsoleMsg), "speaker hears their own line")

	// A wolf on the tile the player faces (south after a heading turn).
	d.handleChangeHeading(s, reader(packet.CChangeHeading, byte(world.South)))
	wolf := d.NPCs.Spawn(&data.NPCTemplate{
		ID: 9, Name: "Lobo", MaxHP: 1, Attackable: true, Hostile: true,
	}, 1, x, ny+1, world.North)
	require.NotNil(t, wolf)

	s.reset()
	d.handleAttack(s, reader(packet.CAttack))
	require.Nil(t, d.State.NPCAt(1, x, ny+1), "one hit must fell a 1 hp wolf")
	require.True(t, s.has(packet.SConsoleMsg))

	d.handleQuit(s, reader(packet.CQuit))
	require.True(t, s.closed, "quit must close the session")

	_, err := d.Accounts.Authenticate(ctx, "Aventurero", "secreta")
	require.NoError(t, err, "the account must survive the session")
}
