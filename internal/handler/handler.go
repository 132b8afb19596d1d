package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// Session is the slice of a connection the handlers need. The concrete
// type lives in the net package; tests plug in a fake.
type Session interface {
	Send(frame []byte)
	SetUser(userID int32, username string)
	UserID() int32
	Username() string
	Authenticated() bool
	Close()
	StoreDice(d [5]byte)
	LoadDice() ([5]byte, bool)
}

// Deps wires every handler to the engines and stores it needs. One value
// is shared by all sessions; everything behind it is safe for concurrent
// use.
type Deps struct {
	Cfg       *config.Config
	State     *world.State
	Maps      *data.MapRegistry
	Items     *data.ItemTable
	NPCTpls   *data.NPCTable
	SpellTpls *data.SpellTable
	Players   persist.PlayerRepo
	Accounts  persist.AccountRepo
	Bcast     *game.Broadcaster
	NPCs      *game.NPCEngine
	Combat    *game.CombatEngine
	Spells    *game.SpellEngine
	Progress  *game.Progress
	StartedAt time.Time
	Log       *zap.Logger
}

// RegisterAll installs every client packet route. The auth flag is part
// of the wire contract: pre-login packets are dice, login and account
// creation; everything else needs a live character.
func RegisterAll(reg *packet.Registry, d *Deps) {
	reg.Register(packet.CThrowDices, false, d.handleThrowDices)
	reg.Register(packet.CLogin, false, d.handleLogin)
	reg.Register(packet.CCreateAccount, false, d.handleCreateAccount)

	reg.Register(packet.CWalk, true, d.handleWalk)
	reg.Register(packet.CChangeHeading, true, d.handleChangeHeading)
	reg.Register(packet.CTalk, true, d.handleTalk)
	reg.Register(packet.CAttack, true, d.handleAttack)
	reg.Register(packet.CCastSpell, true, d.handleCastSpell)
	reg.Register(packet.CPickUp, true, d.handlePickUp)
	reg.Register(packet.CDrop, true, d.handleDrop)
	reg.Register(packet.CEquipItem, true, d.handleEquipItem)
	reg.Register(packet.CLeftClick, true, d.handleLeftClick)
	reg.Register(packet.CDoubleClick, true, d.handleDoubleClick)
	reg.Register(packet.CCommerceEnd, true, d.handleCommerceEnd)
	reg.Register(packet.CBankEnd, true, d.handleBankEnd)
	reg.Register(packet.CMeditate, true, d.handleMeditate)
	reg.Register(packet.CPing, true, d.handlePing)
	reg.Register(packet.CQuit, true, d.handleQuit)
	reg.Register(packet.COnline, true, d.handleOnline)
	reg.Register(packet.CUptime, true, d.handleUptime)
	reg.Register(packet.CAyuda, true, d.handleAyuda)
}

func (d *Deps) ctx() context.Context {
	return context.Background()
}

// slotData builds the wire slot block from a persisted slot and its item
// template.
func (d *Deps) slotData(slot byte, s persist.InventorySlot) net.SlotData {
	it := d.Items.Get(s.ItemID)
	if it == nil {
		return net.SlotData{Slot: slot}
	}
	return net.SlotData{
		Slot:      slot,
		ItemID:    it.ID,
		Name:      it.Name,
		Amount:    s.Amount,
		Equipped:  s.Equipped,
		Grh:       it.Grh,
		Type:      it.WireType(),
		MaxHit:    it.MaxHit,
		MinHit:    it.MinHit,
		MaxDef:    it.MaxDef,
		MinDef:    it.MinDef,
		SalePrice: it.Price,
	}
}

// visibleBody resolves what a player currently looks like, morph included.
func (d *Deps) visibleBody(ctx context.Context, userID int32) (persist.Appearance, error) {
	app, err := d.Players.GetAppearance(ctx, userID)
	if err != nil {
		return persist.Appearance{}, err
	}
	m, err := d.Players.GetMorph(ctx, userID)
	if err != nil {
		return app, nil
	}
	if m != nil && time.Now().Before(m.Expires) {
		app.Body = m.Body
		app.Head = m.Head
	}
	return app, nil
}

// createDataFor assembles the CHARACTER_CREATE block for one player.
func (d *Deps) createDataFor(ctx context.Context, v world.PlayerView) net.CharacterCreateData {
	out := net.CharacterCreateData{
		CharIndex: v.CharIndex,
		Heading:   byte(world.South),
		X:         byte(v.X),
		Y:         byte(v.Y),
		Name:      v.Username,
	}
	if app, err := d.visibleBody(ctx, v.UserID); err == nil {
		out.Body = app.Body
		out.Head = app.Head
		out.Weapon = app.Weapon
		out.Shield = app.Shield
		out.Helmet = app.Helmet
	}
	if pos, err := d.Players.GetPosition(ctx, v.UserID); err == nil && world.Heading(pos.Heading).Valid() {
		out.Heading = pos.Heading
	}
	return out
}

// changeDataFor is createDataFor without the spatial fields, for
// CHARACTER_CHANGE broadcasts.
func (d *Deps) changeDataFor(ctx context.Context, userID int32, charIndex int16, heading byte) net.CharacterChangeData {
	out := net.CharacterChangeData{CharIndex: charIndex, Heading: heading}
	if app, err := d.visibleBody(ctx, userID); err == nil {
		out.Body = app.Body
		out.Head = app.Head
		out.Weapon = app.Weapon
		out.Shield = app.Shield
		out.Helmet = app.Helmet
	}
	return out
}

/// paintMap streams the visible content of a map to an arriving session:
// every player, every NPC, every ground stack.
func (d *Deps) paintMap(ctx context.Context, snd *net.Sender, mapID int16, selfID int32) {
	for _, other := range d.State.PlayersInMap(mapID, selfID) {
		snd.CharacterCreate(d.createDataFor(ctx, other))
	}
	d.NPCs.SendNPCsToPlayer(snd, mapID)
	for _, tile := range d.State.GroundItemsInMap(mapID) {
		if len(tile.Items) == 0 {
			continue
		}
		snd.ObjectCreate(byte(tile.X), byte(tile.Y), tile.Items[0].Grh)
	}
}

// freeTileNear spirals out from (x,y) to the nearest walkable, unoccupied
// tile.
func (d *Deps) freeTileNear(mapID int16, x, y int) (int, int, bool) {
	free := func(tx, ty int) bool {
		return d.Maps.CanMoveTo(mapID, tx, ty) && !d.State.IsTileOccupied(mapID, tx, ty)
	}
	if free(x, y) {
		return x, y, true
	}
	for r := 1; r <= 5; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if world.Chebyshev(0, 0, dx, dy) != r {
					continue
				}
				if free(x+dx, y+dy) {
					return x + dx, y + dy, true
				}
			}
		}
	}
	return 0, 0, false
}

// mapVersion returns the client-facing version of a map (0 when unknown).
func (d *Deps) mapVersion(mapID int16) int16 {
	if m := d.Maps.Get(mapID); m != nil {
		return m.Version
	}
	return 0
}

func (d *Deps) logErr(msg string, userID int32, err error) {
	d.Log.Error(msg, zap.Int32("user", userID), zap.Error(err))
}
