package handler

import (
	"errors"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

const (
	maxUsernameLen = 30
	minPasswordLen = 4

	// World entry point for fresh characters.
	startMap int16 = 1
	startX         = 50
	startY         = 50

	// Ambient track the client starts on world entry.
	entryMidi byte = 2
)

// handleThrowDices rolls the five attributes and caches them on the
// session until CREATE_ACCOUNT claims them.
func (d *Deps) handleThrowDices(sess any, _ *packet.Reader) {
	s := sess.(Session)
	var dice [5]byte
	for i := range dice {
		dice[i] = byte(6 + rand.Intn(13)) // 6..18
	}
	s.StoreDice(dice)
	net.NewSender(s).DiceRoll(dice[0], dice[1], dice[2], dice[3], dice[4])
}

func (d *Deps) handleLogin(sess any, r *packet.Reader) {
	s := sess.(Session)
	username := r.String()
	password := r.String()
	if r.Err() != nil {
		return
	}
	if s.Authenticated() {
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Ya estás conectado.").Bytes())
		return
	}
	ctx := d.ctx()

	acc, err := d.Accounts.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, persist.ErrBadCredentials) {
			s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Usuario o contraseña incorrectos.").Bytes())
			return
		}
		d.logErr("login: authenticate", 0, err)
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Error interno, intentá de nuevo.").Bytes())
		return
	}
	if d.State.IsConnected(acc.Username) {
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Ese personaje ya está conectado.").Bytes())
		return
	}
	d.enterWorld(s, acc.ID, acc.Username)
}

// handleCreateAccount creates the account and its character, then drops
// the new player straight into the world.
func (d *Deps) handleCreateAccount(sess any, r *packet.Reader) {
	s := sess.(Session)
	username := strings.TrimSpace(r.String())
	password := r.String()
	r.Byte()   // race, cosmetic for now
	r.Int16()  // reserved
	r.Byte()   // gender
	r.Byte()   // job
	r.Byte()   // reserved
	head := int16(r.Uint16())
	email := r.String()
	r.Byte() // home town
	if r.Err() != nil {
		return
	}
	if s.Authenticated() {
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Ya estás conectado.").Bytes())
		return
	}
	if username == "" || len(username) > maxUsernameLen {
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Nombre de personaje inválido.").Bytes())
		return
	}
	if len(password) < minPasswordLen {
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("La contraseña es demasiado corta.").Bytes())
		return
	}
	ctx := d.ctx()

	acc, err := d.Accounts.Create(ctx, username, password, email)
	if err != nil {
		if errors.Is(err, persist.ErrAccountExists) {
			s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Ese nombre ya está en uso.").Bytes())
			return
		}
		d.logErr("create account", 0, err)
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Error interno, intentá de nuevo.").Bytes())
		return
	}

	dice, rolled := s.LoadDice()
	if !rolled {
		dice = [5]byte{15, 15, 15, 15, 15}
	}
	rec := d.newCharacter(acc, dice, head)
	if err := d.Players.Create(ctx, rec); err != nil {
		d.logErr("create character", acc.ID, err)
		s.Send(packet.NewWriter(packet.SErrorMsg).PutString("Error interno, intentá de nuevo.").Bytes())
		return
	}
	d.enterWorld(s, acc.ID, acc.Username)
}

// newCharacter builds the level-1 sheet from a dice roll. Base vitals
// grow with CON and INT; the curve from there belongs to Progress.
func (d *Deps) newCharacter(acc *persist.Account, dice [5]byte, head int16) *persist.PlayerRecord {
	char := d.Cfg.Game.Character
	attrs := persist.Attributes{
		Strength:     dice[0],
		Agility:      dice[1],
		Intelligence: dice[2],
		Charisma:     dice[3],
		Constitution: dice[4],
	}
	maxHP := int16(20 + int(attrs.Constitution)/2 + char.HPPerCon)
	maxMana := int16(50 + int(attrs.Intelligence) + char.ManaPerInt)
	if head <= 0 {
		head = 1
	}
	return &persist.PlayerRecord{
		UserID:   acc.ID,
		Username: acc.Username,
		Stats: persist.Stats{
			MaxHP: maxHP, MinHP: maxHP,
			MaxMana: maxMana, MinMana: maxMana,
			MaxSta: 100, MinSta: 100,
			Gold:  int32(char.InitialGold),
			Level: 1,
			Elu:   d.Progress.EluFor(1),
		},
		Position:   persist.Position{Map: startMap, X: startX, Y: startY, Heading: byte(world.South)},
		Attributes: attrs,
		Hunger:     persist.HungerThirst{MaxAgu: 100, MinAgu: 100, MaxHam: 100, MinHam: 100},
		Appearance: persist.Appearance{Body: 1, Head: head},
		Alive:      true,
		Inventory:  map[byte]persist.InventorySlot{},
		Bank:       map[byte]persist.InventorySlot{},
	}
}

// enterWorld runs the login sequence: own state first, then the map
// contents, then the roster install, and only then the announcement to
// everyone else. The order keeps arriving players from ever seeing
// themselves or missing an existing occupant.
func (d *Deps) enterWorld(s Session, userID int32, username string) {
	ctx := d.ctx()
	snd := net.NewSender(s)

	rec, err := d.Players.Load(ctx, userID)
	if err != nil {
		d.logErr("enter world: load player", userID, err)
		snd.ErrorMsg("Error interno, intentá de nuevo.")
		return
	}

	pos := rec.Position
	if d.Cfg.Game.MaxPlayersPerMap > 0 && d.State.PlayersInMapCount(pos.Map) >= d.Cfg.Game.MaxPlayersPerMap {
		snd.ErrorMsg("El mapa está lleno.")
		return
	}
	x, y, ok := d.freeTileNear(pos.Map, pos.X, pos.Y)
	if !ok {
		snd.ErrorMsg("No hay lugar para entrar al mundo.")
		return
	}

	// The char index comes from a recycling pool below the NPC range, so
	// it stays unique among live characters no matter how large user ids
	// grow.
	charIndex := d.State.AllocPlayerCharIndex()
	if charIndex == 0 {
		snd.ErrorMsg("No hay lugar para entrar al mundo.")
		return
	}
	s.SetUser(userID, username)

	snd.Logged(0)
	snd.UserCharIndexInServer(charIndex)
	snd.ChangeMap(pos.Map, d.mapVersion(pos.Map))
	snd.PosUpdate(byte(x), byte(y))
	snd.UpdateUserStats(game.StatsData(rec.Stats))
	snd.UpdateHungerAndThirst(rec.Hunger.MaxAgu, rec.Hunger.MinAgu, rec.Hunger.MaxHam, rec.Hunger.MinHam)
	snd.PlayMidi(entryMidi)

	for slot, item := range rec.Inventory {
		snd.ChangeInventorySlot(d.slotData(slot, item))
	}
	for i, spellID := range rec.Spells {
		name := ""
		if tpl := d.SpellTpls.Get(spellID); tpl != nil {
			name = tpl.Name
		}
		snd.ChangeSpellSlot(byte(i+1), spellID, name)
	}

	d.paintMap(ctx, snd, pos.Map, userID)

	if !d.State.AddPlayer(pos.Map, userID, username, charIndex, x, y, s) {
		// Lost the tile to a race; take the next free one.
		if x, y, ok = d.freeTileNear(pos.Map, x, y); !ok || !d.State.AddPlayer(pos.Map, userID, username, charIndex, x, y, s) {
			d.State.ReleaseCharIndex(charIndex)
			snd.ErrorMsg("No hay lugar para entrar al mundo.")
			return
		}
		snd.PosUpdate(byte(x), byte(y))
	}
	if x != pos.X || y != pos.Y {
		pos.X, pos.Y = x, y
		if err := d.Players.SetPosition(ctx, userID, pos); err != nil {
			d.logErr("enter world: save position", userID, err)
		}
	}

	self, _ := d.State.PlayerView(userID)
	d.Bcast.CharacterCreate(pos.Map, userID, x, y, d.createDataFor(ctx, self))
	d.Log.Info("player entered world",
		zap.Int32("user", userID),
		zap.String("username", username),
		zap.Int16("map", pos.Map),
	)
}
