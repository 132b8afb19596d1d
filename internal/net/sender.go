package net

import (
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

// Pusher is the sink a Sender serialises into. *Session implements it; tests
// substitute a capture buffer.
type Pusher interface {
	Send(frame []byte)
}

// Sender builds every outbound packet the server emits. Each method writes
// fields in the exact wire order the client parses; changing an order here
// breaks the client, not the compiler.
type Sender struct {
	p Pusher
}

func NewSender(p Pusher) *Sender {
	return &Sender{p: p}
}

// ── session ─────────────────────────────────────────────────────────

func (s *Sender) Logged(userClass byte) {
	s.p.Send(packet.NewWriter(packet.SLogged).PutByte(userClass).Bytes())
}

func (s *Sender) UserCharIndexInServer(charIndex int16) {
	s.p.Send(packet.NewWriter(packet.SUserCharIndexInServer).PutInt16(charIndex).Bytes())
}

func (s *Sender) DiceRoll(str, agi, intl, cha, con byte) {
	s.p.Send(packet.NewWriter(packet.SDiceRoll).
		PutByte(str).PutByte(agi).PutByte(intl).PutByte(cha).PutByte(con).Bytes())
}

func (s *Sender) Attributes(str, agi, intl, cha, con byte) {
	s.p.Send(packet.NewWriter(packet.SAttributes).
		PutByte(str).PutByte(agi).PutByte(intl).PutByte(cha).PutByte(con).Bytes())
}

func (s *Sender) Pong() {
	s.p.Send(packet.NewWriter(packet.SPong).Bytes())
}

// ── console ─────────────────────────────────────────────────────────

func (s *Sender) ConsoleMsg(msg string, color byte) {
	s.p.Send(packet.NewWriter(packet.SConsoleMsg).PutString(msg).PutByte(color).Bytes())
}

func (s *Sender) MultilineConsoleMsg(lines []string, color byte) {
	for _, line := range lines {
		s.ConsoleMsg(line, color)
	}
}

func (s *Sender) ErrorMsg(msg string) {
	s.p.Send(packet.NewWriter(packet.SErrorMsg).PutString(msg).Bytes())
}

func (s *Sender) MultiMessage(index byte, args ...int16) {
	w := packet.NewWriter(packet.SMultiMessage).PutByte(index)
	for _, a := range args {
		w.PutInt16(a)
	}
	s.p.Send(w.Bytes())
}

// ── character lifecycle ─────────────────────────────────────────────

// CharacterCreateData carries the full appearance block for CHARACTER_CREATE.
type CharacterCreateData struct {
	CharIndex  int16
	Body       int16
	Head       int16
	Heading    byte
	X, Y       byte
	Weapon     int16
	Shield     int16
	Helmet     int16
	FX         int16
	FXLoops    int16
	Name       string
	NickColor  byte
	Privileges byte
}

func (s *Sender) CharacterCreate(d CharacterCreateData) {
	s.p.Send(packet.NewWriter(packet.SCharacterCreate).
		PutInt16(d.CharIndex).
		PutInt16(d.Body).
		PutInt16(d.Head).
		PutByte(d.Heading).
		PutByte(d.X).
		PutByte(d.Y).
		PutInt16(d.Weapon).
		PutInt16(d.Shield).
		PutInt16(d.Helmet).
		PutInt16(d.FX).
		PutInt16(d.FXLoops).
		PutString(d.Name).
		PutByte(d.NickColor).
		PutByte(d.Privileges).
		Bytes())
}

// CharacterChangeData is the appearance delta for CHARACTER_CHANGE.
type CharacterChangeData struct {
	CharIndex int16
	Body      int16
	Head      int16
	Heading   byte
	Weapon    int16
	Shield    int16
	Helmet    int16
	FX        int16
	FXLoops   int16
}

func (s *Sender) CharacterChange(d CharacterChangeData) {
	s.p.Send(packet.NewWriter(packet.SCharacterChange).
		PutInt16(d.CharIndex).
		PutInt16(d.Body).
		PutInt16(d.Head).
		PutByte(d.Heading).
		PutInt16(d.Weapon).
		PutInt16(d.Shield).
		PutInt16(d.Helmet).
		PutInt16(d.FX).
		PutInt16(d.FXLoops).
		Bytes())
}

// CharacterMove deliberately omits heading: the legacy client derives it, a
// heading change rides a separate CHARACTER_CHANGE.
func (s *Sender) CharacterMove(charIndex int16, x, y byte) {
	s.p.Send(packet.NewWriter(packet.SCharacterMove).
		PutInt16(charIndex).PutByte(x).PutByte(y).Bytes())
}

func (s *Sender) CharacterRemove(charIndex int16) {
	s.p.Send(packet.NewWriter(packet.SCharacterRemove).PutInt16(charIndex).Bytes())
}

// ── map / world ─────────────────────────────────────────────────────

func (s *Sender) ChangeMap(mapID, version int16) {
	s.p.Send(packet.NewWriter(packet.SChangeMap).PutInt16(mapID).PutInt16(version).Bytes())
}

func (s *Sender) PosUpdate(x, y byte) {
	s.p.Send(packet.NewWriter(packet.SPosUpdate).PutByte(x).PutByte(y).Bytes())
}

func (s *Sender) BlockPosition(x, y byte, blocked bool) {
	s.p.Send(packet.NewWriter(packet.SBlockPosition).
		PutByte(x).PutByte(y).PutBool(blocked).Bytes())
}

func (s *Sender) ObjectCreate(x, y byte, grh int16) {
	s.p.Send(packet.NewWriter(packet.SObjectCreate).
		PutByte(x).PutByte(y).PutInt16(grh).Bytes())
}

func (s *Sender) ObjectDelete(x, y byte) {
	s.p.Send(packet.NewWriter(packet.SObjectDelete).PutByte(x).PutByte(y).Bytes())
}

// ── combat feedback / stats ─────────────────────────────────────────

func (s *Sender) CreateFX(charIndex, fx, loops int16) {
	s.p.Send(packet.NewWriter(packet.SCreateFX).
		PutInt16(charIndex).PutInt16(fx).PutInt16(loops).Bytes())
}

func (s *Sender) PlayWave(wave, x, y byte) {
	s.p.Send(packet.NewWriter(packet.SPlayWave).
		PutByte(wave).PutByte(x).PutByte(y).Bytes())
}

func (s *Sender) PlayMidi(midi byte) {
	s.p.Send(packet.NewWriter(packet.SPlayMidi).PutByte(midi).Bytes())
}

// UserStatsData mirrors UPDATE_USER_STATS field order.
type UserStatsData struct {
	MaxHP, MinHP     int16
	MaxMana, MinMana int16
	MaxSta, MinSta   int16
	Gold             int32
	Level            byte
	ELU              int32
	Exp              int32
}

func (s *Sender) UpdateUserStats(d UserStatsData) {
	s.p.Send(packet.NewWriter(packet.SUpdateUserStats).
		PutInt16(d.MaxHP).PutInt16(d.MinHP).
		PutInt16(d.MaxMana).PutInt16(d.MinMana).
		PutInt16(d.MaxSta).PutInt16(d.MinSta).
		PutInt32(d.Gold).
		PutByte(d.Level).
		PutInt32(d.ELU).
		PutInt32(d.Exp).
		Bytes())
}

func (s *Sender) UpdateHP(hp int16) {
	s.p.Send(packet.NewWriter(packet.SUpdateHP).PutInt16(hp).Bytes())
}

func (s *Sender) UpdateMana(mana int16) {
	s.p.Send(packet.NewWriter(packet.SUpdateMana).PutInt16(mana).Bytes())
}

func (s *Sender) UpdateSta(sta int16) {
	s.p.Send(packet.NewWriter(packet.SUpdateSta).PutInt16(sta).Bytes())
}

func (s *Sender) UpdateExp(exp int32) {
	s.p.Send(packet.NewWriter(packet.SUpdateExp).PutInt32(exp).Bytes())
}

func (s *Sender) UpdateGold(gold int32) {
	s.p.Send(packet.NewWriter(packet.SUpdateGold).PutInt32(gold).Bytes())
}

func (s *Sender) UpdateStrAndDex(str, dex byte) {
	s.p.Send(packet.NewWriter(packet.SUpdateStrAndDex).PutByte(str).PutByte(dex).Bytes())
}

func (s *Sender) UpdateHungerAndThirst(maxWater, minWater, maxHunger, minHunger byte) {
	s.p.Send(packet.NewWriter(packet.SUpdateHungerAndThirst).
		PutByte(maxWater).PutByte(minWater).PutByte(maxHunger).PutByte(minHunger).Bytes())
}

// ── inventory / commerce / bank ─────────────────────────────────────

// SlotData is the 12-field slot block shared by inventory and bank slots.
type SlotData struct {
	Slot      byte
	ItemID    int16
	Name      string
	Amount    int16
	Equipped  bool
	Grh       int16
	Type      byte
	MaxHit    int16
	MinHit    int16
	MaxDef    int16
	MinDef    int16
	SalePrice float32
}

func putSlot(w *packet.Writer, d SlotData) {
	w.PutByte(d.Slot).
		PutInt16(d.ItemID).
		PutString(d.Name).
		PutInt16(d.Amount).
		PutBool(d.Equipped).
		PutInt16(d.Grh).
		PutByte(d.Type).
		PutInt16(d.MaxHit).
		PutInt16(d.MinHit).
		PutInt16(d.MaxDef).
		PutInt16(d.MinDef).
		PutFloat32(d.SalePrice)
}

func (s *Sender) ChangeInventorySlot(d SlotData) {
	w := packet.NewWriter(packet.SChangeInventorySlot)
	putSlot(w, d)
	s.p.Send(w.Bytes())
}

func (s *Sender) ChangeBankSlot(d SlotData) {
	w := packet.NewWriter(packet.SChangeBankSlot)
	putSlot(w, d)
	s.p.Send(w.Bytes())
}

func (s *Sender) ChangeNPCInventorySlot(d SlotData) {
	w := packet.NewWriter(packet.SChangeNPCInventorySlot)
	putSlot(w, d)
	s.p.Send(w.Bytes())
}

func (s *Sender) ChangeSpellSlot(slot byte, spellID int16, name string) {
	s.p.Send(packet.NewWriter(packet.SChangeSpellSlot).
		PutByte(slot).PutInt16(spellID).PutString(name).Bytes())
}

func (s *Sender) CommerceInit(npcID int16, items []SlotData) {
	w := packet.NewWriter(packet.SCommerceInit).
		PutInt16(npcID).
		PutByte(byte(len(items)))
	for _, it := range items {
		putSlot(w, it)
	}
	s.p.Send(w.Bytes())
}

func (s *Sender) CommerceEnd() {
	s.p.Send(packet.NewWriter(packet.SCommerceEnd).Bytes())
}

func (s *Sender) BankInit() {
	s.p.Send(packet.NewWriter(packet.SBankInit).Bytes())
}

func (s *Sender) BankEnd() {
	s.p.Send(packet.NewWriter(packet.SBankEnd).Bytes())
}

func (s *Sender) MeditateToggle() {
	s.p.Send(packet.NewWriter(packet.SMeditateToggle).Bytes())
}
