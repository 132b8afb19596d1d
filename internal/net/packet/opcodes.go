package packet

// Client → server packet ids. Numbering follows the classic Argentum wire
// contract; ids missing from the table are not routed.
const (
	CThrowDices    byte = 1
	CLogin         byte = 2
	CDoubleClick   byte = 3
	CCreateAccount byte = 4
	CTalk          byte = 5
	CWalk          byte = 6
	CDrop          byte = 15
	CCommerceEnd   byte = 17
	CEquipItem     byte = 19
	CBankEnd       byte = 21
	CPing          byte = 22
	CAyuda         byte = 23
	CLeftClick     byte = 26
	CUptime        byte = 27
	COnline        byte = 28
	CQuit          byte = 29
	CMeditate      byte = 30
	CPickUp        byte = 32
	CAttack        byte = 34
	CChangeHeading byte = 37
	CCastSpell     byte = 39
)

// Server → client packet ids. LOGGED=0 and USER_CHAR_INDEX_IN_SERVER=28 are
// pinned by the client; the rest form a stable table the client is built
// against.
const (
	SLogged                 byte = 0
	SChangeMap              byte = 1
	SPosUpdate              byte = 2
	SCharacterCreate        byte = 3
	SCharacterRemove        byte = 4
	SCharacterMove          byte = 5
	SCharacterChange        byte = 6
	SObjectCreate           byte = 7
	SObjectDelete           byte = 8
	SBlockPosition          byte = 9
	SPlayMidi               byte = 10
	SPlayWave               byte = 11
	SConsoleMsg             byte = 12
	SErrorMsg               byte = 13
	SCreateFX               byte = 14
	SUpdateUserStats        byte = 15
	SChangeInventorySlot    byte = 16
	SChangeBankSlot         byte = 17
	SChangeSpellSlot        byte = 18
	SAttributes             byte = 19
	SDiceRoll               byte = 20
	SMeditateToggle         byte = 21
	SCommerceInit           byte = 22
	SCommerceEnd            byte = 23
	SBankInit               byte = 24
	SBankEnd                byte = 25
	SChangeNPCInventorySlot byte = 26
	SUpdateHungerAndThirst  byte = 27
	SUserCharIndexInServer  byte = 28
	SUpdateHP               byte = 29
	SUpdateMana             byte = 30
	SUpdateSta              byte = 31
	SUpdateExp              byte = 32
	SUpdateGold             byte = 33
	SUpdateStrAndDex        byte = 34
	SMultiMessage           byte = 35
	SPong                   byte = 36
)

// MinLength is the curated minimum frame length (id byte included) per
// client packet. A frame shorter than its entry is discarded before the
// handler runs. Part of the external contract: new packet kinds must be
// added here before they can be routed.
var MinLength = map[byte]int{
	CThrowDices:    1,
	CLogin:         3,
	CDoubleClick:   2,
	CCreateAccount: 16,
	CTalk:          3,
	CWalk:          2,
	CDrop:          5,
	CCommerceEnd:   1,
	CEquipItem:     2,
	CBankEnd:       1,
	CPing:          1,
	CAyuda:         1,
	CLeftClick:     3,
	CUptime:        1,
	COnline:        1,
	CQuit:          1,
	CMeditate:      1,
	CPickUp:        1,
	CAttack:        1,
	CChangeHeading: 2,
	CCastSpell:     7,
}

// critical marks outbound packets that must never be dropped by the
// per-session backpressure policy.
var critical = map[byte]bool{
	SCharacterRemove: true,
	SChangeMap:       true,
	SLogged:          true,
	SErrorMsg:        true,
}

// IsCritical reports whether an outbound frame may never be dropped under
// backpressure.
func IsCritical(frame []byte) bool {
	return len(frame) > 0 && critical[frame[0]]
}

// Droppable low-value visuals: preferred victims when an out-queue is full.
var lowValue = map[byte]bool{
	SCreateFX: true,
	SPlayWave: true,
	SPlayMidi: true,
}

// IsLowValue reports whether an outbound frame is a cosmetic effect that can
// be shed first under backpressure.
func IsLowValue(frame []byte) bool {
	return len(frame) > 0 && lowValue[frame[0]]
}
