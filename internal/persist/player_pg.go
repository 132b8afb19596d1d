package persist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// PGPlayerRepo is the postgres-backed character store.
type PGPlayerRepo struct {
	db *DB
}

func NewPGPlayerRepo(db *DB) *PGPlayerRepo {
	return &PGPlayerRepo{db: db}
}

func (r *PGPlayerRepo) Load(ctx context.Context, userID int32) (*PlayerRecord, error) {
	rec := &PlayerRecord{UserID: userID}
	var (
		poisoned, paralyzed              sql.NullTime
		morphBody, morphHead             sql.NullInt16
		morphExp                         sql.NullTime
		strDelta, agiDelta               sql.NullInt16
		strExp, agiExp                   sql.NullTime
		level, heading                   int16
		x, y                             int16
		str, agi, intl, cha, con         int16
		maxAgu, minAgu, maxHam, minHam   int16
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT username,
		       max_hp, min_hp, max_mana, min_mana, max_sta, min_sta, gold, level, elu, exp,
		       map, x, y, heading,
		       strength, agility, intelligence, charisma, constitution,
		       max_agu, min_agu, max_ham, min_ham,
		       body, head, weapon, shield, helmet,
		       alive, meditating,
		       poisoned_until, paralyzed_until,
		       morph_body, morph_head, morph_expires,
		       str_mod_delta, str_mod_expires, agi_mod_delta, agi_mod_expires
		FROM players WHERE user_id = $1`, userID).Scan(
		&rec.Username,
		&rec.Stats.MaxHP, &rec.Stats.MinHP, &rec.Stats.MaxMana, &rec.Stats.MinMana,
		&rec.Stats.MaxSta, &rec.Stats.MinSta, &rec.Stats.Gold, &level, &rec.Stats.Elu, &rec.Stats.Exp,
		&rec.Position.Map, &x, &y, &heading,
		&str, &agi, &intl, &cha, &con,
		&maxAgu, &minAgu, &maxHam, &minHam,
		&rec.Appearance.Body, &rec.Appearance.Head, &rec.Appearance.Weapon,
		&rec.Appearance.Shield, &rec.Appearance.Helmet,
		&rec.Alive, &rec.Meditating,
		&poisoned, &paralyzed,
		&morphBody, &morphHead, &morphExp,
		&strDelta, &strExp, &agiDelta, &agiExp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPlayer
	}
	if err != nil {
		return nil, err
	}
	rec.Stats.Level = byte(level)
	rec.Position.X, rec.Position.Y, rec.Position.Heading = int(x), int(y), byte(heading)
	rec.Attributes = Attributes{
		Strength: byte(str), Agility: byte(agi), Intelligence: byte(intl),
		Charisma: byte(cha), Constitution: byte(con),
	}
	rec.Hunger = HungerThirst{
		MaxAgu: byte(maxAgu), MinAgu: byte(minAgu),
		MaxHam: byte(maxHam), MinHam: byte(minHam),
	}
	if poisoned.Valid {
		rec.PoisonedUntil = poisoned.Time
	}
	if paralyzed.Valid {
		rec.ParalyzedUntil = paralyzed.Time
	}
	if morphBody.Valid && morphExp.Valid {
		rec.Morph = &Morph{Body: morphBody.Int16, Head: morphHead.Int16, Expires: morphExp.Time}
	}
	if strDelta.Valid && strExp.Valid {
		rec.StrMod = &AttrModifier{Delta: int(strDelta.Int16), Expires: strExp.Time}
	}
	if agiDelta.Valid && agiExp.Valid {
		rec.AgiMod = &AttrModifier{Delta: int(agiDelta.Int16), Expires: agiExp.Time}
	}

	if rec.Inventory, err = r.GetInventory(ctx, userID); err != nil {
		return nil, err
	}
	if rec.Bank, err = r.GetBank(ctx, userID); err != nil {
		return nil, err
	}
	if rec.Spells, err = r.GetSpells(ctx, userID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PGPlayerRepo) Create(ctx context.Context, rec *PlayerRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO players (user_id, username,
			max_hp, min_hp, max_mana, min_mana, max_sta, min_sta, gold, level, elu, exp,
			map, x, y, heading,
			strength, agility, intelligence, charisma, constitution,
			max_agu, min_agu, max_ham, min_ham,
			body, head, weapon, shield, helmet,
			alive, meditating)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
		        $17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32)`,
		rec.UserID, rec.Username,
		rec.Stats.MaxHP, rec.Stats.MinHP, rec.Stats.MaxMana, rec.Stats.MinMana,
		rec.Stats.MaxSta, rec.Stats.MinSta, rec.Stats.Gold, int16(rec.Stats.Level),
		rec.Stats.Elu, rec.Stats.Exp,
		rec.Position.Map, int16(rec.Position.X), int16(rec.Position.Y), int16(rec.Position.Heading),
		int16(rec.Attributes.Strength), int16(rec.Attributes.Agility), int16(rec.Attributes.Intelligence),
		int16(rec.Attributes.Charisma), int16(rec.Attributes.Constitution),
		int16(rec.Hunger.MaxAgu), int16(rec.Hunger.MinAgu), int16(rec.Hunger.MaxHam), int16(rec.Hunger.MinHam),
		rec.Appearance.Body, rec.Appearance.Head, rec.Appearance.Weapon,
		rec.Appearance.Shield, rec.Appearance.Helmet,
		rec.Alive, rec.Meditating,
	)
	if err != nil {
		return err
	}
	for slot, s := range rec.Inventory {
		if err := r.SetInventorySlot(ctx, rec.UserID, slot, s); err != nil {
			return err
		}
	}
	for _, sp := range rec.Spells {
		if err := r.AddSpell(ctx, rec.UserID, sp); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGPlayerRepo) set(ctx context.Context, userID int32, query string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoPlayer
	}
	return nil
}

func (r *PGPlayerRepo) GetStats(ctx context.Context, userID int32) (Stats, error) {
	var (
		s     Stats
		level int16
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT max_hp, min_hp, max_mana, min_mana, max_sta, min_sta, gold, level, elu, exp
		FROM players WHERE user_id = $1`, userID).Scan(
		&s.MaxHP, &s.MinHP, &s.MaxMana, &s.MinMana, &s.MaxSta, &s.MinSta,
		&s.Gold, &level, &s.Elu, &s.Exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stats{}, ErrNoPlayer
	}
	s.Level = byte(level)
	return s, err
}

func (r *PGPlayerRepo) SetStats(ctx context.Context, userID int32, s Stats) error {
	return r.set(ctx, userID, `
		UPDATE players SET max_hp=$2, min_hp=$3, max_mana=$4, min_mana=$5,
		       max_sta=$6, min_sta=$7, gold=$8, level=$9, elu=$10, exp=$11
		WHERE user_id=$1`,
		s.MaxHP, s.MinHP, s.MaxMana, s.MinMana, s.MaxSta, s.MinSta,
		s.Gold, int16(s.Level), s.Elu, s.Exp)
}

func (r *PGPlayerRepo) UpdateHP(ctx context.Context, userID int32, minHP int16) error {
	return r.set(ctx, userID, `UPDATE players SET min_hp=$2 WHERE user_id=$1`, minHP)
}

func (r *PGPlayerRepo) UpdateMana(ctx context.Context, userID int32, minMana int16) error {
	return r.set(ctx, userID, `UPDATE players SET min_mana=$2 WHERE user_id=$1`, minMana)
}

func (r *PGPlayerRepo) UpdateStamina(ctx context.Context, userID int32, minSta int16) error {
	return r.set(ctx, userID, `UPDATE players SET min_sta=$2 WHERE user_id=$1`, minSta)
}

func (r *PGPlayerRepo) UpdateGold(ctx context.Context, userID int32, gold int32) error {
	return r.set(ctx, userID, `UPDATE players SET gold=$2 WHERE user_id=$1`, gold)
}

func (r *PGPlayerRepo) UpdateExperience(ctx context.Context, userID int32, exp, elu int32, level byte) error {
	return r.set(ctx, userID, `UPDATE players SET exp=$2, elu=$3, level=$4 WHERE user_id=$1`,
		exp, elu, int16(level))
}

func (r *PGPlayerRepo) GetPosition(ctx context.Context, userID int32) (Position, error) {
	var (
		p          Position
		x, y, head int16
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT map, x, y, heading FROM players WHERE user_id=$1`, userID).
		Scan(&p.Map, &x, &y, &head)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrNoPlayer
	}
	p.X, p.Y, p.Heading = int(x), int(y), byte(head)
	return p, err
}

func (r *PGPlayerRepo) SetPosition(ctx context.Context, userID int32, p Position) error {
	return r.set(ctx, userID, `UPDATE players SET map=$2, x=$3, y=$4, heading=$5 WHERE user_id=$1`,
		p.Map, int16(p.X), int16(p.Y), int16(p.Heading))
}

func (r *PGPlayerRepo) SetHeading(ctx context.Context, userID int32, heading byte) error {
	return r.set(ctx, userID, `UPDATE players SET heading=$2 WHERE user_id=$1`, int16(heading))
}

func (r *PGPlayerRepo) GetAttributes(ctx context.Context, userID int32) (Attributes, error) {
	var str, agi, intl, cha, con int16
	err := r.db.Pool.QueryRow(ctx, `
		SELECT strength, agility, intelligence, charisma, constitution
		FROM players WHERE user_id=$1`, userID).Scan(&str, &agi, &intl, &cha, &con)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attributes{}, ErrNoPlayer
	}
	return Attributes{
		Strength: byte(str), Agility: byte(agi), Intelligence: byte(intl),
		Charisma: byte(cha), Constitution: byte(con),
	}, err
}

func (r *PGPlayerRepo) SetAttributes(ctx context.Context, userID int32, a Attributes) error {
	return r.set(ctx, userID, `
		UPDATE players SET strength=$2, agility=$3, intelligence=$4, charisma=$5, constitution=$6
		WHERE user_id=$1`,
		int16(a.Strength), int16(a.Agility), int16(a.Intelligence),
		int16(a.Charisma), int16(a.Constitution))
}

func (r *PGPlayerRepo) GetHungerThirst(ctx context.Context, userID int32) (HungerThirst, error) {
	var maxAgu, minAgu, maxHam, minHam int16
	err := r.db.Pool.QueryRow(ctx,
		`SELECT max_agu, min_agu, max_ham, min_ham FROM players WHERE user_id=$1`, userID).
		Scan(&maxAgu, &minAgu, &maxHam, &minHam)
	if errors.Is(err, pgx.ErrNoRows) {
		return HungerThirst{}, ErrNoPlayer
	}
	return HungerThirst{
		MaxAgu: byte(maxAgu), MinAgu: byte(minAgu),
		MaxHam: byte(maxHam), MinHam: byte(minHam),
	}, err
}

func (r *PGPlayerRepo) SetHungerThirst(ctx context.Context, userID int32, h HungerThirst) error {
	return r.set(ctx, userID, `
		UPDATE players SET max_agu=$2, min_agu=$3, max_ham=$4, min_ham=$5 WHERE user_id=$1`,
		int16(h.MaxAgu), int16(h.MinAgu), int16(h.MaxHam), int16(h.MinHam))
}

func (r *PGPlayerRepo) GetAppearance(ctx context.Context, userID int32) (Appearance, error) {
	var a Appearance
	err := r.db.Pool.QueryRow(ctx,
		`SELECT body, head, weapon, shield, helmet FROM players WHERE user_id=$1`, userID).
		Scan(&a.Body, &a.Head, &a.Weapon, &a.Shield, &a.Helmet)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appearance{}, ErrNoPlayer
	}
	return a, err
}

func (r *PGPlayerRepo) SetAppearance(ctx context.Context, userID int32, a Appearance) error {
	return r.set(ctx, userID, `
		UPDATE players SET body=$2, head=$3, weapon=$4, shield=$5, helmet=$6 WHERE user_id=$1`,
		a.Body, a.Head, a.Weapon, a.Shield, a.Helmet)
}

func (r *PGPlayerRepo) IsAlive(ctx context.Context, userID int32) (bool, error) {
	var alive bool
	err := r.db.Pool.QueryRow(ctx, `SELECT alive FROM players WHERE user_id=$1`, userID).Scan(&alive)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNoPlayer
	}
	return alive, err
}

func (r *PGPlayerRepo) SetAlive(ctx context.Context, userID int32, alive bool) error {
	return r.set(ctx, userID, `UPDATE players SET alive=$2 WHERE user_id=$1`, alive)
}

func (r *PGPlayerRepo) IsMeditating(ctx context.Context, userID int32) (bool, error) {
	var on bool
	err := r.db.Pool.QueryRow(ctx, `SELECT meditating FROM players WHERE user_id=$1`, userID).Scan(&on)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNoPlayer
	}
	return on, err
}

func (r *PGPlayerRepo) SetMeditating(ctx context.Context, userID int32, on bool) error {
	return r.set(ctx, userID, `UPDATE players SET meditating=$2 WHERE user_id=$1`, on)
}

func (r *PGPlayerRepo) getTime(ctx context.Context, userID int32, col string) (time.Time, error) {
	var t sql.NullTime
	err := r.db.Pool.QueryRow(ctx, `SELECT `+col+` FROM players WHERE user_id=$1`, userID).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNoPlayer
	}
	if !t.Valid {
		return time.Time{}, err
	}
	return t.Time, err
}

func (r *PGPlayerRepo) GetPoisonedUntil(ctx context.Context, userID int32) (time.Time, error) {
	return r.getTime(ctx, userID, "poisoned_until")
}

func (r *PGPlayerRepo) SetPoisonedUntil(ctx context.Context, userID int32, until time.Time) error {
	return r.set(ctx, userID, `UPDATE players SET poisoned_until=$2 WHERE user_id=$1`, until)
}

func (r *PGPlayerRepo) GetParalyzedUntil(ctx context.Context, userID int32) (time.Time, error) {
	return r.getTime(ctx, userID, "paralyzed_until")
}

func (r *PGPlayerRepo) SetParalyzedUntil(ctx context.Context, userID int32, until time.Time) error {
	return r.set(ctx, userID, `UPDATE players SET paralyzed_until=$2 WHERE user_id=$1`, until)
}

func (r *PGPlayerRepo) GetMorph(ctx context.Context, userID int32) (*Morph, error) {
	var (
		body, head sql.NullInt16
		exp        sql.NullTime
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT morph_body, morph_head, morph_expires FROM players WHERE user_id=$1`, userID).
		Scan(&body, &head, &exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPlayer
	}
	if err != nil || !body.Valid || !exp.Valid {
		return nil, err
	}
	return &Morph{Body: body.Int16, Head: head.Int16, Expires: exp.Time}, nil
}

func (r *PGPlayerRepo) SetMorph(ctx context.Context, userID int32, m *Morph) error {
	if m == nil {
		return r.ClearMorph(ctx, userID)
	}
	return r.set(ctx, userID,
		`UPDATE players SET morph_body=$2, morph_head=$3, morph_expires=$4 WHERE user_id=$1`,
		m.Body, m.Head, m.Expires)
}

func (r *PGPlayerRepo) ClearMorph(ctx context.Context, userID int32) error {
	return r.set(ctx, userID,
		`UPDATE players SET morph_body=NULL, morph_head=NULL, morph_expires=NULL WHERE user_id=$1`)
}

func (r *PGPlayerRepo) getModifier(ctx context.Context, userID int32, deltaCol, expCol string) (*AttrModifier, error) {
	var (
		delta sql.NullInt16
		exp   sql.NullTime
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+deltaCol+`, `+expCol+` FROM players WHERE user_id=$1`, userID).
		Scan(&delta, &exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPlayer
	}
	if err != nil || !delta.Valid || !exp.Valid {
		return nil, err
	}
	return &AttrModifier{Delta: int(delta.Int16), Expires: exp.Time}, nil
}

func (r *PGPlayerRepo) GetStrengthModifier(ctx context.Context, userID int32) (*AttrModifier, error) {
	return r.getModifier(ctx, userID, "str_mod_delta", "str_mod_expires")
}

func (r *PGPlayerRepo) SetStrengthModifier(ctx context.Context, userID int32, m *AttrModifier) error {
	if m == nil {
		return r.set(ctx, userID,
			`UPDATE players SET str_mod_delta=NULL, str_mod_expires=NULL WHERE user_id=$1`)
	}
	return r.set(ctx, userID,
		`UPDATE players SET str_mod_delta=$2, str_mod_expires=$3 WHERE user_id=$1`,
		int16(m.Delta), m.Expires)
}

func (r *PGPlayerRepo) GetAgilityModifier(ctx context.Context, userID int32) (*AttrModifier, error) {
	return r.getModifier(ctx, userID, "agi_mod_delta", "agi_mod_expires")
}

func (r *PGPlayerRepo) SetAgilityModifier(ctx context.Context, userID int32, m *AttrModifier) error {
	if m == nil {
		return r.set(ctx, userID,
			`UPDATE players SET agi_mod_delta=NULL, agi_mod_expires=NULL WHERE user_id=$1`)
	}
	return r.set(ctx, userID,
		`UPDATE players SET agi_mod_delta=$2, agi_mod_expires=$3 WHERE user_id=$1`,
		int16(m.Delta), m.Expires)
}

func (r *PGPlayerRepo) getSlots(ctx context.Context, userID int32, table string, withEquipped bool) (map[byte]InventorySlot, error) {
	cols := "slot, item_id, amount"
	if withEquipped {
		cols += ", equipped"
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+cols+` FROM `+table+` WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[byte]InventorySlot)
	for rows.Next() {
		var (
			slot int16
			s    InventorySlot
		)
		if withEquipped {
			err = rows.Scan(&slot, &s.ItemID, &s.Amount, &s.Equipped)
		} else {
			err = rows.Scan(&slot, &s.ItemID, &s.Amount)
		}
		if err != nil {
			return nil, err
		}
		out[byte(slot)] = s
	}
	return out, rows.Err()
}

func (r *PGPlayerRepo) GetInventory(ctx context.Context, userID int32) (map[byte]InventorySlot, error) {
	return r.getSlots(ctx, userID, "player_inventory", true)
}

func (r *PGPlayerRepo) SetInventorySlot(ctx context.Context, userID int32, slot byte, s InventorySlot) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO player_inventory (user_id, slot, item_id, amount, equipped)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, slot)
		DO UPDATE SET item_id=$3, amount=$4, equipped=$5`,
		userID, int16(slot), s.ItemID, s.Amount, s.Equipped)
	return err
}

func (r *PGPlayerRepo) ClearInventorySlot(ctx context.Context, userID int32, slot byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM player_inventory WHERE user_id=$1 AND slot=$2`, userID, int16(slot))
	return err
}

func (r *PGPlayerRepo) GetBank(ctx context.Context, userID int32) (map[byte]InventorySlot, error) {
	return r.getSlots(ctx, userID, "player_bank", false)
}

func (r *PGPlayerRepo) SetBankSlot(ctx context.Context, userID int32, slot byte, s InventorySlot) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO player_bank (user_id, slot, item_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, slot)
		DO UPDATE SET item_id=$3, amount=$4`,
		userID, int16(slot), s.ItemID, s.Amount)
	return err
}

func (r *PGPlayerRepo) ClearBankSlot(ctx context.Context, userID int32, slot byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM player_bank WHERE user_id=$1 AND slot=$2`, userID, int16(slot))
	return err
}

func (r *PGPlayerRepo) GetSpells(ctx context.Context, userID int32) ([]int16, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT spell_id FROM player_spells WHERE user_id=$1 ORDER BY spell_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int16
	for rows.Next() {
		var id int16
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PGPlayerRepo) AddSpell(ctx context.Context, userID int32, spellID int16) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO player_spells (user_id, spell_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, spellID)
	return err
}

var _ PlayerRepo = (*PGPlayerRepo)(nil)
