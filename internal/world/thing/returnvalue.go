package thing

import "errors"

// ReturnValue закрытый перечень причин отказа протокола перемещения.
// Вызывающий код ветвится по конкретному значению, чтобы показать игроку точную причину.
type ReturnValue uint8

const (
	NoError ReturnValue = iota
	NotPossible
	NotEnoughRoom
	ThisIsImpossible
	NotMoveable
	NeedExchange
	CannotThrow
	DestinationOutOfReach
	TooFarAway
	ThereIsNoWay
	FirstGoDownstairs
	FirstGoUpstairs
	CannotPickup
	PlayerIsPzLocked
	PlayerIsPzLockedEnterPvpZone
	PlayerIsPzLockedLeavePvpZone
	PlayerIsNotReachable
)

var returnMessages = map[ReturnValue]string{
	NoError:                      "",
	NotPossible:                  "Это невозможно.",
	NotEnoughRoom:                "Здесь недостаточно места.",
	ThisIsImpossible:             "Это действительно невозможно.",
	NotMoveable:                  "Этот объект нельзя сдвинуть.",
	NeedExchange:                 "Место занято, требуется обмен.",
	CannotThrow:                  "Туда нельзя бросить.",
	DestinationOutOfReach:        "Цель вне досягаемости.",
	TooFarAway:                   "Слишком далеко.",
	ThereIsNoWay:                 "Туда нет пути.",
	FirstGoDownstairs:            "Сначала спуститесь вниз.",
	FirstGoUpstairs:              "Сначала поднимитесь наверх.",
	CannotPickup:                 "Этот объект нельзя взять.",
	PlayerIsPzLocked:             "Нельзя войти в защищённую зону после нападения на игрока.",
	PlayerIsPzLockedEnterPvpZone: "Нельзя войти в PvP-зону после нападения на игрока.",
	PlayerIsPzLockedLeavePvpZone: "Нельзя покинуть PvP-зону после нападения на игрока.",
	PlayerIsNotReachable:         "Игрок недоступен.",
}

var returnNames = map[ReturnValue]string{
	NoError:                      "no_error",
	NotPossible:                  "not_possible",
	NotEnoughRoom:                "not_enough_room",
	ThisIsImpossible:             "this_is_impossible",
	NotMoveable:                  "not_moveable",
	NeedExchange:                 "need_exchange",
	CannotThrow:                  "cannot_throw",
	DestinationOutOfReach:        "destination_out_of_reach",
	TooFarAway:                   "too_far_away",
	ThereIsNoWay:                 "there_is_no_way",
	FirstGoDownstairs:            "first_go_downstairs",
	FirstGoUpstairs:              "first_go_upstairs",
	CannotPickup:                 "cannot_pickup",
	PlayerIsPzLocked:             "player_is_pz_locked",
	PlayerIsPzLockedEnterPvpZone: "player_is_pz_locked_enter_pvp_zone",
	PlayerIsPzLockedLeavePvpZone: "player_is_pz_locked_leave_pvp_zone",
	PlayerIsNotReachable:         "player_is_not_reachable",
}

// String возвращает машинное имя причины (для логов и метрик)
func (r ReturnValue) String() string {
	if name, ok := returnNames[r]; ok {
		return name
	}
	return "unknown"
}

// Message возвращает текст, который показывается игроку
func (r ReturnValue) Message() string {
	if msg, ok := returnMessages[r]; ok {
		return msg
	}
	return returnMessages[NotPossible]
}

// Err превращает причину в error; для NoError возвращает nil.
func (r ReturnValue) Err() error {
	if r == NoError {
		return nil
	}
	return &ReturnError{Value: r}
}

// ReturnError ошибка-обёртка над ReturnValue для слоёв, работающих с error
type ReturnError struct {
	Value ReturnValue
}

func (e *ReturnError) Error() string {
	return e.Value.Message()
}

// AsReturnValue извлекает ReturnValue из цепочки ошибок
func AsReturnValue(err error) (ReturnValue, bool) {
	if err == nil {
		return NoError, true
	}
	var re *ReturnError
	if errors.As(err, &re) {
		return re.Value, true
	}
	return NotPossible, false
}
