package npc

import (
	"strings"
	"time"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
)

// ScriptInterface обработчик событий NPC. Менеджер вызывает его из потока
// диспетчера, поэтому реализации не нуждаются в синхронизации.
type ScriptInterface interface {
	OnCreatureAppear(n *Npc, c *creature.Creature)
	OnCreatureDisappear(n *Npc, c *creature.Creature)
	OnCreatureMove(n *Npc, c *creature.Creature, from, to vec.Position)
	OnCreatureSay(n *Npc, player *creature.Creature, text string)
	OnThink(n *Npc, now time.Time)
}

// Слова начала и конца разговора
var (
	greetWords    = []string{"hi", "hello", "привет"}
	farewellWords = []string{"bye", "farewell", "пока"}
)

// DialogScript разговор по ключевым словам из описания NPC.
// NPC говорит с одним собеседником: приветствие фиксирует его, прощание,
// уход из поля зрения или долгое молчание отпускают.
type DialogScript struct{}

var _ ScriptInterface = DialogScript{}

// OnCreatureAppear ничего не делает: NPC ждёт приветствия
func (DialogScript) OnCreatureAppear(*Npc, *creature.Creature) {}

// OnCreatureDisappear отпускает ушедшего собеседника
func (DialogScript) OnCreatureDisappear(n *Npc, c *creature.Creature) {
	if n.Focus() == c.ID() {
		n.SetFocus(nil)
	}
}

// OnCreatureMove прощается с собеседником, который отошёл слишком далеко
func (DialogScript) OnCreatureMove(n *Npc, c *creature.Creature, _, to vec.Position) {
	if n.Focus() != c.ID() || c == n.Creature() {
		return
	}
	if !n.CanSee(to) {
		if n.Definition().Farewell != "" {
			n.Say(n.personalize(n.Definition().Farewell, c))
		}
		n.SetFocus(nil)
		return
	}
	n.TurnTo(c)
}

// OnCreatureSay отвечает на приветствие, прощание и ключевые слова
func (DialogScript) OnCreatureSay(n *Npc, player *creature.Creature, text string) {
	msg := strings.ToLower(strings.TrimSpace(text))
	def := n.Definition()

	if n.Focus() == 0 {
		if containsWord(msg, greetWords) && def.Greeting != "" {
			n.SetFocus(player)
			n.SayTo(player, n.personalize(def.Greeting, player))
		}
		return
	}
	if n.Focus() != player.ID() {
		return
	}

	n.touch()
	if containsWord(msg, farewellWords) {
		if def.Farewell != "" {
			n.SayTo(player, n.personalize(def.Farewell, player))
		}
		n.SetFocus(nil)
		return
	}

	for _, keyword := range sortedKeywords(def.Replies) {
		if strings.Contains(msg, keyword) {
			n.SayTo(player, n.personalize(def.Replies[keyword], player))
			return
		}
	}
}

// OnThink забывает собеседника после долгого молчания
func (DialogScript) OnThink(n *Npc, now time.Time) {
	if n.Focus() != 0 && now.Sub(n.lastTalk) >= n.Definition().IdleTimeout {
		n.SetFocus(nil)
	}
}

func containsWord(msg string, words []string) bool {
	for _, field := range strings.FieldsFunc(msg, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}
