package tui

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// command is one parsed input line. Exactly one of action, skip, or meta is set.
type command struct {
	action battle.Action
	skip   bool
	meta   string
}

var aliases = map[string]string{
	"a":      "attack",
	"d":      "defend",
	"f":      "flee",
	"s":      "skill",
	"cast":   "skill",
	"i":      "item",
	"use":    "item",
	"p":      "pet",
	"ff":     "skip",
	"auto":   "skip",
	"attack": "attack",
	"defend": "defend",
	"flee":   "flee",
	"skill":  "skill",
	"item":   "item",
	"pet":    "pet",
	"skip":   "skip",
}

// parseCommand turns an input line into a command.
func parseCommand(input string) (command, error) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	if strings.HasPrefix(fields[0], "/") {
		return command{meta: fields[0]}, nil
	}
	verb, ok := aliases[fields[0]]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q, type /help", fields[0])
	}
	var id string
	if len(fields) > 1 {
		id = fields[1]
	}

	var kind battle.ActionKind
	switch verb {
	case "skip":
		return command{skip: true}, nil
	case "attack":
		kind = battle.ActionAttack
	case "defend":
		kind = battle.ActionDefend
	case "flee":
		kind = battle.ActionFlee
	case "skill":
		kind = battle.ActionSkill
	case "item":
		kind = battle.ActionItem
	case "pet":
		kind = battle.ActionCompanionSkill
	}
	a, err := battle.ParseAction(string(kind), id)
	if err != nil {
		return command{}, err
	}
	return command{action: a}, nil
}
