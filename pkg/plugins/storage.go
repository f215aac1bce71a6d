package plugins

import (
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/discord-plugins/pkg/tasks"
)

// store holds everything a plugin registered.
type store struct {
	commands        *orderedMap[PrefixCommand]
	slashCommands   *orderedMap[*SlashCommand]
	userCommands    *orderedMap[*UserCommand]
	messageCommands *orderedMap[*MessageCommand]

	commandChecks        []Check
	slashCommandChecks   []Check
	userCommandChecks    []Check
	messageCommandChecks []Check

	loops        []*tasks.Loop
	listeners    *orderedMap[[]*Listener]
	placeholders []placeholder
}

func newStore() *store {
	return &store{
		commands:        newOrderedMap[PrefixCommand](),
		slashCommands:   newOrderedMap[*SlashCommand](),
		userCommands:    newOrderedMap[*UserCommand](),
		messageCommands: newOrderedMap[*MessageCommand](),
		listeners:       newOrderedMap[[]*Listener](),
	}
}

// update merges other into s. Same-named commands in other win; checks,
// loops and listeners are appended. other is left untouched.
func (s *store) update(other *store) {
	for _, c := range other.commands.Values() {
		s.commands.Set(c.Base().Name, c)
	}
	for _, c := range other.slashCommands.Values() {
		s.slashCommands.Set(c.Name, c)
	}
	for _, c := range other.userCommands.Values() {
		s.userCommands.Set(c.Name, c)
	}
	for _, c := range other.messageCommands.Values() {
		s.messageCommands.Set(c.Name, c)
	}

	s.commandChecks = append(s.commandChecks, other.commandChecks...)
	s.slashCommandChecks = append(s.slashCommandChecks, other.slashCommandChecks...)
	s.userCommandChecks = append(s.userCommandChecks, other.userCommandChecks...)
	s.messageCommandChecks = append(s.messageCommandChecks, other.messageCommandChecks...)

	s.loops = append(s.loops, other.loops...)
	for _, event := range other.listeners.Keys() {
		theirs, _ := other.listeners.Get(event)
		ours, _ := s.listeners.Get(event)
		s.listeners.Set(event, slices.Concat(ours, theirs))
	}
	s.placeholders = append(s.placeholders, other.placeholders...)
}

func (s *store) addListener(l *Listener) {
	ls, _ := s.listeners.Get(l.Event)
	s.listeners.Set(l.Event, append(ls, l))
}

// getCommand walks a space-separated qualified name through groups.
func (s *store) getCommand(name string) (PrefixCommand, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(name), " ")
	root, ok := s.commands.Get(head)
	if !ok {
		return nil, nil
	}
	return walkPrefix(root, rest)
}

// getSlashCommand resolves "cmd", "cmd sub" or "cmd group sub".
func (s *store) getSlashCommand(name string) (SlashNode, error) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: %q has more than three parts", ErrNotGroup, name)
	}
	root, ok := s.slashCommands.Get(parts[0])
	if !ok {
		return nil, nil
	}
	var node SlashNode = root
	for _, part := range parts[1:] {
		var next SlashNode
		switch n := node.(type) {
		case *SlashCommand:
			next, ok = n.Child(part)
		case *SubCommandGroup:
			var sub *SubCommand
			sub, ok = n.Child(part)
			next = sub
		default:
			return nil, fmtNotGroup(node.QualifiedName(), part)
		}
		if !ok {
			return nil, nil
		}
		node = next
	}
	return node, nil
}
