package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds user overrides for the rebindable normal-mode actions.
type KeyConfig struct {
	Add     string
	Edit    string
	Delete  string
	Reload  string
	Yank    string
	Dismiss string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	addTask    key.Binding
	editTask   key.Binding
	deleteTask key.Binding
	reload     key.Binding
	yankID     key.Binding
	dismiss    key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		addTask:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		editTask:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		deleteTask: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		yankID:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		dismiss:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
	}
}

// applyConfig rebinds configurable actions, keeping defaults for blank values.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.addTask, cfg.Add, "n", "new task")
	configureBinding(&k.editTask, cfg.Edit, "e", "edit title")
	configureBinding(&k.deleteTask, cfg.Delete, "d", "delete task")
	configureBinding(&k.reload, cfg.Reload, "r", "reload")
	configureBinding(&k.yankID, cfg.Yank, "y", "copy id")
	configureBinding(&k.dismiss, cfg.Dismiss, "x", "dismiss error")
}

// configureBinding replaces one binding's keys and help text.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys converts one configured key into matcher keys plus help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(value, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + string(unicode.ToLower(r))}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.editTask, k.deleteTask, k.reload, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTask, k.editTask, k.deleteTask, k.reload},
		{k.moveUp, k.moveDown, k.yankID, k.dismiss},
		{k.toggleHelp, k.quit},
	}
}
