package plugins

import "sync"

// Metadata describes a plugin and the attribute defaults applied to every
// entity it creates.
type Metadata struct {
	Name string
	// Extras is free-form data owned by users of the plugin. It stays
	// mutable for the lifetime of the plugin.
	Extras map[string]any

	CommandAttrs        CommandAttrs
	SlashCommandAttrs   SlashCommandAttrs
	MessageCommandAttrs AppCommandAttrs
	UserCommandAttrs    AppCommandAttrs
}

// GetExtras returns the extras map, creating it on first use.
func (m *Metadata) GetExtras() map[string]any {
	if m.Extras == nil {
		m.Extras = make(map[string]any)
	}
	return m.Extras
}

var categoryWarning sync.Once

func warnCategory() {
	categoryWarning.Do(func() {
		l := packageLogger()
		l.Warn().Msg("Metadata.Category is deprecated, use Metadata.Extras instead")
	})
}

// Category returns extras["category"].
//
// Deprecated: use Extras directly.
func (m *Metadata) Category() string {
	warnCategory()
	c, _ := m.GetExtras()["category"].(string)
	return c
}

// SetCategory sets extras["category"].
//
// Deprecated: use Extras directly.
func (m *Metadata) SetCategory(category string) {
	warnCategory()
	m.GetExtras()["category"] = category
}
