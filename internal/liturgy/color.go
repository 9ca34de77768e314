package liturgy

// ColorOf returns the colour worn for the chosen entry, DefaultColor when
// the entry has none or there is no entry.
func ColorOf(chosen *Entry) Color {
	if chosen == nil || chosen.Color == "" {
		return DefaultColor
	}
	return chosen.Color
}
