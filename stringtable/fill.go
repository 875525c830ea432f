package stringtable

// fallback returns the text used to fill gaps in k: English if present,
// otherwise Original.
func fallback(k *Key) string {
	if t := k.Get(English); t != "" {
		return t
	}
	return k.Get(Original)
}

// FillMissing gives every language without text the key's English text, or
// its Original text when English is empty. Languages that already have text
// are left alone. It returns the number of languages filled; a second call
// on the same key fills nothing.
func FillMissing(k *Key) int {
	text := fallback(k)
	if text == "" {
		return 0
	}

	filled := 0
	for l := Language(0); l < languageCount; l++ {
		if k.Has(l) {
			continue
		}
		k.Set(l, text)
		filled++
	}
	return filled
}

// FillMissingInCollection runs FillMissing on each key and returns the total
// number of languages filled. Keys are independent of each other.
func FillMissingInCollection(keys []*Key) int {
	total := 0
	for _, k := range keys {
		total += FillMissing(k)
	}
	return total
}
