package transcription

import "strings"

// Constructors for item variants. Each sets only the payload fields its
// variant carries.

func NewText(text string) *Item {
	return &Item{Type: ItemText, Text: text}
}

func NewRubric(text string) *Item {
	return &Item{Type: ItemRubric, Text: text}
}

func NewInitial(text string) *Item {
	return &Item{Type: ItemInitial, Text: text}
}

func NewHeading(text string) *Item {
	return &Item{Type: ItemHeading, Text: text}
}

func NewBoldText(text string) *Item {
	return &Item{Type: ItemBoldText, Text: text}
}

func NewMathText(text string) *Item {
	return &Item{Type: ItemMathText, Text: text}
}

func NewGliph(text string) *Item {
	return &Item{Type: ItemGliph, Text: text}
}

// NewSic records a reading as written together with its correction.
func NewSic(text, correction string) *Item {
	return &Item{Type: ItemSic, Text: text, AltText: correction}
}

// NewAbbreviation records an abbreviation with its expansion.
func NewAbbreviation(text, expansion string) *Item {
	return &Item{Type: ItemAbbreviation, Text: text, AltText: expansion}
}

// NewUnclear records an uncertain reading, an optional alternative, and
// the reason the reading is unclear.
func NewUnclear(text, alt, reason string) *Item {
	it := &Item{Type: ItemUnclear, Text: text, AltText: alt, ExtraInfo: reason}
	it.Normalize()
	return it
}

// NewIllegible records length unreadable characters.
func NewIllegible(length int, reason string) *Item {
	it := &Item{Type: ItemIllegible, Length: length, ExtraInfo: reason}
	it.Normalize()
	return it
}

// NewCharacterGap records a blank left by the scribe.
func NewCharacterGap(length int) *Item {
	return &Item{Type: ItemCharacterGap, Length: length}
}

func NewMark() *Item {
	return &Item{Type: ItemMark}
}

func NewNoWordBreak() *Item {
	return &Item{Type: ItemNoWordBreak}
}

func NewParagraphMark() *Item {
	return &Item{Type: ItemParagraphMark}
}

// NewMarginalMark records an in-text sign such as "[A]" that points to
// marginal material.
func NewMarginalMark(text string) *Item {
	return &Item{Type: ItemMarginalMark, Text: text}
}

// NewDeletion records deleted text and the deletion technique.
func NewDeletion(text, technique string) *Item {
	return &Item{Type: ItemDeletion, Text: text, ExtraInfo: technique}
}

// NewAddition records inserted text. A non-zero target is the id of the
// anchor item the addition supplements.
func NewAddition(text, placement string, target int64) *Item {
	return &Item{Type: ItemAddition, Text: text, ExtraInfo: placement, Target: target}
}

// NewChunkMark records a chunk boundary. kind is ChunkStart or ChunkEnd.
func NewChunkMark(workID string, chunk int, kind, localWitnessID string, segment int) *Item {
	return &Item{
		Type:      ItemChunkMark,
		Text:      workID,
		Target:    int64(chunk),
		AltText:   kind,
		ExtraInfo: localWitnessID,
		Length:    segment,
	}
}

// NewChapterMark records a chapter boundary with its appellation.
func NewChapterMark(workID string, chapter int, kind, appellation string, level int) *Item {
	return &Item{
		Type:      ItemChapterMark,
		Text:      workID,
		Target:    int64(chapter),
		AltText:   kind,
		ExtraInfo: appellation,
		Length:    level,
	}
}

// PlainText renders the item's own text contribution. Illegible spans
// render as glyph repeated once per missing character.
func (it *Item) PlainText(glyph string) string {
	switch it.Type {
	case ItemText, ItemRubric, ItemInitial, ItemHeading, ItemBoldText, ItemMathText, ItemGliph,
		ItemSic, ItemAbbreviation, ItemUnclear, ItemMarginalMark, ItemDeletion, ItemAddition:
		return it.Text
	case ItemIllegible:
		if glyph == "" {
			glyph = DefaultIllegibleGlyph
		}
		return strings.Repeat(glyph, max(it.Length, 0))
	case ItemCharacterGap:
		return " "
	case ItemMark, ItemNoWordBreak, ItemParagraphMark, ItemChunkMark, ItemChapterMark:
		return ""
	default:
		return ""
	}
}
