// Package transcription defines the structural model of a manuscript
// transcription: pages, column elements and the text items inside them.
//
// Element and item kinds form closed sets. The numeric codes are the
// persisted representation and must not be renumbered.
package transcription

import "fmt"

// ElementType identifies the variant of a column element.
type ElementType int

const (
	ElementInvalid      ElementType = 0
	ElementLine         ElementType = 1
	ElementHead         ElementType = 2
	ElementGloss        ElementType = 3
	ElementCustodes     ElementType = 4
	ElementPageNumber   ElementType = 5
	ElementLineGap      ElementType = 6
	ElementAddition     ElementType = 7
	ElementSubstitution ElementType = 8
)

var elementNames = map[ElementType]string{
	ElementLine:         "line",
	ElementHead:         "head",
	ElementGloss:        "gloss",
	ElementCustodes:     "custodes",
	ElementPageNumber:   "pagenumber",
	ElementLineGap:      "linegap",
	ElementAddition:     "addition",
	ElementSubstitution: "substitution",
}

// Valid reports whether t is one of the known element variants.
func (t ElementType) Valid() bool {
	_, ok := elementNames[t]
	return ok
}

func (t ElementType) String() string {
	if name, ok := elementNames[t]; ok {
		return name
	}
	return fmt.Sprintf("element(%d)", int(t))
}

// CarriesReference reports whether the element's Reference field holds
// the identity of an item elsewhere.
func (t ElementType) CarriesReference() bool {
	return t == ElementAddition || t == ElementSubstitution
}

// RequiresItems reports whether an element of this type must hold at
// least one item. Only line gaps are itemless.
func (t ElementType) RequiresItems() bool {
	return t != ElementLineGap
}

// ItemType identifies the variant of a transcription text item.
type ItemType int

const (
	ItemInvalid       ItemType = 0
	ItemText          ItemType = 1
	ItemRubric        ItemType = 2
	ItemSic           ItemType = 3
	ItemUnclear       ItemType = 4
	ItemIllegible     ItemType = 5
	ItemGliph         ItemType = 6
	ItemAddition      ItemType = 7
	ItemDeletion      ItemType = 8
	ItemMark          ItemType = 9
	ItemNoWordBreak   ItemType = 10
	ItemAbbreviation  ItemType = 11
	ItemChunkMark     ItemType = 12
	ItemCharacterGap  ItemType = 13
	ItemParagraphMark ItemType = 14
	ItemMathText      ItemType = 15
	ItemMarginalMark  ItemType = 16
	ItemInitial       ItemType = 17
	ItemBoldText      ItemType = 18
	ItemHeading       ItemType = 19
	ItemChapterMark   ItemType = 20
)

var itemNames = map[ItemType]string{
	ItemText:          "text",
	ItemRubric:        "rubric",
	ItemSic:           "sic",
	ItemUnclear:       "unclear",
	ItemIllegible:     "illegible",
	ItemGliph:         "gliph",
	ItemAddition:      "addition",
	ItemDeletion:      "deletion",
	ItemMark:          "mark",
	ItemNoWordBreak:   "nowb",
	ItemAbbreviation:  "abbreviation",
	ItemChunkMark:     "chunkmark",
	ItemCharacterGap:  "chargap",
	ItemParagraphMark: "paragraphmark",
	ItemMathText:      "mathtext",
	ItemMarginalMark:  "marginalmark",
	ItemInitial:       "initial",
	ItemBoldText:      "boldtext",
	ItemHeading:       "heading",
	ItemChapterMark:   "chaptermark",
}

// Valid reports whether t is one of the known item variants.
func (t ItemType) Valid() bool {
	_, ok := itemNames[t]
	return ok
}

func (t ItemType) String() string {
	if name, ok := itemNames[t]; ok {
		return name
	}
	return fmt.Sprintf("item(%d)", int(t))
}

// IsAnchor reports whether items of this type may be superseded by an
// addition item or a substitution element during stream resolution.
func (t ItemType) IsAnchor() bool {
	return t == ItemDeletion || t == ItemUnclear || t == ItemMarginalMark
}

// payload field flags
type field uint8

const (
	fieldText field = 1 << iota
	fieldAltText
	fieldExtraInfo
	fieldLength
	fieldTarget
)

// fields returns the payload fields used by the variant.
func (t ItemType) fields() field {
	switch t {
	case ItemText, ItemRubric, ItemInitial, ItemHeading, ItemBoldText, ItemMathText, ItemGliph:
		return fieldText
	case ItemSic, ItemAbbreviation:
		return fieldText | fieldAltText
	case ItemUnclear:
		return fieldText | fieldAltText | fieldExtraInfo
	case ItemIllegible:
		return fieldLength | fieldExtraInfo
	case ItemCharacterGap:
		return fieldLength
	case ItemMark, ItemNoWordBreak, ItemParagraphMark:
		return 0
	case ItemMarginalMark:
		return fieldText
	case ItemDeletion:
		return fieldText | fieldExtraInfo
	case ItemAddition:
		return fieldText | fieldExtraInfo | fieldTarget
	case ItemChunkMark, ItemChapterMark:
		return fieldText | fieldAltText | fieldExtraInfo | fieldLength | fieldTarget
	default:
		return 0
	}
}

// NoteType distinguishes editorial notes attached to items from notes
// attached to whole elements.
type NoteType int

const (
	NoteInline  NoteType = 1
	NoteOffline NoteType = 2
)

// Valid reports whether t is a known note type.
func (t NoteType) Valid() bool {
	return t == NoteInline || t == NoteOffline
}

func (t NoteType) String() string {
	switch t {
	case NoteInline:
		return "INLINE"
	case NoteOffline:
		return "OFFLINE"
	default:
		return fmt.Sprintf("note(%d)", int(t))
	}
}

// Chunk mark kinds, stored in the item's AltText.
const (
	ChunkStart = "start"
	ChunkEnd   = "end"
)

// Illegible reasons, stored in the item's ExtraInfo.
const (
	ReasonIllegible = "illegible"
	ReasonDamaged   = "damaged"
)

// DefaultUnclearReason is used when an unclear item carries no reason.
const DefaultUnclearReason = "unclear"

// DefaultIllegibleGlyph is the placeholder rendered once per missing
// character of an illegible span.
const DefaultIllegibleGlyph = "🈑"
