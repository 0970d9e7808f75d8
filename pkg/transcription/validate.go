package transcription

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultLanguages are the language codes accepted when none are configured.
var DefaultLanguages = []string{"la", "ar", "he", "jrb"}

// Validator checks pages, elements, items and notes before they are written.
type Validator struct {
	validate *validator.Validate
	langs    map[string]bool
}

// NewValidator creates a validator accepting the given language codes.
func NewValidator(langs []string) *Validator {
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		langs:    make(map[string]bool, len(langs)),
	}
	for _, l := range langs {
		v.langs[l] = true
	}

	// Registration only fails on an empty tag or a nil function.
	_ = v.validate.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return v.langs[fl.Field().String()]
	})
	_ = v.validate.RegisterValidation("elementtype", func(fl validator.FieldLevel) bool {
		return ElementType(fl.Field().Int()).Valid()
	})
	_ = v.validate.RegisterValidation("itemtype", func(fl validator.FieldLevel) bool {
		return ItemType(fl.Field().Int()).Valid()
	})
	_ = v.validate.RegisterValidation("notetype", func(fl validator.FieldLevel) bool {
		return NoteType(fl.Field().Int()).Valid()
	})
	return v
}

// ValidLanguage reports whether lang is an accepted language code.
func (v *Validator) ValidLanguage(lang string) bool {
	return v.langs[lang]
}

// Struct validates the struct tags of s.
func (v *Validator) Struct(s any) error {
	return v.toValidationError(v.validate.Struct(s))
}

// Element validates an element and its items, including variant payloads.
func (v *Validator) Element(e *Element) error {
	if e == nil {
		return Invalid("element", "nil", "element is nil")
	}
	if err := v.Struct(e); err != nil {
		return err
	}
	if e.ColumnNumber <= 0 {
		return Invalid("columnNumber", e.ColumnNumber, "column number must be positive")
	}
	if e.Type.RequiresItems() && len(e.Items) == 0 {
		return Invalid("items", 0, "%s element needs at least one item", e.Type)
	}
	if !e.Type.RequiresItems() && len(e.Items) > 0 {
		return Invalid("items", len(e.Items), "%s element cannot carry items", e.Type)
	}
	for _, it := range e.Items {
		if err := v.ItemPayload(it); err != nil {
			return err
		}
	}
	return nil
}

// Item validates an item's tags and payload.
func (v *Validator) Item(it *Item) error {
	if it == nil {
		return Invalid("item", "nil", "item is nil")
	}
	if err := v.Struct(it); err != nil {
		return err
	}
	return v.ItemPayload(it)
}

// ItemPayload checks the variant-specific payload rules.
func (v *Validator) ItemPayload(it *Item) error {
	switch it.Type {
	case ItemText, ItemRubric, ItemInitial, ItemHeading, ItemBoldText, ItemMathText,
		ItemSic, ItemAbbreviation, ItemUnclear, ItemDeletion, ItemAddition, ItemMarginalMark, ItemGliph:
		if it.Text == "" {
			return Invalid("text", "", "%s item %d needs text", it.Type, it.ID)
		}
	case ItemIllegible:
		if it.Length <= 0 {
			return Invalid("length", it.Length, "illegible item %d needs a length > 0", it.ID)
		}
		if it.ExtraInfo != ReasonIllegible && it.ExtraInfo != ReasonDamaged {
			return Invalid("extraInfo", it.ExtraInfo, "unrecognized reason for illegible item %d", it.ID)
		}
	case ItemCharacterGap:
		if it.Length <= 0 {
			return Invalid("length", it.Length, "character gap %d needs a length > 0", it.ID)
		}
	case ItemChunkMark, ItemChapterMark:
		if it.Text == "" {
			return Invalid("text", "", "%s item %d needs a work id", it.Type, it.ID)
		}
		if it.AltText != ChunkStart && it.AltText != ChunkEnd {
			return Invalid("altText", it.AltText, "%s item %d must be %q or %q", it.Type, it.ID, ChunkStart, ChunkEnd)
		}
		if it.Target <= 0 {
			return Invalid("target", it.Target, "%s item %d needs a positive number", it.Type, it.ID)
		}
	case ItemMark, ItemNoWordBreak, ItemParagraphMark:
	default:
		return Invalid("type", int(it.Type), "unknown item type")
	}
	return nil
}

// toValidationError converts validator field errors to a ValidationError.
func (v *Validator) toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error(), Err: fmt.Errorf("%w: %v", ErrInvalidInput, err)}
	}
	fe := fieldErrs[0]
	return &ValidationError{
		Field:   fe.Namespace(),
		Value:   fmt.Sprint(fe.Value()),
		Message: describe(fe),
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "langcode":
		return fmt.Sprintf("invalid language code %q", fe.Value())
	case "elementtype":
		return fmt.Sprintf("unknown element type %v", fe.Value())
	case "itemtype":
		return fmt.Sprintf("unknown item type %v", fe.Value())
	case "notetype":
		return fmt.Sprintf("unknown note type %v", fe.Value())
	case "required":
		return "is required"
	default:
		param := fe.Param()
		if param != "" {
			return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), param)
		}
		return "must satisfy " + strings.ReplaceAll(fe.Tag(), "_", " ")
	}
}
