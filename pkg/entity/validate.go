package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/fleetmap/pkg/util"
)

var ErrMalformedEntity = errors.New("malformed entity")

// Validator checks entities before they reach the reconciler.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewValidator() *Validator {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	return &Validator{validate: validate, trans: trans}
}

// Validate returns an error wrapping ErrMalformedEntity when e has no id or an out-of-range location.
func (v *Validator) Validate(e Entity) error {
	if !e.Location.Valid() {
		return util.WrapErrorf(ErrMalformedEntity, util.ErrBadParamInput,
			"entity %q: location %v out of range", e.ID, e.Location)
	}
	err := v.validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return util.WrapErrorf(ErrMalformedEntity, util.ErrBadParamInput, "entity %q: %v", e.ID, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(v.trans))
	}
	return util.WrapErrorf(ErrMalformedEntity, util.ErrBadParamInput,
		"entity %q: %s", e.ID, strings.Join(msgs, "; "))
}

// Rejection records why an entity was dropped from a pass.
type Rejection struct {
	Kind   Kind
	Index  int
	ID     string
	Reason string
}

func (r Rejection) Key() string {
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.ID, r.Reason)
}

// Filter keeps the valid entities of list in input order. Duplicate ids after the first are rejected.
// present holds every non-empty id seen in list, valid or not.
func (v *Validator) Filter(k Kind, list []Entity) (valid []Entity, present map[string]struct{}, rejected []Rejection) {
	valid = make([]Entity, 0, len(list))
	present = make(map[string]struct{}, len(list))
	seen := make(map[string]struct{}, len(list))
	for i, e := range list {
		if e.ID != "" {
			present[e.ID] = struct{}{}
		}
		if err := v.Validate(e); err != nil {
			rejected = append(rejected, Rejection{Kind: k, Index: i, ID: e.ID, Reason: err.Error()})
			continue
		}
		if _, dup := seen[e.ID]; dup {
			rejected = append(rejected, Rejection{Kind: k, Index: i, ID: e.ID, Reason: "duplicate id"})
			continue
		}
		seen[e.ID] = struct{}{}
		valid = append(valid, e)
	}
	return valid, present, rejected
}
