package field

// Kind identifies the input type a descriptor renders and validates as.
type Kind string

const (
	KindText            Kind = "text"
	KindEmail           Kind = "email"
	KindNumber          Kind = "number"
	KindPassword        Kind = "password"
	KindTextarea        Kind = "textarea"
	KindSelect          Kind = "select"
	KindPaginatedSelect Kind = "paginated-select"
	KindMultiSelect     Kind = "multiselect"
	KindDate            Kind = "date"
	KindDateTime        Kind = "datetime"
	KindBoolean         Kind = "boolean"
	KindRadio           Kind = "radio"
	KindFile            Kind = "file"
	KindImage           Kind = "image"
	KindCustom          Kind = "custom"
	KindHidden          Kind = "hidden"
)

// ValueType declares how choice values are typed. Descriptors must declare it
// explicitly; option contents are never inspected to guess.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueBoolean ValueType = "boolean"
	ValueNumber  ValueType = "number"
)

// Valid reports whether the value type is one of the declared constants.
func (v ValueType) Valid() bool {
	switch v {
	case ValueString, ValueBoolean, ValueNumber:
		return true
	default:
		return false
	}
}

// Valid reports whether the kind is one of the declared constants.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Attachment reports whether the kind binds to file content.
func (k Kind) Attachment() bool {
	return k == KindFile || k == KindImage
}

// Choice reports whether the kind selects from declared static options.
func (k Kind) Choice() bool {
	return k == KindSelect || k == KindRadio || k == KindMultiSelect
}

// Textual reports whether the kind carries free-form string input.
func (k Kind) Textual() bool {
	switch k {
	case KindText, KindEmail, KindPassword, KindTextarea:
		return true
	default:
		return false
	}
}

// kindTraits is the per-kind dispatch table: one row per kind instead of
// conditional chains scattered through the engine.
type kindTraits struct {
	defaultValue func(d Descriptor) any
	empty        func(value any) bool
}

var kindTable = map[Kind]kindTraits{
	KindText:            {defaultValue: emptyString, empty: emptyStringCheck},
	KindEmail:           {defaultValue: emptyString, empty: emptyStringCheck},
	KindPassword:        {defaultValue: emptyString, empty: emptyStringCheck},
	KindTextarea:        {defaultValue: emptyString, empty: emptyStringCheck},
	KindDate:            {defaultValue: emptyString, empty: emptyStringCheck},
	KindDateTime:        {defaultValue: emptyString, empty: emptyStringCheck},
	KindSelect:          {defaultValue: emptyString, empty: emptyStringCheck},
	KindRadio:           {defaultValue: emptyString, empty: emptyStringCheck},
	KindPaginatedSelect: {defaultValue: emptyString, empty: emptyStringCheck},
	KindHidden:          {defaultValue: emptyString, empty: emptyStringCheck},
	KindNumber:          {defaultValue: nilValue, empty: emptyNumberCheck},
	KindBoolean:         {defaultValue: falseValue, empty: nilCheck},
	KindMultiSelect:     {defaultValue: emptyStringSlice, empty: emptySliceCheck},
	KindFile:            {defaultValue: nilValue, empty: nilCheck},
	KindImage:           {defaultValue: nilValue, empty: nilCheck},
	KindCustom:          {defaultValue: customDefault, empty: nilCheck},
}

// DefaultValue resolves the initial value for a descriptor: an explicit
// Default wins, then custom behaviour, then the per-kind zero value.
func (d Descriptor) DefaultValue() any {
	if d.Default != nil {
		return d.Default
	}
	traits, ok := kindTable[d.Kind]
	if !ok {
		return nil
	}
	return traits.defaultValue(d)
}

// IsEmpty reports whether a value counts as unset for this descriptor's kind.
func (d Descriptor) IsEmpty(value any) bool {
	traits, ok := kindTable[d.Kind]
	if !ok {
		return value == nil
	}
	return traits.empty(value)
}

func emptyString(Descriptor) any      { return "" }
func nilValue(Descriptor) any         { return nil }
func falseValue(Descriptor) any       { return false }
func emptyStringSlice(Descriptor) any { return []string{} }

func customDefault(d Descriptor) any {
	if d.Custom != nil {
		return d.Custom.Default()
	}
	return nil
}

// emptyStringCheck treats nil and blank strings as unset but keeps typed
// scalars (false, 0) as present, so a declared boolean radio can carry false.
func emptyStringCheck(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return trimmed(v) == ""
	default:
		return false
	}
}

func emptyNumberCheck(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return trimmed(v) == ""
	default:
		return false
	}
}

func emptySliceCheck(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func nilCheck(value any) bool {
	return value == nil
}
