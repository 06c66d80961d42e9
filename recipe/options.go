package recipe

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Bool option values.
const (
	True  = "True"
	False = "False"
)

// Any, used as an option domain entry, accepts every value.
const Any = "ANY"

// Scope is what an option's applicability predicate is evaluated against.
type Scope struct {
	OS string

	// Configured is false while ConfigOptions runs, before user values are
	// applied, and true from Configure on.
	Configured bool

	values map[string]string
}

// Bool reports whether another option currently holds True.
func (s Scope) Bool(name string) bool {
	v, ok := s.values[name]
	return ok && v == True
}

// Option is one declared build option. An option whose Applicable predicate
// returns false is removed for the rest of the build invocation.
type Option struct {
	Name       string
	Values     []string
	Default    string
	Applicable func(Scope) bool // nil means always applicable
}

// BoolOption declares a True/False option.
func BoolOption(name string, def bool) Option {
	d := False
	if def {
		d = True
	}
	return Option{Name: name, Values: []string{True, False}, Default: d}
}

// SharedOption declares the "shared" option (shared vs. static library).
func SharedOption(def bool) Option {
	return BoolOption("shared", def)
}

// PICOption declares the "fPIC" option, applicable only off Windows and
// only for static builds.
func PICOption(def bool) Option {
	opt := BoolOption("fPIC", def)
	opt.Applicable = PICApplicable
	return opt
}

// PICApplicable is the fPIC predicate: position-independent code is
// meaningless on Windows and implied by shared=True.
func PICApplicable(s Scope) bool {
	if IsWindows(s.OS) {
		return false
	}
	return !(s.Configured && s.Bool("shared"))
}

// OptionSet holds the declared options of a recipe and their values.
type OptionSet struct {
	decl    []Option
	values  map[string]string
	removed map[string]bool
}

// NewOptionSet declares opts in order.
func NewOptionSet(opts ...Option) (*OptionSet, error) {
	o := &OptionSet{
		values:  map[string]string{},
		removed: map[string]bool{},
	}
	for _, opt := range opts {
		if err := o.Declare(opt); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Declare adds opt and assigns its default value.
func (o *OptionSet) Declare(opt Option) error {
	if opt.Name == "" {
		return optionError("option without a name")
	}
	if o.index(opt.Name) >= 0 {
		return optionError("option %q declared twice", opt.Name)
	}
	if len(opt.Values) == 0 {
		return optionError("option %q has an empty domain", opt.Name)
	}
	opt.Values = slices.Clone(opt.Values)
	o.decl = append(o.decl, opt)
	if opt.Default == "" {
		return nil
	}
	v, ok := normalize(opt, opt.Default)
	if !ok {
		o.decl = o.decl[:len(o.decl)-1]
		return optionError("default %q of option %q is not one of %v", opt.Default, opt.Name, opt.Values)
	}
	o.values[opt.Name] = v
	return nil
}

// Set assigns a value to an applicable option. Names that match no
// declared option exactly are matched case-insensitively.
func (o *OptionSet) Set(name, value string) error {
	i := o.lookup(name)
	if i < 0 {
		return optionError("unknown option %q", name)
	}
	opt := o.decl[i]
	if o.removed[opt.Name] {
		return optionError("option %q does not apply to this configuration", opt.Name)
	}
	v, ok := normalize(opt, value)
	if !ok {
		return optionError("value %q of option %q is not one of %v", value, opt.Name, opt.Values)
	}
	o.values[opt.Name] = v
	return nil
}

// Get returns the value of an applicable option.
func (o *OptionSet) Get(name string) (string, bool) {
	if o.removed[name] {
		return "", false
	}
	v, ok := o.values[name]
	return v, ok
}

// Bool reports whether an applicable option holds True.
func (o *OptionSet) Bool(name string) bool {
	v, ok := o.Get(name)
	return ok && v == True
}

// BoolPtr returns the value of a bool option, or nil when the option does
// not apply.
func (o *OptionSet) BoolPtr(name string) *bool {
	v, ok := o.Get(name)
	if !ok {
		return nil
	}
	b := v == True
	return &b
}

// Names returns the applicable options in declaration order.
func (o *OptionSet) Names() []string {
	names := make([]string, 0, len(o.decl))
	for _, opt := range o.decl {
		if !o.removed[opt.Name] {
			names = append(names, opt.Name)
		}
	}
	return names
}

// Domain returns the allowed values of a declared option.
func (o *OptionSet) Domain(name string) []string {
	if i := o.index(name); i >= 0 {
		return slices.Clone(o.decl[i].Values)
	}
	return nil
}

// Values returns a copy of the applicable option values.
func (o *OptionSet) Values() map[string]string {
	out := make(map[string]string, len(o.values))
	for k, v := range o.values {
		if !o.removed[k] {
			out[k] = v
		}
	}
	return out
}

// String renders the applicable values as sorted "name=value" pairs.
func (o *OptionSet) String() string {
	vals := o.Values()
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+vals[k])
	}
	return strings.Join(parts, " ")
}

// Clone returns an independent copy of o.
func (o *OptionSet) Clone() *OptionSet {
	c := &OptionSet{
		decl:    slices.Clone(o.decl),
		values:  make(map[string]string, len(o.values)),
		removed: make(map[string]bool, len(o.removed)),
	}
	for k, v := range o.values {
		c.values[k] = v
	}
	for k, v := range o.removed {
		c.removed[k] = v
	}
	return c
}

// evaluate runs every applicability predicate and returns the names removed
// by this pass. Removed options never come back.
func (o *OptionSet) evaluate(os string, configured bool) []string {
	var gone []string
	for _, opt := range o.decl {
		if opt.Applicable == nil || o.removed[opt.Name] {
			continue
		}
		scope := Scope{OS: os, Configured: configured, values: o.Values()}
		if !opt.Applicable(scope) {
			o.removed[opt.Name] = true
			gone = append(gone, opt.Name)
		}
	}
	return gone
}

func (o *OptionSet) index(name string) int {
	return slices.IndexFunc(o.decl, func(opt Option) bool { return opt.Name == name })
}

func (o *OptionSet) lookup(name string) int {
	if i := o.index(name); i >= 0 {
		return i
	}
	return slices.IndexFunc(o.decl, func(opt Option) bool { return strings.EqualFold(opt.Name, name) })
}

func normalize(opt Option, value string) (string, bool) {
	if isBoolDomain(opt.Values) {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "on", "yes":
			return True, true
		case "false", "0", "off", "no":
			return False, true
		}
		return "", false
	}
	for _, v := range opt.Values {
		if strings.EqualFold(v, value) {
			return v, true
		}
	}
	if slices.Contains(opt.Values, Any) && value != "" {
		return value, true
	}
	return "", false
}

func isBoolDomain(values []string) bool {
	return len(values) == 2 && slices.Contains(values, True) && slices.Contains(values, False)
}

func optionError(format string, args ...any) error {
	return newError(KindConfiguration, "options", "", fmt.Errorf(format, args...))
}
