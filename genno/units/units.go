// Package units implements the unit registry consumed by quantity
// computations: parsing of unit expressions, definition of new units, and
// conversion between compatible units.
//
// The registry is deliberately small. Symbols resolve to a scale factor
// plus a vector of base-dimension exponents; unknown symbols can be
// defined at runtime, either as derived units ("t = 1000 kg") or as new
// base dimensions ("USD = [currency]").
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUndefined is returned when a symbol is not in the registry.
	ErrUndefined = errors.New("undefined unit")
	// ErrRedefinition is returned when defining an existing symbol.
	ErrRedefinition = errors.New("unit already defined")
	// ErrMixed is returned when a column of unit strings is not unique.
	ErrMixed = errors.New("mixed units")
	// ErrInvalid is returned for strings that cannot be a unit expression.
	ErrInvalid = errors.New("invalid unit")
	// ErrSyntax is returned for malformed definitions.
	ErrSyntax = errors.New("definition syntax")
	// ErrIncompatible is returned when converting between units with
	// different dimensionality.
	ErrIncompatible = errors.New("incompatible units")
)

// invalidChars are characters that can never appear in a parseable unit
// expression; they are reported back to the caller by name.
const invalidChars = "-?$"

// Unit is a parsed unit: a scale factor relative to the registry's base
// units, and a base-dimension exponent vector. The zero value is
// dimensionless. Units are immutable; operations return new values.
type Unit struct {
	scale float64
	dims  map[string]int
	expr  string
}

// Dimensionless returns the unit of pure numbers.
func Dimensionless() Unit {
	return Unit{scale: 1, expr: "dimensionless"}
}

func (u Unit) factor() float64 {
	if u.scale == 0 {
		return 1
	}
	return u.scale
}

// IsDimensionless reports whether u has no base dimensions.
func (u Unit) IsDimensionless() bool {
	for _, e := range u.dims {
		if e != 0 {
			return false
		}
	}
	return true
}

// Compatible reports whether u and v share the same dimension vector, so
// that magnitudes can be converted between them.
func (u Unit) Compatible(v Unit) bool {
	return dimsEqual(u.dims, v.dims)
}

// ConversionFactor returns the factor converting magnitudes in u to
// magnitudes in to.
func (u Unit) ConversionFactor(to Unit) (float64, error) {
	if !u.Compatible(to) {
		return 0, fmt.Errorf("cannot convert %q to %q: %w", u, to, ErrIncompatible)
	}
	return u.factor() / to.factor(), nil
}

// Mul returns the product unit.
func (u Unit) Mul(v Unit) Unit {
	return Unit{
		scale: u.factor() * v.factor(),
		dims:  dimsCombine(u.dims, v.dims, 1),
		expr:  composeExpr(u.expr, "*", v.expr),
	}
}

// Div returns the quotient unit.
func (u Unit) Div(v Unit) Unit {
	return Unit{
		scale: u.factor() / v.factor(),
		dims:  dimsCombine(u.dims, v.dims, -1),
		expr:  composeExpr(u.expr, "/", v.expr),
	}
}

// Pow returns u raised to an integer power.
func (u Unit) Pow(n int) Unit {
	dims := map[string]int{}
	for d, e := range u.dims {
		if e*n != 0 {
			dims[d] = e * n
		}
	}
	return Unit{
		scale: math.Pow(u.factor(), float64(n)),
		dims:  dims,
		expr:  fmt.Sprintf("%s ** %d", u.expr, n),
	}
}

// Equal reports whether two units have the same dimensions and, within
// floating-point tolerance, the same scale. The rendered expression does
// not participate.
func (u Unit) Equal(v Unit) bool {
	uf, vf := u.factor(), v.factor()
	if math.Abs(uf-vf) > 1e-12*math.Max(math.Abs(uf), math.Abs(vf)) {
		return false
	}
	return dimsEqual(u.dims, v.dims)
}

// String renders the expression the unit was parsed or composed from;
// its canonical identity is (scale, dims), not this string.
func (u Unit) String() string {
	if u.expr == "" {
		return "dimensionless"
	}
	return u.expr
}

func dimsEqual(a, b map[string]int) bool {
	for d, e := range a {
		if e != 0 && b[d] != e {
			return false
		}
	}
	for d, e := range b {
		if e != 0 && a[d] != e {
			return false
		}
	}
	return true
}

func dimsCombine(a, b map[string]int, sign int) map[string]int {
	out := map[string]int{}
	for d, e := range a {
		out[d] = e
	}
	for d, e := range b {
		out[d] += sign * e
	}
	for d, e := range out {
		if e == 0 {
			delete(out, d)
		}
	}
	return out
}

func composeExpr(a, op, b string) string {
	if a == "" || a == "dimensionless" {
		if op == "/" {
			return "1 / " + b
		}
		return b
	}
	if b == "" || b == "dimensionless" {
		return a
	}
	return a + " " + op + " " + b
}

// replaceUnits maps raw unit spellings to preferred spellings, applied by
// Clean before parsing. Extended via configuration ("units: replace:").
var replaceUnits = map[string]string{
	"%": "percent",
}

// AddReplacement registers a spelling replacement applied by Clean.
func AddReplacement(old, preferred string) {
	replaceUnits[old] = preferred
}

// Clean tolerates messy strings for units: dimensions enclosed in "[]"
// have those characters stripped, and the replacement table is applied.
func Clean(s string) string {
	s = strings.Trim(s, "[]")
	for old, preferred := range replaceUnits {
		s = strings.ReplaceAll(s, old, preferred)
	}
	return strings.TrimSpace(s)
}

// Registry resolves unit symbols. The zero value is not usable; create
// with NewRegistry.
type Registry struct {
	defs map[string]Unit
}

// prefixes understood when a symbol does not match directly.
var prefixes = map[string]float64{
	"k": 1e3,
	"M": 1e6,
	"G": 1e9,
	"T": 1e12,
	"c": 1e-2,
	"m": 1e-3,
	"µ": 1e-6,
	"u": 1e-6,
}

// NewRegistry returns a registry seeded with a small SI-flavored set of
// base and derived units plus the aliases that appear in input data.
func NewRegistry() *Registry {
	r := &Registry{defs: map[string]Unit{}}

	base := func(sym, dim string) {
		r.defs[sym] = Unit{scale: 1, dims: map[string]int{dim: 1}, expr: sym}
	}
	derived := func(sym string, scale float64, dims map[string]int) {
		r.defs[sym] = Unit{scale: scale, dims: dims, expr: sym}
	}
	alias := func(sym, of string) {
		u := r.defs[of]
		u.expr = of
		r.defs[sym] = u
	}

	base("g", "mass")
	base("m", "length")
	base("s", "time")
	base("A", "current")
	base("K", "temperature")
	base("mol", "substance")
	base("cd", "luminosity")
	base("USD", "currency")

	derived("kg", 1e3, map[string]int{"mass": 1})
	derived("t", 1e6, map[string]int{"mass": 1})
	derived("min", 60, map[string]int{"time": 1})
	derived("h", 3600, map[string]int{"time": 1})
	derived("day", 86400, map[string]int{"time": 1})
	// Julian year, the convention for energy-system data.
	derived("a", 31557600, map[string]int{"time": 1})
	derived("N", 1e3, map[string]int{"mass": 1, "length": 1, "time": -2})
	derived("J", 1e3, map[string]int{"mass": 1, "length": 2, "time": -2})
	derived("W", 1e3, map[string]int{"mass": 1, "length": 2, "time": -3})
	derived("Wa", 1e3*31557600, map[string]int{"mass": 1, "length": 2, "time": -2})
	derived("Hz", 1, map[string]int{"time": -1})
	derived("L", 1e-3, map[string]int{"length": 3})
	derived("percent", 0.01, nil)
	derived("dimensionless", 1, nil)

	alias("gram", "g")
	alias("kilogram", "kg")
	alias("tonne", "t")
	alias("metric_ton", "t")
	alias("meter", "m")
	alias("metre", "m")
	alias("second", "s")
	alias("hour", "h")
	alias("year", "a")
	alias("joule", "J")
	alias("watt", "W")
	alias("newton", "N")
	alias("litre", "L")
	alias("liter", "L")
	alias("litres", "L")
	alias("liters", "L")
	return r
}

// defaultRegistry plays the role of the application registry: one shared
// instance used unless a caller constructs its own.
var defaultRegistry = NewRegistry()

// Default returns the shared application registry.
func Default() *Registry {
	return defaultRegistry
}

// Defined reports whether sym resolves, directly or via prefix.
func (r *Registry) Defined(sym string) bool {
	_, err := r.resolve(sym)
	return err == nil
}

func (r *Registry) resolve(sym string) (Unit, error) {
	if u, has := r.defs[sym]; has {
		return u, nil
	}
	for p, factor := range prefixes {
		rest := strings.TrimPrefix(sym, p)
		if rest == sym || rest == "" {
			continue
		}
		if u, has := r.defs[rest]; has {
			u.scale = u.factor() * factor
			u.expr = sym
			return u, nil
		}
	}
	return Unit{}, fmt.Errorf("%w %q", ErrUndefined, sym)
}

// Parse evaluates a unit expression: symbols joined by "*" or "/", with
// optional integer exponents written "^n" or "**n", and an optional
// leading numeric factor. The empty string is dimensionless.
func (r *Registry) Parse(s string) (Unit, error) {
	s = Clean(s)
	if s == "" {
		return Dimensionless(), nil
	}
	u, err := r.parseExpr(s)
	if err != nil {
		// A failed parse of a string with characters that can never
		// appear in a unit gets the more helpful message.
		if bad := badChars(s); bad != "" {
			return Unit{}, fmt.Errorf(
				"unit %q cannot be parsed; contains invalid character(s) %q: %w", s, bad, ErrInvalid)
		}
		return Unit{}, err
	}
	u.expr = s
	return u, nil
}

// MustParse is Parse, panicking on error; for fixed expressions in tests.
func (r *Registry) MustParse(s string) Unit {
	u, err := r.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func badChars(s string) string {
	var bad []byte
	for i := 0; i < len(invalidChars); i++ {
		if strings.ContainsRune(s, rune(invalidChars[i])) {
			bad = append(bad, invalidChars[i])
		}
	}
	return string(bad)
}

func (r *Registry) parseExpr(s string) (Unit, error) {
	toks := tokenize(s)
	if len(toks) == 0 {
		return Dimensionless(), nil
	}
	result := Dimensionless()
	op := "*"
	i := 0
	for i < len(toks) {
		tok := toks[i]
		switch tok {
		case "*", "/":
			op = tok
			i++
			continue
		}
		var term Unit
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			term = Unit{scale: f}
		} else {
			u, err := r.resolve(tok)
			if err != nil {
				return Unit{}, err
			}
			term = u
		}
		i++
		// Optional exponent bound to this term.
		if i+1 < len(toks) && toks[i] == "^" {
			n, err := strconv.Atoi(toks[i+1])
			if err != nil {
				return Unit{}, fmt.Errorf("%w: bad exponent %q", ErrSyntax, toks[i+1])
			}
			term = term.Pow(n)
			i += 2
		}
		if op == "*" {
			result = result.Mul(term)
		} else {
			result = result.Div(term)
		}
		op = "*"
	}
	return result, nil
}

// tokenize splits an expression into symbols, numbers and operators.
// "**" is normalized to "^"; bare juxtaposition ("kg m") multiplies.
func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "**", "^")
	s = strings.ReplaceAll(s, "·", "*")
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, c := range s {
		switch c {
		case ' ', '\t':
			flush()
		case '*', '/', '^':
			flush()
			toks = append(toks, string(c))
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return toks
}

// Define adds one definition of the form "name = expression" or
// "name = [dimension]" (a new base dimension). Redefining an existing
// symbol is an error.
func (r *Registry) Define(def string) error {
	name, rhs, found := strings.Cut(def, "=")
	if !found {
		return fmt.Errorf("%w: missing '=' in %q", ErrSyntax, def)
	}
	name = strings.TrimSpace(name)
	rhs = strings.TrimSpace(rhs)
	if name == "" || rhs == "" {
		return fmt.Errorf("%w: empty side in %q", ErrSyntax, def)
	}
	if bad := badChars(name); bad != "" {
		return fmt.Errorf(
			"unit %q cannot be defined; contains invalid character(s) %q: %w", name, bad, ErrInvalid)
	}
	if _, has := r.defs[name]; has {
		return fmt.Errorf("cannot redefine %q: %w", name, ErrRedefinition)
	}

	var u Unit
	if strings.HasPrefix(rhs, "[") && strings.HasSuffix(rhs, "]") {
		dim := strings.Trim(rhs, "[]")
		if dim == "" {
			u = Dimensionless()
		} else {
			u = Unit{scale: 1, dims: map[string]int{dim: 1}}
		}
	} else {
		parsed, err := r.parseExpr(Clean(rhs))
		if err != nil {
			return err
		}
		u = parsed
	}
	u.expr = name
	r.defs[name] = u
	return nil
}

// DefineBlock applies Define to every non-empty, non-comment line.
func (r *Registry) DefineBlock(block string) error {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.Define(line); err != nil {
			return err
		}
	}
	return nil
}

// defineParts defines every unknown part of a compound expression as its
// own new base dimension, so that "foo/bar" with unknown "foo" becomes
// parseable. Mirrors the tolerant behavior expected for exogenous data.
func (r *Registry) defineParts(expr string) error {
	for _, part := range strings.Split(expr, "/") {
		part = strings.TrimSpace(part)
		if part == "" || r.Defined(part) {
			continue
		}
		if err := r.Define(fmt.Sprintf("%s = [%s]", part, part)); err != nil {
			return err
		}
		logger.Infof("add unit definition: %s = [%s]", part, part)
	}
	return nil
}

// ParseColumn returns the single unit for a column of unit strings.
// Exactly one distinct non-empty value is allowed; unknown units are
// auto-defined part by part; strings with invalid characters fail with a
// message naming them.
func (r *Registry) ParseColumn(values []string) (Unit, error) {
	var unique []string
	seen := map[string]bool{}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	if len(unique) > 1 {
		return Unit{}, fmt.Errorf("%w %v", ErrMixed, unique)
	}
	if len(unique) == 0 {
		// Quantity has no unit.
		return Dimensionless(), nil
	}

	expr := Clean(unique[0])
	u, err := r.Parse(expr)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUndefined) {
		return Unit{}, err
	}
	// Unit(s) do not exist; define them, then try to parse again.
	if derr := r.defineParts(expr); derr != nil {
		return Unit{}, invalidUnit(expr)
	}
	u, err = r.Parse(expr)
	if err != nil {
		return Unit{}, invalidUnit(expr)
	}
	return u, nil
}

func invalidUnit(expr string) error {
	return fmt.Errorf(
		"unit %q cannot be parsed; contains invalid character(s) %q: %w",
		expr, badChars(expr), ErrInvalid)
}
