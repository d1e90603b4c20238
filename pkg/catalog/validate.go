package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/verdant/pkg/colonise"
)

// ValidationSeverity indicates whether a finding blocks generation or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks generation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Record   string             // record kind: biome, layer, vegetation, rules, tree
	Name     string             // record name (empty if catalog-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s %q: %s", e.Severity, e.Record, e.Name, e.Message)
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// Err joins the blocking findings into one error, or returns nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.Join(lo.Map(r.Errors, func(e ValidationError, _ int) error { return e })...)
}

// Validate runs every check and returns all findings. An empty slice means
// the catalog is valid. The catalog is never mutated.
func Validate(c *Catalog) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNames(c)...)
	errs = append(errs, validateReferences(c)...)
	errs = append(errs, validateVegetation(c)...)
	errs = append(errs, validateBiomes(c)...)
	errs = append(errs, validateRuleSets(c)...)
	errs = append(errs, validateTrees(c)...)
	errs = append(errs, validateUsage(c)...)
	return errs
}

// ValidateAll runs Validate and splits the findings by severity.
func ValidateAll(c *Catalog) ValidationResult {
	all := Validate(c)
	return ValidationResult{
		Errors:   lo.Filter(all, func(e ValidationError, _ int) bool { return e.Severity == SeverityError }),
		Warnings: lo.Filter(all, func(e ValidationError, _ int) bool { return e.Severity == SeverityWarning }),
	}
}

func errorf(record, name, format string, args ...any) ValidationError {
	return ValidationError{Record: record, Name: name, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(record, name, format string, args ...any) ValidationError {
	return ValidationError{Record: record, Name: name, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// validateNames checks that every record is named and that names are
// unique per record kind.
func validateNames(c *Catalog) []ValidationError {
	var errs []ValidationError
	check := func(record string, names []string) {
		for i, n := range names {
			if n == "" {
				errs = append(errs, errorf(record, "", "%s #%d has no name", record, i))
			}
		}
		for _, dup := range lo.FindDuplicates(lo.Compact(names)) {
			errs = append(errs, errorf(record, dup, "name defined more than once"))
		}
	}
	check(kindBiome, lo.Map(c.Biomes, func(b *Biome, _ int) string { return b.Name }))
	check(kindLayer, lo.Map(c.Layers, func(l *Layer, _ int) string { return l.Name }))
	check(kindVegetation, lo.Map(c.Vegetation, func(v *Vegetation, _ int) string { return v.Name }))
	check(kindRuleSet, lo.Map(c.RuleSets, func(r *RuleSet, _ int) string { return r.Name }))
	check(kindTree, lo.Map(c.Trees, func(t *TreeSpec, _ int) string { return t.Name }))
	return errs
}

// validateReferences checks that every name a record refers to exists.
func validateReferences(c *Catalog) []ValidationError {
	var errs []ValidationError
	for _, b := range c.Biomes {
		for _, ln := range b.Layers {
			if c.Layer(ln) == nil {
				errs = append(errs, errorf(kindBiome, b.Name, "layer %q does not exist", ln))
			}
		}
	}
	for _, l := range c.Layers {
		for _, vn := range l.Vegetation {
			if c.VegetationNamed(vn) == nil {
				errs = append(errs, errorf(kindLayer, l.Name, "vegetation %q does not exist", vn))
			}
		}
	}
	for _, v := range c.Vegetation {
		switch v.Kind {
		case KindLSystem:
			if c.RuleSet(v.RuleSet) == nil {
				errs = append(errs, errorf(kindVegetation, v.Name, "rule set %q does not exist", v.RuleSet))
			}
		case KindColonisation:
			if c.Tree(v.Tree) == nil {
				errs = append(errs, errorf(kindVegetation, v.Name, "tree %q does not exist", v.Tree))
			}
		}
	}
	return errs
}

// validateVegetation checks footprint radii and generator kinds.
func validateVegetation(c *Catalog) []ValidationError {
	var errs []ValidationError
	for _, v := range c.Vegetation {
		switch v.Kind {
		case KindLSystem, KindColonisation:
		default:
			errs = append(errs, errorf(kindVegetation, v.Name, "kind %q must be %q or %q", v.Kind, KindLSystem, KindColonisation))
		}
		if v.Outer <= 0 {
			errs = append(errs, errorf(kindVegetation, v.Name, "outer radius must be positive, got %g", v.Outer))
		}
		if v.Inner < 0 {
			errs = append(errs, errorf(kindVegetation, v.Name, "inner radius must not be negative, got %g", v.Inner))
		}
		if v.Inner > v.Outer && v.Outer > 0 {
			errs = append(errs, warnf(kindVegetation, v.Name, "inner radius %g exceeds outer radius %g", v.Inner, v.Outer))
		}
		if v.Sparsity <= 0 {
			errs = append(errs, warnf(kindVegetation, v.Name, "sparsity %g is treated as 1", v.Sparsity))
		}
		if v.Variants < 0 {
			errs = append(errs, errorf(kindVegetation, v.Name, "variants must not be negative, got %d", v.Variants))
		}
	}
	return errs
}

// validateBiomes checks climate polygons and layer lists.
func validateBiomes(c *Catalog) []ValidationError {
	var errs []ValidationError
	for _, b := range c.Biomes {
		if len(b.Climate) < 3 {
			errs = append(errs, errorf(kindBiome, b.Name, "climate polygon needs at least 3 points, got %d", len(b.Climate)))
		}
		if len(b.Layers) == 0 {
			errs = append(errs, warnf(kindBiome, b.Name, "has no layers and will place nothing"))
		}
		if b.Sparsity <= 0 {
			errs = append(errs, warnf(kindBiome, b.Name, "sparsity %g is treated as 1", b.Sparsity))
		}
	}
	return errs
}

// validateRuleSets checks axioms and rule syntax.
func validateRuleSets(c *Catalog) []ValidationError {
	var errs []ValidationError
	for _, r := range c.RuleSets {
		if r.Axiom == "" {
			errs = append(errs, errorf(kindRuleSet, r.Name, "axiom is empty"))
		}
		if r.Iterations < 0 {
			errs = append(errs, errorf(kindRuleSet, r.Name, "iterations must not be negative, got %d", r.Iterations))
		}
		var keys []string
		for _, rule := range r.Rules {
			k, _, ok := strings.Cut(rule, "=")
			if !ok || k == "" {
				errs = append(errs, warnf(kindRuleSet, r.Name, "rule %q is not of the form k=v and will be skipped", rule))
				continue
			}
			keys = append(keys, string([]rune(k)[0]))
		}
		for _, dup := range lo.FindDuplicates(keys) {
			errs = append(errs, warnf(kindRuleSet, r.Name, "rule for %q defined more than once; the last one wins", dup))
		}
	}
	return errs
}

// validateTrees checks that every tree can grow.
func validateTrees(c *Catalog) []ValidationError {
	var errs []ValidationError
	for _, t := range c.Trees {
		if _, ok := t.Volume.Trunk(); !ok {
			errs = append(errs, errorf(kindTree, t.Name, "%v", colonise.ErrNoTrunk))
			continue
		}
		if t.Envelope == nil && len(t.Volume.Canopy()) == 0 {
			errs = append(errs, warnf(kindTree, t.Name, "has no canopy shapes or envelope and will only grow its trunk"))
		}
	}
	return errs
}

// validateUsage warns about records nothing refers to.
func validateUsage(c *Catalog) []ValidationError {
	var errs []ValidationError
	used := lo.FlatMap(c.Layers, func(l *Layer, _ int) []string { return l.Vegetation })
	for _, v := range c.Vegetation {
		if v.Name != "" && !lo.Contains(used, v.Name) {
			errs = append(errs, warnf(kindVegetation, v.Name, "is not part of any layer"))
		}
	}
	for _, l := range c.Layers {
		if len(l.Vegetation) == 0 {
			errs = append(errs, warnf(kindLayer, l.Name, "has no vegetation"))
		}
	}
	return errs
}
