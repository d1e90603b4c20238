// Package engine evaluates vegetation catalogs written in a small Lisp.
// It wraps zygomys in a sandboxed environment and produces a
// catalog.Catalog from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/verdant/pkg/catalog"
	"github.com/chazu/verdant/pkg/logging"
)

// EvalTimeout bounds a single catalog evaluation.
const EvalTimeout = 5 * time.Second

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalResult bundles an evaluated catalog with its evaluation errors and
// validation findings.
type EvalResult struct {
	Catalog  *catalog.Catalog
	Errors   []EvalError
	Findings catalog.ValidationResult
}

// OK reports whether the catalog evaluated and has no blocking findings.
func (r EvalResult) OK() bool {
	return r.Catalog != nil && len(r.Errors) == 0 && len(r.Findings.Errors) == 0
}

// Engine wraps the zygomys interpreter for catalog evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	logger     *log.Logger
}

// NewEngine creates a new Engine. A nil logger discards output.
func NewEngine(logger *log.Logger) *Engine {
	return &Engine{timeout: EvalTimeout, logger: logging.OrDiscard(logger)}
}

// evalOutcome carries one sandbox run back to the caller.
type evalOutcome struct {
	catalog *catalog.Catalog
	errors  []EvalError
	err     error
}

// Evaluate takes Lisp source code and produces a new Catalog.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns catalog + nil errors + nil error
//   - On parse/eval failure: returns nil catalog + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*catalog.Catalog, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOutcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		c, evalErrs, err := e.evaluate(source)
		ch <- evalOutcome{catalog: c, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// await returns the outcome of evaluation gen. A catalog from a run that a
// later Evaluate call has overtaken is dropped, so a watcher reloading on
// every save only ever sees the newest source. A run still going when the
// timeout fires is abandoned; its outcome lands in the buffered channel and
// is never read.
func (e *Engine) await(ch <-chan evalOutcome, gen uint64) (*catalog.Catalog, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		e.mu.Lock()
		latest := e.generation
		e.mu.Unlock()
		if gen != latest {
			return nil, nil, fmt.Errorf("catalog evaluation %d superseded by %d", gen, latest)
		}
		return out.catalog, out.errors, out.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("catalog evaluation timed out after %s", e.timeout)
	}
}

// EvaluateResult evaluates source and validates the resulting catalog.
// Only fatal failures are returned as an error.
func (e *Engine) EvaluateResult(source string) (EvalResult, error) {
	c, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Catalog: c, Errors: evalErrs}
	if c == nil {
		for _, ee := range evalErrs {
			e.logger.Error("evaluation failed", "line", ee.Line, "err", ee.Message)
		}
		return res, nil
	}

	res.Findings = catalog.ValidateAll(c)
	for _, w := range res.Findings.Warnings {
		e.logger.Warn(w.Message, "record", w.Record, "name", w.Name)
	}
	for _, f := range res.Findings.Errors {
		e.logger.Error(f.Message, "record", f.Record, "name", f.Name)
	}
	e.logger.Debug("catalog evaluated",
		"biomes", len(c.Biomes),
		"layers", len(c.Layers),
		"vegetation", len(c.Vegetation),
		"rules", len(c.RuleSets),
		"trees", len(c.Trees))
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*catalog.Catalog, []EvalError, error) {
	// Empty source is a valid program that produces an empty catalog.
	if strings.TrimSpace(source) == "" {
		return catalog.New(), nil, nil
	}

	// Rewrite keywords, kebab-case and comments into something zygomys
	// can parse.
	source = preprocessSource(source)

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	c := catalog.New()
	registerBuiltins(env, c)

	err := env.LoadString(source)
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	return c, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	// No line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
