// Package locate finds rule symbols in symbol table dumps and rule
// instructions in disassembly listings.
package locate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/modx/enginerw/pkg/rules"
)

// Demangler turns a mangled symbol name into its source form.
type Demangler interface {
	Demangle(ctx context.Context, mangled string) (string, error)
}

// Candidate is a symbol table line accepted for a rule symbol.
type Candidate struct {
	// Line is the full matched line.
	Line string
	// Mangled is the last whitespace delimited token of Line.
	Mangled string
	// Demangled equals the rule symbol's DemangledName.
	Demangled string
	// Object is the owning archive member, archive targets only.
	Object string
}

// SymbolNotFoundError is returned when no symbol table line demangles to the
// configured name. It is expected when the engine binary layout drifts.
type SymbolNotFoundError struct {
	Symbol  string
	Matches int
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("failed to find symbol %s (%d pattern matches)", e.Symbol, e.Matches)
}

// FindSymbols returns every line of text matched by sym.Pattern whose mangled
// name demangles exactly to sym.DemangledName. When archive is set the
// pattern's first group names the owning object file.
func FindSymbols(ctx context.Context, text string, sym rules.Symbol, d Demangler, archive bool) ([]Candidate, error) {
	re, err := regexp.Compile("(?m)" + sym.Pattern)
	if err != nil {
		return nil, &rules.ConfigError{Symbol: sym.Pattern, Msg: "Symbol's Pattern is not a valid regular expression", Err: err}
	}
	if archive && re.NumSubexp() < 1 {
		return nil, &rules.ConfigError{Symbol: sym.Pattern, Msg: "Symbol's Pattern should have one group capturing the object file"}
	}

	matches := re.FindAllStringSubmatch(text, -1)
	var found []Candidate
	for _, m := range matches {
		line := strings.TrimSpace(m[0])
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		mangled := fields[len(fields)-1]

		demangled, err := d.Demangle(ctx, mangled)
		if err != nil {
			return nil, err
		}
		if demangled != sym.DemangledName {
			log.WithFields(log.Fields{
				"mangled":   mangled,
				"demangled": demangled,
			}).Debug("Skipping symbol with different demangled name")
			continue
		}

		c := Candidate{Line: line, Mangled: mangled, Demangled: demangled}
		if archive {
			c.Object = m[1]
		}
		found = append(found, c)
	}

	if len(found) == 0 {
		return nil, &SymbolNotFoundError{Symbol: sym.DemangledName, Matches: len(matches)}
	}
	return found, nil
}

// GroupByObject groups archive candidates by owning object file, keeping the
// order in which each object was first seen.
func GroupByObject(cands []Candidate) (objects []string, byObject map[string][]Candidate) {
	byObject = make(map[string][]Candidate)
	for _, c := range cands {
		if _, ok := byObject[c.Object]; !ok {
			objects = append(objects, c.Object)
		}
		byObject[c.Object] = append(byObject[c.Object], c)
	}
	return objects, byObject
}
