package rewriter

import (
	"errors"
	"fmt"

	"github.com/modx/enginerw/pkg/rules"
)

// PartialApplicationError is returned when only some of a symbol's
// instructions could be rewritten, or when fresh writes are mixed with
// instructions that already held their replacement.
type PartialApplicationError struct {
	Feature        string
	Symbol         string
	Rewritten      int
	AlreadyPatched int
	Expected       int
}

func (e *PartialApplicationError) Error() string {
	if e.AlreadyPatched > 0 {
		return fmt.Sprintf("failed to rewrite all instructions of %s in feature %q: %d rewritten and %d already patched of %d",
			e.Symbol, e.Feature, e.Rewritten, e.AlreadyPatched, e.Expected)
	}
	return fmt.Sprintf("failed to rewrite all instructions of %s in feature %q: %d of %d",
		e.Symbol, e.Feature, e.Rewritten, e.Expected)
}

// ErrNoBackup is returned by Restore when an artifact has no backup.
var ErrNoBackup = errors.New("no backup found")

// withRule fills the feature and symbol of a configuration error.
func withRule(err error, feature string, sym rules.Symbol) error {
	var cerr *rules.ConfigError
	if errors.As(err, &cerr) {
		if cerr.Feature == "" {
			cerr.Feature = feature
		}
		if cerr.Symbol == "" {
			cerr.Symbol = sym.Pattern
		}
	}
	return err
}
