// Package numfmt formats the numeric literals the standard substitution
// library bakes into emitted code (parameter and derived-parameter
// values, §4.3) — locale-independent, so the same Network always emits
// the same digits regardless of the generating process's environment.
package numfmt

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/nscgen/nscgen/internal/ir"
)

// printer is fixed to the undetermined locale so grouping/decimal-point
// conventions never vary with the host environment's locale settings.
var printer = message.NewPrinter(language.Und)

// Literal formats v as a C-family floating-point literal at the given
// precision. Single precision gets the `f` suffix so the constant folds
// to `float` rather than promoting to `double` in the emitted arithmetic.
func Literal(v float64, p ir.Precision) string {
	s := printer.Sprint(number.Decimal(v, number.NoSeparator()))
	if p == ir.Single {
		return s + "f"
	}
	return s
}
