package ui

import (
	"math/big"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	cwmath "github.com/michaelpento.lv/cwflash/utils/math"
)

const (
	DefaultExponent = 6
	// DisplayDigits is the maximum number of fraction digits shown for amounts.
	DisplayDigits = 6
)

var printer = message.NewPrinter(language.English)

func ConvertMicroDenomToDenom(micro *big.Int, exponent int) *big.Rat {
	return cwmath.MicroToDenom(micro, exponent)
}

func ConvertDenomToMicroDenom(amount *big.Rat, exponent int) *big.Int {
	return cwmath.DenomToMicro(amount, exponent)
}

// FormatAmount renders a display amount with digit grouping and at most
// DisplayDigits fraction digits.
func FormatAmount(amount *big.Rat) string {
	if amount == nil {
		return "0"
	}
	f, _ := cwmath.Round(amount, DisplayDigits).Float64()
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(DisplayDigits)))
}

// FormatMicro converts a smallest-unit amount and formats it for display.
func FormatMicro(micro *big.Int, exponent int) string {
	return FormatAmount(ConvertMicroDenomToDenom(micro, exponent))
}

// PlainDecimal renders r rounded to DisplayDigits without trailing zeros.
func PlainDecimal(r *big.Rat) string {
	if r == nil {
		return "0"
	}
	s := cwmath.Round(r, DisplayDigits).FloatString(DisplayDigits)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// DenomName derives the display name from a fee denom, "ujuno" -> "JUNO".
func DenomName(feeDenom string) string {
	if len(feeDenom) < 2 {
		return strings.ToUpper(feeDenom)
	}
	return strings.ToUpper(feeDenom[1:])
}
