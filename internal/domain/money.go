package domain

import (
	"fmt"
	"strings"
)

// Amount is a monetary value expressed in the currency's minor unit (dirhams for QAR, fils for KWD).
type Amount int64

const DefaultCurrency = "QAR"

var minorUnits = map[string]int{
	"QAR": 2,
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"AED": 2,
	"SAR": 2,
	"KWD": 3,
	"BHD": 3,
	"OMR": 3,
	"EGP": 2,
	"INR": 2,
	"PKR": 2,
	"PHP": 2,
}

func IsSupportedCurrency(currency string) bool {
	_, ok := minorUnits[strings.ToUpper(currency)]
	return ok
}

// MinorUnits returns the number of decimal places used by currency.
func MinorUnits(currency string) int {
	if d, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return d
	}
	return 2
}

// Major converts a whole major-unit value (500 QAR) into an Amount.
func Major(value int64, currency string) Amount {
	a := Amount(value)
	for i := 0; i < MinorUnits(currency); i++ {
		a *= 10
	}
	return a
}

// BasisPoints returns a share of a rounded half away from zero to the minor unit. 1000 bp = 10%.
func (a Amount) BasisPoints(bp int64) Amount {
	p := int64(a) * bp
	if p >= 0 {
		return Amount((p + 5000) / 10000)
	}
	return Amount((p - 5000) / 10000)
}

// Percent is BasisPoints for whole percentages.
func (a Amount) Percent(pct int) Amount {
	return a.BasisPoints(int64(pct) * 100)
}

// DivRound divides and rounds half away from zero.
func (a Amount) DivRound(n int64) Amount {
	if n == 0 {
		return 0
	}
	v := int64(a)
	if v >= 0 {
		return Amount((v + n/2) / n)
	}
	return Amount((v - n/2) / n)
}

func (a Amount) Format(currency string) string {
	digits := MinorUnits(currency)
	scale := int64(1)
	for i := 0; i < digits; i++ {
		scale *= 10
	}
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, v/scale, digits, v%scale, strings.ToUpper(currency))
}
