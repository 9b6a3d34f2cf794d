package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed dice expression. A constant expression such as "30"
// has Count == 0 and rolls to its Modifier.
//
// Invariant: Count == 0 or (Count >= 1 and Sides >= 2).
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// IsConstant reports whether the expression rolls no dice.
func (e Expression) IsConstant() bool { return e.Count == 0 }

// Min returns the lowest total the expression can roll.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max returns the highest total the expression can roll.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }

var (
	diceExpr  = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)
	constExpr = regexp.MustCompile(`^[+-]?\d+$`)
)

// Parse parses a dice expression string.
// Supported forms: "30", "d20", "2d6", "1d11+19", "4d8-2".
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	if constExpr.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid constant %q: %w", expr, err)
		}
		return Expression{Raw: expr, Modifier: n}, nil
	}
	m := diceExpr.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
		if count < 1 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", expr)
		}
	}
	sides, _ := strconv.Atoi(m[2])
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", expr)
	}
	mod := 0
	if m[3] != "" {
		mod, _ = strconv.Atoi(m[3])
	}
	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: mod}, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
