package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger. Every expression roll is logged at debug
// level with the expression, dice, modifier and total.
//
// Roller itself satisfies Source, so it can stand in wherever a plain Source
// is expected while sharing the same draw sequence.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn delegates to the wrapped Source.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Float64 delegates to the wrapped Source.
func (r *Roller) Float64() float64 { return r.src.Float64() }

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// Eval rolls expr from src. When src is a *Roller the roll is logged like
// any other expression roll; a plain Source rolls silently.
func Eval(src Source, expr Expression) RollResult {
	if r, ok := src.(*Roller); ok {
		return r.Roll(expr)
	}
	return Roll(expr, src)
}
