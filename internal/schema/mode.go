package schema

import "fmt"

// ParseMode converts a mode string (as supplied on the command line or in a
// config file) into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStaticOnly, ModeAIOnly, ModeHybrid:
		return Mode(s), nil
	case "":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("schema: unknown grading mode %q (want static_only, ai_only, or hybrid)", s)
	}
}

// IncludesStatic reports whether the mode runs static validation.
func (m Mode) IncludesStatic() bool {
	return m == ModeStaticOnly || m == ModeHybrid
}

// IncludesAI reports whether the mode runs AI evaluation.
func (m Mode) IncludesAI() bool {
	return m == ModeAIOnly || m == ModeHybrid
}
