package memory

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"imagelite/internal/logging"
)

const (
	// EnvBudget overrides the processing budget, e.g. "256MiB" or "off".
	EnvBudget = "IMAGELITE_MEMORY_BUDGET"

	// DefaultBudgetRatio is the share of the Go soft limit one decode may use.
	DefaultBudgetRatio = 0.5
)

// Budget is the memory a single source decode may use.
type Budget struct {
	Bytes uint64
	// Source is EnvBudget, "GOMEMLIMIT" or "none".
	Source string
}

func (b Budget) String() string {
	if b.Bytes == 0 {
		return "unlimited"
	}
	return humanize.IBytes(b.Bytes)
}

// ParseBudget parses a byte size such as "512MiB", "128M" or "1073741824".
// "", "0", "off", "none" and "unlimited" disable the check.
func ParseBudget(s string) (uint64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "off", "none", "unlimited":
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid memory budget %q: %w", s, err)
	}
	return n, nil
}

// BudgetFromEnv resolves the processing budget: EnvBudget when set,
// otherwise DefaultBudgetRatio of the Go soft limit, otherwise none.
func BudgetFromEnv() Budget {
	if env, ok := os.LookupEnv(EnvBudget); ok {
		n, err := ParseBudget(env)
		if err != nil {
			logging.Warn("%v; falling back to GOMEMLIMIT", err)
		} else {
			return Budget{Bytes: n, Source: EnvBudget}
		}
	}

	if limit := currentLimit(); limit > 0 {
		return Budget{Bytes: uint64(float64(limit) * DefaultBudgetRatio), Source: "GOMEMLIMIT"}
	}
	return Budget{Source: "none"}
}
