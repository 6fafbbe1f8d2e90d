package services

import "log/slog"

// FailurePolicy says what happens when an operation's remote call fails.
type FailurePolicy int

const (
	// LogOnly keeps the local (optimistic) state and only logs the failure.
	LogOnly FailurePolicy = iota
	// Surface returns the failure to the caller for display.
	Surface
)

func (p FailurePolicy) String() string {
	switch p {
	case LogOnly:
		return "log-only"
	case Surface:
		return "surface"
	default:
		return "unknown"
	}
}

const (
	OpCartIncrease     = "cart.increase"
	OpCartDecrease     = "cart.decrease"
	OpCartLoad         = "cart.load"
	OpOrderSubmit      = "order.submit"
	OpPaymentStatus    = "payment.status"
	OpPaymentClearCart = "payment.clear_cart"
	OpPaymentReload    = "payment.reload"
	OpAdminSetStatus   = "admin.set_status"
)

// FailurePolicies is the per-operation failure table.
var FailurePolicies = map[string]FailurePolicy{
	OpCartIncrease:     LogOnly,
	OpCartDecrease:     LogOnly,
	OpCartLoad:         LogOnly,
	OpOrderSubmit:      Surface,
	OpPaymentStatus:    Surface,
	OpPaymentClearCart: Surface,
	OpPaymentReload:    Surface,
	OpAdminSetStatus:   LogOnly,
}

// PolicyFor returns the policy for op; unknown operations surface.
func PolicyFor(op string) FailurePolicy {
	if p, ok := FailurePolicies[op]; ok {
		return p
	}
	return Surface
}

// absorb applies op's policy to err: log-only errors are logged and swallowed (nil is returned),
// surfaced errors are returned unchanged.
func absorb(log *slog.Logger, op string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if PolicyFor(op) == Surface {
		return err
	}
	log.Warn("remote call failed", append([]any{"op", op, "policy", LogOnly.String(), "error", err}, attrs...)...)
	return nil
}
