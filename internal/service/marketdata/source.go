package marketdata

import (
	"context"
	"errors"
	"net"

	drepo "FinSage/internal/domain/repository"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// classifyTransportErr maps transport-level failures to the adapter
// failure taxonomy. Anything that isn't clearly a timeout counts as
// Unavailable so the fallback loop advances.
func classifyTransportErr(err error) drepo.FailReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return drepo.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return drepo.ReasonTimeout
	}
	return drepo.ReasonUnavailable
}
