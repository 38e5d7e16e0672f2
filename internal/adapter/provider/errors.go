package provider

import (
	"errors"
	"net"

	"github.com/dhecash/gateway/pkg/apperror"
)

// MapTransportError maps a raw HTTP transport error to the adapter failure
// taxonomy in spec §4.B: network timeout -> PROVIDER_TIMEOUT, any other
// remote failure -> PROVIDER_ERROR.
func MapTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperror.ErrProviderTimeout(err)
	}
	return apperror.ErrProviderError(err)
}
