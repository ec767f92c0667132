package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// IkeErrorCode mirrors the error range of the notify registry so that
// codec and negotiation failures can be matched against the notify
// that should be sent for them.
type IkeErrorCode NotificationType

const (
	ERR_UNSUPPORTED_CRITICAL_PAYLOAD IkeErrorCode = IkeErrorCode(UNSUPPORTED_CRITICAL_PAYLOAD)
	ERR_INVALID_SYNTAX               IkeErrorCode = IkeErrorCode(INVALID_SYNTAX)
	ERR_INVALID_MESSAGE_ID           IkeErrorCode = IkeErrorCode(INVALID_MESSAGE_ID)
	ERR_NO_PROPOSAL_CHOSEN           IkeErrorCode = IkeErrorCode(NO_PROPOSAL_CHOSEN)
	ERR_INVALID_KE_PAYLOAD           IkeErrorCode = IkeErrorCode(INVALID_KE_PAYLOAD)
	ERR_AUTHENTICATION_FAILED        IkeErrorCode = IkeErrorCode(AUTHENTICATION_FAILED)
	ERR_TEMPORARY_FAILURE            IkeErrorCode = IkeErrorCode(TEMPORARY_FAILURE)
)

func (e IkeErrorCode) Error() string {
	return NotificationType(e).String()
}

// GetIkeErrorCode checks if the notify is one we map onto an error.
func GetIkeErrorCode(n NotificationType) (IkeErrorCode, bool) {
	if n.IsError() {
		return IkeErrorCode(n), true
	}
	return 0, false
}

// ErrF wraps a sentinel with a formatted description.
func ErrF(err error, format string, args ...interface{}) error {
	return errors.Wrap(err, fmt.Sprintf(format, args...))
}
