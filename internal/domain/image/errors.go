package image

import platformerrors "medscan-server-go/internal/platform/errors"

func decodeError(op, message string, cause error) error {
	if cause == nil {
		return platformerrors.New(platformerrors.KindDecode, op, message)
	}
	return &platformerrors.Error{
		Kind:    platformerrors.KindDecode,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// IsDecodeError reports whether err means the upload could not be turned into
// pixels. Such failures are terminal for that file.
func IsDecodeError(err error) bool {
	return platformerrors.IsKind(err, platformerrors.KindDecode)
}
