package store

import (
	platformerrors "medscan-server-go/internal/platform/errors"
)

func errNotFound(op, id string) error {
	return platformerrors.New(platformerrors.KindNotFound, op, "analysis "+id+" not found")
}

func errStorage(op, msg string, err error) error {
	return platformerrors.Wrap(platformerrors.KindStorage, op, msg, err)
}
