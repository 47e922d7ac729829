package services

import (
	"errors"

	"github.com/terraincognita07/liberate/internal/synccache"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrIndexOutOfRange = errors.New("journal index out of range")
	ErrEntryNotFound   = errors.New("journal entry not found")

	ErrUnauthenticated   = synccache.ErrUnauthenticated
	ErrRemoteWriteFailed = synccache.ErrRemoteWriteFailed
	ErrRemoteReadFailed  = synccache.ErrRemoteReadFailed
)
