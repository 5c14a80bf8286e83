package telegram

import (
	"errors"
	"fmt"

	"github.com/gotd/td/tgerr"
)

// Sentinel errors for the provider error classes the gateway reacts to.
// Everything else passes through unclassified.
var (
	ErrNotFound   = errors.New("telegram: peer not found")
	ErrPermission = errors.New("telegram: permission denied")
	ErrFloodWait  = errors.New("telegram: flood wait")
)

// RPC error types that mean the peer cannot be resolved as given
var notFoundTypes = []string{
	"USERNAME_NOT_OCCUPIED",
	"USERNAME_INVALID",
	"PHONE_NOT_OCCUPIED",
	"PEER_ID_INVALID",
	"CHAT_ID_INVALID",
	"CHANNEL_INVALID",
	"MSG_ID_INVALID",
}

// RPC error types that mean the account lacks access
var permissionTypes = []string{
	"CHANNEL_PRIVATE",
	"CHAT_ADMIN_REQUIRED",
	"CHAT_WRITE_FORBIDDEN",
	"USER_NOT_PARTICIPANT",
	"USER_PRIVACY_RESTRICTED",
}

// classify maps raw MTProto errors onto the package sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	if tgerr.Is(err, notFoundTypes...) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	if tgerr.Is(err, permissionTypes...) {
		return fmt.Errorf("%w: %s", ErrPermission, err)
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return fmt.Errorf("%w: retry after %s", ErrFloodWait, wait)
	}
	return err
}
