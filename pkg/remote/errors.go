// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrNotFound indicates the account has no records yet.
	ErrNotFound = errors.New("account not found")

	// ErrUnauthorized indicates the session credentials were rejected. Sync must halt.
	ErrUnauthorized = errors.New("remote store rejected credentials")

	// ErrIncomplete indicates the profile exists but another record of the account is missing.
	// CreateAccount fills the gaps.
	ErrIncomplete = errors.New("account records only partly created")

	// ErrMalformed indicates an invalid snapshot.
	ErrMalformed = errors.New("malformed remote snapshot")

	// ErrUnavailable indicates a transient network or server failure.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrUnknownKind indicates an upsert for a record kind the store does not know.
	ErrUnknownKind = errors.New("unknown record kind")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUnauthorized reports whether err invalidates the session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// classify maps driver errors onto the store's error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28": // invalid authorization specification
			return errors.Join(ErrUnauthorized, err)
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return errors.Join(ErrUnavailable, err)
		case "40": // serialization failure or deadlock
			return errors.Join(ErrUnavailable, err)
		}
		if pqErr.Code == "42501" { // insufficient_privilege
			return errors.Join(ErrUnauthorized, err)
		}
		return err
	}

	if IsTransient(err) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
