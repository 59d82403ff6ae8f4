// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package remote

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		unauthorized bool
		transient    bool
	}{
		{"nil", nil, false, false},
		{"bad password", &pq.Error{Code: "28P01"}, true, false},
		{"insufficient privilege", &pq.Error{Code: "42501"}, true, false},
		{"connection failure", &pq.Error{Code: "08006"}, false, true},
		{"too many connections", &pq.Error{Code: "53300"}, false, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, false, true},
		{"serialization failure", &pq.Error{Code: "40001"}, false, true},
		{"check violation", &pq.Error{Code: "23514"}, false, false},
		{"bad conn", driver.ErrBadConn, false, true},
		{"deadline", context.DeadlineExceeded, false, true},
		{"wrapped deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), false, true},
		{"plain", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.unauthorized, IsUnauthorized(got), "IsUnauthorized")
			assert.Equal(t, tt.transient, IsTransient(got), "IsTransient")
		})
	}
}

func TestIsTransient_NotFoundIsPermanent(t *testing.T) {
	if IsTransient(ErrNotFound) {
		t.Error("ErrNotFound should not be transient")
	}
	if IsTransient(ErrIncomplete) {
		t.Error("ErrIncomplete should not be transient")
	}
	if IsTransient(ErrMalformed) {
		t.Error("ErrMalformed should not be transient")
	}
}
