// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"testing"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("p")
	assertTrueE(t, cfg.ThrowNotFound)
	assertEqualE(t, cfg.BufferSize, defaultBufferSize)
	assertEqualE(t, cfg.RetrySettings, DefaultRetrySettings())
	assertNotNilF(t, cfg.RetryConfig)
	assertNotNilF(t, cfg.Clock)
}

func TestValidateKeepsThrowNotFound(t *testing.T) {
	cfg := &Config{ProjectID: "p"}
	assertNilF(t, cfg.Validate())
	assertFalseE(t, cfg.ThrowNotFound, "a literal config tolerates missing jobs")
	assertEqualE(t, cfg.BufferSize, defaultBufferSize)

	cfg = &Config{ProjectID: "p", ThrowNotFound: true}
	assertNilF(t, cfg.Validate())
	assertTrueE(t, cfg.ThrowNotFound)
}
