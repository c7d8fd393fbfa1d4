package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"

	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))

	err := exitError(foundry.ExitFileWriteError, "write", errors.New("disk full"))
	assert.Equal(t, foundry.ExitFileWriteError, ExitCode(err))
	assert.Equal(t, foundry.ExitFileWriteError, ExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "disk full")
}

func TestStoreExitError(t *testing.T) {
	_, verr := transfer.DownloadJob("media", "", ".", false)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: verr, want: foundry.ExitInvalidArgument},
		{name: "cancelled", err: context.Canceled, want: foundry.ExitSignalInt},
		{name: "not found", err: provider.ErrNotFound, want: foundry.ExitFileNotFound},
		{name: "container not found", err: provider.ErrContainerNotFound, want: foundry.ExitFileNotFound},
		{name: "unsupported", err: provider.ErrUnsupported, want: foundry.ExitInvalidArgument},
		{name: "other", err: provider.ErrThrottled, want: foundry.ExitExternalServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storeExitError("op", tt.err)
			assert.Equal(t, tt.want, ExitCode(err))
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}
