package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rewardsense/cardmap/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("WithLogger and FromContext round trip", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf)

		ctx := logging.WithLogger(context.Background(), &logger)
		got := logging.FromContext(ctx)
		assert.Equal(t, &logger, got)
	})

	t.Run("FromContext falls back to the default logger", func(t *testing.T) {
		assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	})

	t.Run("WithLogger with nil logger stores the default", func(t *testing.T) {
		ctx := logging.WithLogger(context.Background(), nil)
		assert.Equal(t, logging.Default(), logging.FromContext(ctx))
	})

	t.Run("WithRunID stamps the run on context and logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf)
		ctx := logging.WithLogger(context.Background(), &logger)

		ctx = logging.WithRunID(ctx, "run-42")
		assert.Equal(t, "run-42", logging.RunID(ctx))

		logging.FromContext(ctx).Info().Msg("merged")
		assert.Contains(t, buf.String(), `"run_id":"run-42"`)
	})

	t.Run("RunID is empty when unset", func(t *testing.T) {
		assert.Equal(t, "", logging.RunID(context.Background()))
	})

	t.Run("WithSource adds source field to the logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf)
		ctx := logging.WithLogger(context.Background(), &logger)

		ctx = logging.WithSource(ctx, "nerdwallet")
		logging.FromContext(ctx).Info().Msg("fetched")
		assert.Contains(t, buf.String(), `"source":"nerdwallet"`)
	})

	t.Run("WithCard adds card field to the logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf)
		ctx := logging.WithLogger(context.Background(), &logger)

		ctx = logging.WithCard(ctx, "chase--sapphire-preferred")
		logging.FromContext(ctx).Info().Msg("resolved")
		assert.Contains(t, buf.String(), `"card_id":"chase--sapphire-preferred"`)
	})
}
