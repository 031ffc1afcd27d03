package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestParseSettleMode(t *testing.T) {
	mode, err := ParseSettleMode("")
	require.NoError(t, err)
	require.Equal(t, SettleNavigation, mode)

	mode, err = ParseSettleMode("FIXED")
	require.NoError(t, err)
	require.Equal(t, SettleFixed, mode)

	_, err = ParseSettleMode("forever")
	require.Error(t, err)
}

func TestSettler(t *testing.T) {
	t.Run("fixed mode sleeps for the interval without touching the page", func(t *testing.T) {
		controller := gomock.NewController(t)
		page := NewMockPage(controller)

		settler := NewSettler(page, SettleFixed, 30*time.Millisecond)
		require.NoError(t, settler.Arm(context.Background()))

		start := time.Now()
		require.NoError(t, settler.Wait(context.Background()))
		require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("navigation mode returns once the new document is complete", func(t *testing.T) {
		controller := gomock.NewController(t)
		page := NewMockPage(controller)

		var token string
		page.EXPECT().
			MarkDocument(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, tok string) error {
				token = tok
				return nil
			})
		page.EXPECT().DocumentMarked(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
		page.EXPECT().DocumentMarked(gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
		page.EXPECT().ReadyState(gomock.Any()).Return("loading", nil).Times(1)
		page.EXPECT().ReadyState(gomock.Any()).Return("complete", nil).AnyTimes()

		settler := NewSettler(page, SettleNavigation, 5*time.Second)
		settler.poll = time.Millisecond
		require.NoError(t, settler.Arm(context.Background()))
		require.NotEmpty(t, token)

		start := time.Now()
		require.NoError(t, settler.Wait(context.Background()))
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("navigation mode gives up quietly after the interval", func(t *testing.T) {
		controller := gomock.NewController(t)
		page := NewMockPage(controller)

		page.EXPECT().MarkDocument(gomock.Any(), gomock.Any()).Return(nil)
		page.EXPECT().DocumentMarked(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

		settler := NewSettler(page, SettleNavigation, 40*time.Millisecond)
		settler.poll = 5 * time.Millisecond
		require.NoError(t, settler.Arm(context.Background()))

		start := time.Now()
		require.NoError(t, settler.Wait(context.Background()))
		elapsed := time.Since(start)
		require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
		require.Less(t, elapsed, 2*time.Second)
	})

	t.Run("unarmed navigation mode only waits for the ready state", func(t *testing.T) {
		controller := gomock.NewController(t)
		page := NewMockPage(controller)

		page.EXPECT().ReadyState(gomock.Any()).Return("complete", nil)

		settler := NewSettler(page, SettleNavigation, time.Second)
		require.NoError(t, settler.Wait(context.Background()))
	})

	t.Run("arm reports a failure to mark the document", func(t *testing.T) {
		controller := gomock.NewController(t)
		page := NewMockPage(controller)

		page.EXPECT().MarkDocument(gomock.Any(), gomock.Any()).Return(ErrSessionClosed)

		err := NewSettler(page, SettleNavigation, time.Second).Arm(context.Background())
		require.True(t, errors.Is(err, ErrSessionClosed))
	})
}
