package quizcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/denizgursoy/quizcheck/pkg/browser"
)

type ctxKey string

// recordingLogger keeps messages per level
type recordingLogger struct {
	debug, info, warn, error []string
}

func (m *recordingLogger) Debug(msg string, args ...any) { m.debug = append(m.debug, msg) }
func (m *recordingLogger) Info(msg string, args ...any)  { m.info = append(m.info, msg) }
func (m *recordingLogger) Warn(msg string, args ...any)  { m.warn = append(m.warn, msg) }
func (m *recordingLogger) Error(msg string, args ...any) { m.error = append(m.error, msg) }

// requireAssertionFailure runs fn and returns the message of the assertion
// failure it raised.
func requireAssertionFailure(t *testing.T, fn func()) string {
	t.Helper()
	var msg string
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected an assertion failure")
			ae, ok := r.(*AssertionError)
			require.True(t, ok, "unexpected panic value %v", r)
			msg = ae.Message
		}()
		fn()
	}()
	return msg
}

func TestNew(t *testing.T) {
	t.Run("creates context with defaults", func(t *testing.T) {
		c := New()
		require.NotNil(t, c.Context())
		require.NotNil(t, c.Logger())
		require.NotNil(t, c.Assert())
		require.NotNil(t, c.Data())
		require.Equal(t, DefaultBaseURL, c.Config().BaseURL)
		require.Equal(t, DefaultScreenshotDir, c.Artifacts().Dir())
	})

	t.Run("uses custom logger", func(t *testing.T) {
		logger := &recordingLogger{}
		c := New(WithLogger(logger))

		c.Logger().Info("opened login.php")
		require.Equal(t, []string{"opened login.php"}, logger.info)
	})

	t.Run("uses custom context.Context", func(t *testing.T) {
		std := context.WithValue(context.Background(), ctxKey("key"), "value")
		c := New(WithContext(std))
		require.Equal(t, "value", c.Context().Value(ctxKey("key")))
	})

	t.Run("artifacts follow configured directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ScreenshotDir = t.TempDir()
		c := New(WithConfig(cfg))
		require.Equal(t, cfg.ScreenshotDir, c.Artifacts().Dir())
	})

	t.Run("keeps scenario metadata", func(t *testing.T) {
		c := New(WithScenario(Scenario{Name: "login_empty", FeatureName: "Login"}))
		require.Equal(t, "login_empty", c.Scenario().Name)
	})
}

func TestData(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		c := New()
		c.Data().Set("username", "user_1700000000")

		v, ok := c.Data().Get("username")
		require.True(t, ok)
		require.Equal(t, "user_1700000000", v)

		_, ok = c.Data().Get("missing")
		require.False(t, ok)
	})

	t.Run("initial values", func(t *testing.T) {
		c := New(WithData(map[string]any{"count": 3}))
		s, ok := c.Data().String("count")
		require.True(t, ok)
		require.Equal(t, "3", s)
	})

	t.Run("must get fails on missing key", func(t *testing.T) {
		c := New()
		msg := requireAssertionFailure(t, func() { c.Data().MustGet("settler") })
		require.Contains(t, msg, `"settler"`)
	})
}

func TestContext_Page(t *testing.T) {
	t.Run("fails without session", func(t *testing.T) {
		c := New(WithScenario(Scenario{Name: "register_empty"}))
		msg := requireAssertionFailure(t, func() { c.Page() })
		require.Contains(t, msg, "register_empty")
	})

	t.Run("returns attached session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		page := browser.NewMockPage(ctrl)

		c := New()
		c.SetPage(page)
		require.Same(t, page, c.Page())

		c2 := New(WithPage(page))
		require.Same(t, page, c2.Page())
	})
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	require.NotPanics(t, func() {
		l.Debug("d", "k", 1)
		l.Info("i")
		l.Warn("w")
		l.Error("e")
	})
}

func TestContext_SaveArtifact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScreenshotDir = t.TempDir()
	c := New(WithConfig(cfg))

	path, err := c.SaveArtifact("L4_short_password_input.png", []byte("png"))
	require.NoError(t, err)
	require.Equal(t, []string{path}, c.SavedArtifacts())

	_, err = c.SaveArtifact("L4_short_password_input.png", []byte("png"))
	require.ErrorIs(t, err, ErrDuplicateArtifact)
	require.Len(t, c.SavedArtifacts(), 1)
}
