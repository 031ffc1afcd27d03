package steps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/denizgursoy/quizcheck/pkg/browser"
	"github.com/denizgursoy/quizcheck/pkg/executor"
	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

var fixedNow = time.Unix(1700000000, 0)

type fixture struct {
	page *browser.MockPage
	ctx  *quizcheck.Context
	cfg  *quizcheck.Config
	exec *executor.StepExecutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	page := browser.NewMockPage(ctrl)

	cfg := quizcheck.DefaultConfig()
	cfg.ScreenshotDir = t.TempDir()
	cfg.SettleInterval = 300 * time.Millisecond
	cfg.ElementTimeout = time.Second
	cfg.Now = func() time.Time { return fixedNow }

	exec := executor.NewStepExecutor()
	for _, d := range Definitions() {
		require.NoError(t, exec.RegisterStep(d.Pattern, d.Func))
	}

	return &fixture{
		page: page,
		cfg:  cfg,
		exec: exec,
		ctx: quizcheck.New(
			quizcheck.WithContext(t.Context()),
			quizcheck.WithPage(page),
			quizcheck.WithConfig(cfg),
		),
	}
}

func (f *fixture) run(text string, rows ...[]string) error {
	var table *quizcheck.Table
	if len(rows) > 0 {
		t := quizcheck.NewTable(rows)
		table = &t
	}
	_, err := f.exec.Execute(f.ctx, text, table)
	return err
}

func TestDefinitions(t *testing.T) {
	exec := executor.NewStepExecutor()
	for _, d := range Definitions() {
		require.NoError(t, exec.RegisterStep(d.Pattern, d.Func), d.Pattern)
	}
	require.Len(t, exec.Patterns(), 13)
}

func TestOpenPage(t *testing.T) {
	f := newFixture(t)
	f.page.EXPECT().Navigate(gomock.Any(), "http://localhost/quiz/login.php").Return(nil)
	require.NoError(t, f.run(`I open the "login.php" page`))

	f.page.EXPECT().Navigate(gomock.Any(), "http://localhost/quiz/register.php").Return(errors.New("net::ERR_CONNECTION_REFUSED"))
	err := f.run(`I open the "register.php" page`)
	require.ErrorContains(t, err, "could not open http://localhost/quiz/register.php")
}

func TestFillForm(t *testing.T) {
	t.Run("fills fields in row order", func(t *testing.T) {
		f := newFixture(t)
		gomock.InOrder(
			f.page.EXPECT().Fill(gomock.Any(), browser.Name("username"), "ra", time.Second).Return(nil),
			f.page.EXPECT().Fill(gomock.Any(), browser.Name("email"), "ra@email.com", time.Second).Return(nil),
			f.page.EXPECT().Fill(gomock.Any(), browser.Name("password"), "123456", time.Second).Return(nil),
			f.page.EXPECT().Fill(gomock.Any(), browser.Name("repassword"), "123456", time.Second).Return(nil),
		)
		require.NoError(t, f.run("I fill in the form:",
			[]string{"username", "ra"},
			[]string{"email", "ra@email.com"},
			[]string{"password", "123456"},
			[]string{"repassword", "123456"},
		))
	})

	t.Run("keeps injection payloads literal", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().Fill(gomock.Any(), browser.Name("username"), "' OR '1'='1", time.Second).Return(nil)
		require.NoError(t, f.run(`I fill in "username" with "' OR '1'='1"`))
	})

	t.Run("stops at the first missing field", func(t *testing.T) {
		f := newFixture(t)
		notFound := &browser.NotFoundError{Selector: browser.Name("username"), Timeout: time.Second}
		f.page.EXPECT().Fill(gomock.Any(), browser.Name("username"), "ra", time.Second).Return(notFound)

		err := f.run("I fill in the form:", []string{"username", "ra"}, []string{"password", "123"})
		var nf *browser.NotFoundError
		require.ErrorAs(t, err, &nf)
		require.ErrorContains(t, err, `could not fill "username"`)
	})
}

func TestUniqueUsername(t *testing.T) {
	t.Run("derives the username from the clock", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.run(`a unique username with prefix "user_"`))

		gomock.InOrder(
			f.page.EXPECT().Fill(gomock.Any(), browser.Name("username"), "user_1700000000", time.Second).Return(nil),
			f.page.EXPECT().Fill(gomock.Any(), browser.Name("email"), "user_1700000000@mail.com", time.Second).Return(nil),
		)
		require.NoError(t, f.run("I fill in the form:",
			[]string{"username", "${username}"},
			[]string{"email", "${username}@mail.com"},
		))
	})

	t.Run("differs between runs", func(t *testing.T) {
		first := newFixture(t)
		second := newFixture(t)
		second.cfg.Now = func() time.Time { return fixedNow.Add(time.Second) }

		require.NoError(t, first.run(`a unique username with prefix "user_"`))
		require.NoError(t, second.run(`a unique username with prefix "user_"`))

		a, _ := first.ctx.Data().String("username")
		b, _ := second.ctx.Data().String("username")
		require.NotEqual(t, a, b)
	})

	t.Run("undefined variable fails the step", func(t *testing.T) {
		f := newFixture(t)
		err := f.run(`I fill in "username" with "${username}"`)
		require.ErrorContains(t, err, "undefined variable(s) username")
	})
}

func TestTakeScreenshot(t *testing.T) {
	f := newFixture(t)
	f.page.EXPECT().Screenshot(gomock.Any()).Return([]byte("\x89PNG"), nil).Times(2)

	require.NoError(t, f.run(`I take the "L1_login_empty_page.png" screenshot`))
	data, err := os.ReadFile(filepath.Join(f.cfg.ScreenshotDir, "L1_login_empty_page.png"))
	require.NoError(t, err)
	require.Equal(t, "\x89PNG", string(data))

	err = f.run(`I take the "L1_login_empty_page.png" screenshot`)
	require.ErrorIs(t, err, quizcheck.ErrDuplicateArtifact)

	require.NoError(t, f.run(`the "L1_login_empty_page.png" screenshot should not be empty`))
}

func TestScreenshotNotEmpty(t *testing.T) {
	f := newFixture(t)
	err := f.run(`the "L2_only_username_result.png" screenshot should not be empty`)
	require.ErrorContains(t, err, "not taken in this run")

	f.page.EXPECT().Screenshot(gomock.Any()).Return([]byte{}, nil)
	require.NoError(t, f.run(`I take the "L2_only_username_result.png" screenshot`))

	err = f.run(`the "L2_only_username_result.png" screenshot should not be empty`)
	require.ErrorContains(t, err, "is empty")
}

func TestSubmitAndSettle(t *testing.T) {
	t.Run("waits for the submitted document to be replaced", func(t *testing.T) {
		f := newFixture(t)
		var token string
		gomock.InOrder(
			f.page.EXPECT().MarkDocument(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, tok string) error {
				token = tok
				return nil
			}),
			f.page.EXPECT().Click(gomock.Any(), browser.Name("submit"), time.Second).Return(nil),
		)
		require.NoError(t, f.run("I submit the form"))
		require.NotEmpty(t, token)

		f.page.EXPECT().DocumentMarked(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, tok string) (bool, error) {
			require.Equal(t, token, tok)
			return false, nil
		})
		f.page.EXPECT().ReadyState(gomock.Any()).Return("complete", nil)

		started := time.Now()
		require.NoError(t, f.run("I wait for the page to settle"))
		require.Less(t, time.Since(started), f.cfg.SettleInterval)
	})

	t.Run("gives up after the settle interval without failing", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().MarkDocument(gomock.Any(), gomock.Any()).Return(nil)
		f.page.EXPECT().Click(gomock.Any(), browser.Name("submit"), time.Second).Return(nil)
		f.page.EXPECT().DocumentMarked(gomock.Any(), gomock.Any()).Return(true, nil).MinTimes(1)
		require.NoError(t, f.run("I submit the form"))

		started := time.Now()
		require.NoError(t, f.run("I wait for the page to settle"))
		elapsed := time.Since(started)
		require.GreaterOrEqual(t, elapsed, f.cfg.SettleInterval)
		require.Less(t, elapsed, f.cfg.SettleInterval+time.Second)
	})

	t.Run("fixed mode sleeps the interval", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.SettleMode = browser.SettleFixed
		f.page.EXPECT().Click(gomock.Any(), browser.Name("submit"), time.Second).Return(nil)
		require.NoError(t, f.run("I submit the form"))

		started := time.Now()
		require.NoError(t, f.run("I wait for the page to settle"))
		require.GreaterOrEqual(t, time.Since(started), f.cfg.SettleInterval)
	})

	t.Run("missing submit control fails", func(t *testing.T) {
		f := newFixture(t)
		notFound := &browser.NotFoundError{Selector: browser.Name("submit"), Timeout: time.Second}
		f.page.EXPECT().MarkDocument(gomock.Any(), gomock.Any()).Return(nil)
		f.page.EXPECT().Click(gomock.Any(), browser.Name("submit"), time.Second).Return(notFound)

		err := f.run("I submit the form")
		require.ErrorIs(t, err, notFound)
	})

	t.Run("settle without a click waits for the load", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().ReadyState(gomock.Any()).Return("complete", nil)
		require.NoError(t, f.run("I wait for the page to settle"))
	})
}

func TestClick(t *testing.T) {
	tests := []struct {
		target string
		want   browser.Selector
	}{
		{"submit", browser.Name("submit")},
		{"css=#login button", browser.Selector{Kind: browser.ByCSS, Value: "#login button"}},
		{"id=register", browser.Selector{Kind: browser.ByID, Value: "register"}},
		{"xpath=//input[@type='submit']", browser.Selector{Kind: browser.ByXPath, Value: "//input[@type='submit']"}},
		{"a=b", browser.Name("a=b")},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			require.Equal(t, tt.want, parseSelector(tt.target))
		})
	}

	f := newFixture(t)
	f.page.EXPECT().MarkDocument(gomock.Any(), gomock.Any()).Return(nil)
	f.page.EXPECT().Click(gomock.Any(), browser.Selector{Kind: browser.ByID, Value: "register"}, time.Second).Return(nil)
	require.NoError(t, f.run(`I click "id=register"`))
}

func TestPageRendered(t *testing.T) {
	t.Run("waits for the load to finish", func(t *testing.T) {
		f := newFixture(t)
		gomock.InOrder(
			f.page.EXPECT().ReadyState(gomock.Any()).Return("", errors.New("execution context was destroyed")),
			f.page.EXPECT().ReadyState(gomock.Any()).Return("interactive", nil),
			f.page.EXPECT().ReadyState(gomock.Any()).Return("complete", nil),
		)
		require.NoError(t, f.run("the page should be rendered"))
	})

	t.Run("fails after the element timeout", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.ElementTimeout = 250 * time.Millisecond
		f.page.EXPECT().ReadyState(gomock.Any()).Return("loading", nil).MinTimes(1)

		err := f.run("the page should be rendered")
		require.ErrorIs(t, err, browser.ErrPollTimeout)
		require.ErrorContains(t, err, `readyState "loading"`)
	})
}

func TestLocationChecks(t *testing.T) {
	t.Run("still on page", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().Location(gomock.Any()).Return("http://localhost/quiz/login.php?error=1", nil)
		require.NoError(t, f.run(`I should still be on the "login.php" page`))
	})

	t.Run("redirect fails the negative check", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().Location(gomock.Any()).Return("http://localhost/quiz/index.php", nil)

		err := f.run(`I should still be on the "login.php" page`)
		var assertion *quizcheck.AssertionError
		require.ErrorAs(t, err, &assertion)
		require.Contains(t, assertion.Message, "now at http://localhost/quiz/index.php")
	})

	t.Run("not on page", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().Location(gomock.Any()).Return("http://localhost/quiz/index.php", nil)
		require.NoError(t, f.run(`I should not be on the "register.php" page`))

		f.page.EXPECT().Location(gomock.Any()).Return("http://localhost/quiz/register.php", nil)
		require.Error(t, f.run(`I should not be on the "register.php" page`))
	})

	t.Run("location error", func(t *testing.T) {
		f := newFixture(t)
		f.page.EXPECT().Location(gomock.Any()).Return("", browser.ErrSessionClosed)
		require.ErrorIs(t, f.run(`I should still be on the "login.php" page`), browser.ErrSessionClosed)
	})
}

func TestPageContains(t *testing.T) {
	f := newFixture(t)
	f.page.EXPECT().Text(gomock.Any()).Return("Username sudah terdaftar", nil).Times(2)

	require.NoError(t, f.run(`the page should contain "sudah terdaftar"`))
	require.Error(t, f.run(`the page should contain "Selamat datang"`))
}
