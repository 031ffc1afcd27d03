// Package steps holds the step vocabulary of the login and registration
// feature files.
package steps

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/drone/envsubst"

	"github.com/denizgursoy/quizcheck/pkg/browser"
	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

const (
	settlerKey  = "quizcheck.settler"
	usernameKey = "username"
	submitName  = "submit"
	stateLoaded = "complete"
)

// Definition binds a step pattern to its handler.
type Definition struct {
	Pattern string
	Func    any
}

// Definitions returns every step in registration order.
func Definitions() []Definition {
	return []Definition{
		{`^I open the "([^"]*)" page$`, OpenPage},
		{`^I fill in the form:$`, FillForm},
		{`^I fill in "([^"]*)" with "([^"]*)"$`, FillField},
		{`^a unique username with prefix "([^"]*)"$`, UniqueUsername},
		{`^I take the "([^"]*)" screenshot$`, TakeScreenshot},
		{`^I submit the form$`, SubmitForm},
		{`^I click "([^"]*)"$`, Click},
		{`^I wait for the page to settle$`, WaitForSettle},
		{`^the page should be rendered$`, PageRendered},
		{`^I should still be on the "([^"]*)" page$`, StillOnPage},
		{`^I should not be on the "([^"]*)" page$`, NotOnPage},
		{`^the page should contain "([^"]*)"$`, PageContains},
		{`^the "([^"]*)" screenshot should not be empty$`, ScreenshotNotEmpty},
	}
}

func OpenPage(c *quizcheck.Context, path string) error {
	target := c.Config().URL(path)
	if err := c.Page().Navigate(c.Context(), target); err != nil {
		return fmt.Errorf("could not open %s: %w", target, err)
	}
	c.Logger().Info("page opened", "url", target)
	return nil
}

// FillForm types each value of a two column table into the field with the
// same name, in row order.
func FillForm(c *quizcheck.Context, table quizcheck.Table) error {
	for _, field := range table.Fields() {
		if err := FillField(c, field.Name, field.Value); err != nil {
			return err
		}
	}
	return nil
}

// FillField types value into the field named field after expanding
// ${variable} references from scenario data.
func FillField(c *quizcheck.Context, field, value string) error {
	expanded, err := expand(c, value)
	if err != nil {
		return err
	}
	if err := c.Page().Fill(c.Context(), browser.Name(field), expanded, c.Config().ElementTimeout); err != nil {
		return fmt.Errorf("could not fill %q: %w", field, err)
	}
	c.Logger().Debug("field filled", "field", field, "length", len(expanded))
	return nil
}

// UniqueUsername stores prefix followed by the current unix time in
// seconds as the username variable.
func UniqueUsername(c *quizcheck.Context, prefix string) {
	username := prefix + strconv.FormatInt(c.Config().Now().Unix(), 10)
	c.Data().Set(usernameKey, username)
	c.Logger().Info("username derived", "username", username)
}

func TakeScreenshot(c *quizcheck.Context, name string) error {
	data, err := c.Page().Screenshot(c.Context())
	if err != nil {
		return fmt.Errorf("could not capture %s: %w", name, err)
	}
	path, err := c.SaveArtifact(name, data)
	if err != nil {
		return err
	}
	c.Logger().Info("screenshot saved", "path", path, "bytes", len(data))
	return nil
}

// SubmitForm clicks the control named submit.
func SubmitForm(c *quizcheck.Context) error {
	return Click(c, submitName)
}

// Click clicks the element matched by target. A "kind=" prefix (name, id,
// css, xpath) selects the match kind; plain values match by name. The
// settler used by WaitForSettle is armed before the click.
func Click(c *quizcheck.Context, target string) error {
	sel := parseSelector(target)
	page := c.Page()
	cfg := c.Config()
	settler := browser.NewSettler(page, cfg.SettleMode, cfg.SettleInterval)
	if err := settler.Arm(c.Context()); err != nil {
		return err
	}
	if err := page.Click(c.Context(), sel, cfg.ElementTimeout); err != nil {
		return err
	}
	c.Data().Set(settlerKey, settler)
	c.Logger().Debug("clicked", "selector", sel.String())
	return nil
}

// WaitForSettle gives the page at most the settle interval to render the
// outcome of the last click.
func WaitForSettle(c *quizcheck.Context) error {
	cfg := c.Config()
	v, _ := c.Data().Get(settlerKey)
	settler, ok := v.(*browser.Settler)
	if !ok {
		settler = browser.NewSettler(c.Page(), cfg.SettleMode, cfg.SettleInterval)
	}
	if err := settler.Wait(c.Context()); err != nil {
		return fmt.Errorf("settle interrupted: %w", err)
	}
	return nil
}

// PageRendered checks that the document finished loading, waiting up to
// the element timeout for a late navigation.
func PageRendered(c *quizcheck.Context) error {
	page := c.Page()
	var last string
	err := browser.Poll(c.Context(), browser.DefaultPollInterval, c.Config().ElementTimeout, func(ctx context.Context) (bool, error) {
		state, err := page.ReadyState(ctx)
		if err != nil {
			// the document may be between navigations
			return false, nil
		}
		last = state
		return state == stateLoaded, nil
	})
	if err != nil {
		return fmt.Errorf("page not rendered (readyState %q): %w", last, err)
	}
	return nil
}

func StillOnPage(c *quizcheck.Context, path string) error {
	loc, err := onPage(c, path)
	if err != nil {
		return err
	}
	c.Assert().True(loc.matched, "expected to stay on %s, now at %s", path, loc.url)
	return nil
}

func NotOnPage(c *quizcheck.Context, path string) error {
	loc, err := onPage(c, path)
	if err != nil {
		return err
	}
	c.Assert().False(loc.matched, "expected to leave %s", path)
	return nil
}

func PageContains(c *quizcheck.Context, text string) error {
	body, err := c.Page().Text(c.Context())
	if err != nil {
		return fmt.Errorf("could not read page text: %w", err)
	}
	c.Assert().Contains(body, text)
	return nil
}

func ScreenshotNotEmpty(c *quizcheck.Context, name string) error {
	size, err := c.Artifacts().Size(name)
	if err != nil {
		return err
	}
	c.Assert().True(size > 0, "screenshot %s is empty", name)
	return nil
}

type location struct {
	url     string
	matched bool
}

func onPage(c *quizcheck.Context, path string) (location, error) {
	current, err := c.Page().Location(c.Context())
	if err != nil {
		return location{}, fmt.Errorf("could not read current URL: %w", err)
	}
	u, err := url.Parse(current)
	if err != nil {
		return location{}, fmt.Errorf("invalid current URL %q: %w", current, err)
	}
	want := "/" + strings.TrimLeft(path, "/")
	return location{url: current, matched: strings.HasSuffix(u.Path, want)}, nil
}

func parseSelector(target string) browser.Selector {
	kind, value, found := strings.Cut(target, "=")
	if !found || kind == "" {
		return browser.Name(target)
	}
	parsed, err := browser.ParseSelectorKind(kind)
	if err != nil {
		// "=" is part of a plain name
		return browser.Name(target)
	}
	return browser.Selector{Kind: parsed, Value: value}
}

// expand replaces ${name} with scenario data. Unknown names are an error.
func expand(c *quizcheck.Context, value string) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}
	var missing []string
	out, err := envsubst.Eval(value, func(name string) string {
		v, ok := c.Data().String(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if err != nil {
		return "", fmt.Errorf("could not expand %q: %w", value, err)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("undefined variable(s) %s in %q", strings.Join(missing, ", "), value)
	}
	return out, nil
}
