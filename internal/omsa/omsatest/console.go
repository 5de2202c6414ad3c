// internal/omsa/omsatest/console.go

// Package omsatest provides an in-memory OMSA console that implements
// omsa.Driver. It models the console's frame tree, the login form, the
// storage tree, the virtual drive data area and the state-dependent task
// menus, so workflow code can be exercised without a browser.
package omsatest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

// Drive describes one virtual drive row of the fake console.
type Drive struct {
	Name   string
	State  string
	Layout string
	Size   string
	// Options are the task menu labels, in menu order.
	Options []string
	// Progress is the content of the row's progress cell.
	Progress string
}

// Invocation records a call to a page-global function.
type Invocation struct {
	Scope    string
	Function string
	Args     []interface{}
}

type stage int

const (
	stageBlank stage = iota
	stageLogin
	stageConsole
)

// Console is a stateful fake of the OMSA console. It is safe for concurrent use.
type Console struct {
	mu sync.Mutex

	drives      []*Drive
	stage       stage
	treeDepth   int
	vdTab       bool
	rejectLogin bool
	hideCells   bool
	url         string
	fields      map[string]string
	selected    map[string]string
	invocations []Invocation
	logins      int
}

var _ omsa.Driver = (*Console)(nil)

// Option configures a Console.
type Option func(*Console)

// RejectLogin keeps the login page in place after the form is submitted, so
// the post-login frameset never appears.
func RejectLogin() Option { return func(c *Console) { c.rejectLogin = true } }

// HideDriveCells renders task selectors without their name/state/layout/size cells.
func HideDriveCells() Option { return func(c *Console) { c.hideCells = true } }

// New creates a console exposing drives on controller 0.
func New(drives []Drive, opts ...Option) *Console {
	c := &Console{
		fields:   make(map[string]string),
		selected: make(map[string]string),
	}
	for i := range drives {
		d := drives[i]
		d.Options = append([]string(nil), d.Options...)
		c.drives = append(c.drives, &d)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScenarioA is the two-drive console used by the end-to-end examples: one
// idle RAID-10 drive and one RAID-6 drive with a check at 19%.
func ScenarioA() *Console {
	return New([]Drive{
		{
			Name: "Virtual Disk 0", State: "Ready", Layout: "RAID-10", Size: "1,862.00GB",
			Options: []string{"Blink", "Unblink", OptionCheckConsistency},
		},
		{
			Name: "Virtual Disk 1", State: "Resynching", Layout: "RAID-6", Size: "5,026.50GB",
			Options: []string{"Blink", "Unblink", OptionCancelCheckConsistency}, Progress: "19% complete",
		},
	})
}

// Task menu labels, repeated here so tests read naturally.
const (
	OptionCheckConsistency       = omsa.OptionCheckConsistency
	OptionCancelCheckConsistency = omsa.OptionCancelCheckConsistency
)

// URL returns the last navigated URL.
func (c *Console) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Fields returns the submitted login form values by input name.
func (c *Console) Fields() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	return out
}

// Invocations returns every page-global function call so far.
func (c *Console) Invocations() []Invocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Invocation(nil), c.invocations...)
}

// Drive returns a copy of the i-th drive's current state.
func (c *Console) Drive(i int) Drive {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := *c.drives[i]
	d.Options = append([]string(nil), d.Options...)
	return d
}

// LoggedIn reports whether the console currently shows the post-login frameset.
func (c *Console) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage == stageConsole
}

// Logins counts successful form submissions.
func (c *Console) Logins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logins
}

// -- omsa.Driver --

func (c *Console) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
	c.stage = stageLogin
	c.treeDepth = 0
	c.vdTab = false
	return nil
}

func (c *Console) FramePresent(ctx context.Context, scope omsa.Scope, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.scopeExists(scope) {
		return false, nil
	}
	for _, f := range c.frames(scope.String()) {
		if f == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Console) ElementPresent(ctx context.Context, scope omsa.Scope, selector string) (bool, error) {
	els, err := c.Query(ctx, scope, selector)
	if err != nil {
		return false, err
	}
	return len(els) > 0, nil
}

func (c *Console) Query(ctx context.Context, scope omsa.Scope, selector string) ([]omsa.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	if !c.scopeExists(scope) {
		return nil, fmt.Errorf("scope %s is not loaded", scope)
	}
	var out []omsa.Element
	for _, el := range c.elements(scope.String()) {
		if m.matches(el) {
			out = append(out, el)
		}
	}
	return out, nil
}

func (c *Console) Click(ctx context.Context, scope omsa.Scope, selector string) error {
	target, err := c.first(ctx, scope, selector)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch key, id := scope.String(), target.Attr("id"); {
	case key == "/managedws" && id == "login_submit":
		if c.rejectLogin {
			return nil
		}
		c.stage = stageConsole
		c.logins++
	case key == "/body/ct" && id == "link_Storage":
		c.treeDepth = max(c.treeDepth, 1)
	case key == "/body/ct" && id == "link_Controller.0":
		c.treeDepth = max(c.treeDepth, 2)
	case key == "/body/ct" && id == "link_VD.0":
		c.treeDepth = 3
		c.vdTab = false
	case key == "/body/da" && id == "link_VD.0":
		c.vdTab = true
	}
	return nil
}

func (c *Console) SetValue(ctx context.Context, scope omsa.Scope, selector, value string) error {
	target, err := c.first(ctx, scope, selector)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch target.Tag {
	case "input":
		c.fields[target.Attr("name")] = value
	case "select":
		for _, o := range target.Options {
			if o.Value == value {
				c.selected[target.Attr("id")] = value
				return nil
			}
		}
		return fmt.Errorf("select %s has no option with value %q", target.Attr("id"), value)
	default:
		return fmt.Errorf("element <%s> has no value", target.Tag)
	}
	return nil
}

func (c *Console) Invoke(ctx context.Context, scope omsa.Scope, function string, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.scopeExists(scope) {
		return fmt.Errorf("scope %s is not loaded", scope)
	}
	key := scope.String()

	switch {
	case key == "/gnv" && function == omsa.FunctionLogout:
		c.stage = stageLogin
		c.treeDepth = 0
		c.vdTab = false
	case key == "/body/da" && function == omsa.FunctionExecute && c.vdTab:
		if err := c.execute(args); err != nil {
			return err
		}
	default:
		return fmt.Errorf("ReferenceError: %s is not defined in %s", function, key)
	}
	c.invocations = append(c.invocations, Invocation{Scope: key, Function: function, Args: args})
	return nil
}

// execute applies onExecute(name, ".controller.index", "true", "", "0") to the
// drive whose selector currently has "Check Consistency" selected. The data
// area reloads afterwards, which clears every selection.
func (c *Console) execute(args []interface{}) error {
	if len(args) != 5 {
		return fmt.Errorf("onExecute expects 5 arguments, got %d", len(args))
	}
	oid, _ := args[1].(string)
	i, err := driveIndex(oid)
	if err != nil || i >= len(c.drives) {
		return fmt.Errorf("onExecute: unknown object %q", oid)
	}
	d := c.drives[i]
	value, ok := c.selected[selectorID(i)]
	if !ok {
		return fmt.Errorf("onExecute: no task selected for %q", oid)
	}
	label := optionLabel(d.Options, value)
	if label == OptionCheckConsistency {
		for j, o := range d.Options {
			if o == OptionCheckConsistency {
				d.Options[j] = OptionCancelCheckConsistency
			}
		}
		d.State = "Resynching"
		d.Progress = "0% complete"
	}
	c.selected = make(map[string]string)
	return nil
}

// -- fake DOM --

func (c *Console) first(ctx context.Context, scope omsa.Scope, selector string) (omsa.Element, error) {
	els, err := c.Query(ctx, scope, selector)
	if err != nil {
		return omsa.Element{}, err
	}
	if len(els) == 0 {
		return omsa.Element{}, fmt.Errorf("no element matches %q in %s", selector, scope)
	}
	return els[0], nil
}

func (c *Console) scopeExists(scope omsa.Scope) bool {
	if c.stage == stageBlank {
		return false
	}
	for i := range scope {
		parent := scope[:i].String()
		found := false
		for _, f := range c.frames(parent) {
			if f == scope[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *Console) frames(key string) []string {
	switch c.stage {
	case stageLogin:
		if key == "/" {
			return []string{omsa.FrameLogin}
		}
	case stageConsole:
		switch key {
		case "/":
			return []string{omsa.FrameNavigation, omsa.FrameBody}
		case "/body":
			return []string{omsa.FrameTree, omsa.FrameDataArea}
		}
	}
	return nil
}

func (c *Console) elements(key string) []omsa.Element {
	switch {
	case c.stage == stageLogin && key == "/":
		return []omsa.Element{el("frameset", "", "")}
	case c.stage == stageLogin && key == "/managedws":
		return []omsa.Element{
			input("targetmachine"), input("user"), input("password"), input("ignorecertificate"),
			el("button", "login_submit", ""),
		}
	case c.stage == stageConsole && (key == "/" || key == "/body"):
		return []omsa.Element{el("frameset", "", "")}
	case c.stage == stageConsole && key == "/gnv":
		return []omsa.Element{el("a", "logout", "Log Out")}
	case c.stage == stageConsole && key == "/body/ct":
		links := []omsa.Element{el("a", "link_Storage", "Storage")}
		if c.treeDepth >= 1 {
			links = append(links, el("a", "link_Controller.0", "PERC H710 Mini (Embedded)"))
		}
		if c.treeDepth >= 2 {
			links = append(links, el("a", "link_VD.0", "Virtual Disks"))
		}
		return links
	case c.stage == stageConsole && key == "/body/da":
		return c.dataArea()
	}
	return nil
}

func (c *Console) dataArea() []omsa.Element {
	if c.treeDepth < 3 {
		return nil
	}
	out := []omsa.Element{el("a", "link_VD.0", "Properties")}
	if !c.vdTab {
		return out
	}
	for i, d := range c.drives {
		sel := el("select", selectorID(i), "")
		sel.Attributes["name"] = fmt.Sprintf("vdtasks.0.%d", i)
		sel.Attributes["class"] = "data-area"
		for j, label := range d.Options {
			sel.Options = append(sel.Options, omsa.Option{Value: strconv.Itoa(j), Text: label})
		}
		out = append(out, sel)
		if c.hideCells {
			continue
		}
		n := i + 1
		out = append(out,
			el("a", fmt.Sprintf("Name%d", n), d.Name),
			el("td", fmt.Sprintf("State%d", n), d.State),
			el("td", fmt.Sprintf("Layout%d", n), d.Layout),
			el("td", fmt.Sprintf("Size%d", n), d.Size),
			el("td", fmt.Sprintf("table1_row_%d.8", n), d.Progress),
		)
	}
	return out
}

func el(tag, id, content string) omsa.Element {
	attrs := map[string]string{}
	if id != "" {
		attrs["id"] = id
	}
	return omsa.Element{Tag: tag, Attributes: attrs, Text: content, HTML: content}
}

func input(name string) omsa.Element {
	e := el("input", "", "")
	e.Attributes["name"] = name
	return e
}

func selectorID(i int) string { return fmt.Sprintf("vdTasks%d", i) }

func driveIndex(dotted string) (int, error) {
	parts := strings.Split(strings.TrimPrefix(dotted, "."), ".")
	return strconv.Atoi(parts[len(parts)-1])
}

func optionLabel(labels []string, value string) string {
	j, err := strconv.Atoi(value)
	if err != nil || j < 0 || j >= len(labels) {
		return ""
	}
	return labels[j]
}

// -- selector matching --

// compoundRe understands the selector shapes the workflow uses: a tag, an
// #id, a .class and one [attr="value"] test, each optional. Only the last
// compound of a descendant selector is matched.
var compoundRe = regexp.MustCompile(`^([a-zA-Z]*)(?:#([\w-]+))?(?:\.([\w-]+))?(?:\[(\w+)=["']?([^"'\]]*)["']?\])?$`)

type matcher struct {
	tag, id, class, attr, value string
}

func parseSelector(selector string) (matcher, error) {
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return matcher{}, fmt.Errorf("empty selector")
	}
	m := compoundRe.FindStringSubmatch(fields[len(fields)-1])
	if m == nil {
		return matcher{}, fmt.Errorf("unsupported selector %q", selector)
	}
	return matcher{tag: m[1], id: m[2], class: m[3], attr: m[4], value: m[5]}, nil
}

func (m matcher) matches(e omsa.Element) bool {
	if m.tag != "" && !strings.EqualFold(m.tag, e.Tag) {
		return false
	}
	if m.id != "" && e.Attr("id") != m.id {
		return false
	}
	if m.class != "" && !containsField(e.Attr("class"), m.class) {
		return false
	}
	if m.attr != "" && e.Attr(m.attr) != m.value {
		return false
	}
	return true
}

func containsField(list, want string) bool {
	for _, f := range strings.Fields(list) {
		if f == want {
			return true
		}
	}
	return false
}
