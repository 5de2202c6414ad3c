// internal/browser/scripts.go
package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/raidcc/internal/omsa"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// frameResolver walks a path of frame names from the top window. It returns
// null when a frame is missing, cross-origin or still on about:blank.
const frameResolver = `function resolveFrame(path) {
	var w = window;
	for (var i = 0; i < path.length; i++) {
		var next = null;
		for (var j = 0; j < w.frames.length; j++) {
			try {
				if (w.frames[j].name === path[i]) { next = w.frames[j]; break; }
			} catch (e) {}
		}
		if (!next) { return null; }
		try {
			var d = next.document;
			if (!d || d.location.href === 'about:blank' || d.readyState === 'loading') { return null; }
		} catch (e) { return null; }
		w = next;
	}
	return w;
}`

// scopedScript wraps body in an IIFE where w is the scope's window and d its
// document. body must return a value; an unresolved scope returns missing.
func scopedScript(scope omsa.Scope, missing, body string) string {
	return fmt.Sprintf(`(function() {
	%s
	var w = resolveFrame(%s);
	if (!w) { return %s; }
	var d = w.document;
	%s
})()`, frameResolver, jsonEncode([]string(scope)), missing, body)
}

// Scripts that act on an element return "" on success and an error message
// otherwise.
const errScopeNotLoaded = `"scope is not loaded"`

func framePresentScript(scope omsa.Scope, name string) string {
	return scopedScript(scope, "false", fmt.Sprintf(`return resolveFrame(%s) !== null;`,
		jsonEncode(append(append([]string{}, scope...), name))))
}

func elementPresentScript(scope omsa.Scope, selector string) string {
	return scopedScript(scope, "false", fmt.Sprintf(`return d.querySelector(%s) !== null;`, jsonEncode(selector)))
}

func clickScript(scope omsa.Scope, selector string) string {
	return scopedScript(scope, errScopeNotLoaded, fmt.Sprintf(`
	var el = d.querySelector(%[1]s);
	if (!el) { return "no element matches " + %[1]s; }
	el.click();
	return "";`, jsonEncode(selector)))
}

func setValueScript(scope omsa.Scope, selector, value string) string {
	return scopedScript(scope, errScopeNotLoaded, fmt.Sprintf(`
	var el = d.querySelector(%[1]s);
	if (!el) { return "no element matches " + %[1]s; }
	var v = %[2]s;
	if (el.type === 'checkbox' || el.type === 'radio') {
		el.checked = v !== '' && v !== '0' && v !== 'false';
	} else {
		el.value = v;
	}
	return "";`, jsonEncode(selector), jsonEncode(value)))
}

// queryResult is what queryScript evaluates to.
type queryResult struct {
	Loaded   bool           `json:"loaded"`
	Elements []omsa.Element `json:"elements"`
}

func queryScript(scope omsa.Scope, selector string) string {
	return scopedScript(scope, "{loaded: false, elements: []}", fmt.Sprintf(`
	var out = [];
	d.querySelectorAll(%s).forEach(function(el) {
		var attrs = {};
		for (var i = 0; i < el.attributes.length; i++) {
			attrs[el.attributes[i].name] = el.attributes[i].value;
		}
		var options = [];
		if (el.tagName === 'SELECT') {
			for (var k = 0; k < el.options.length; k++) {
				options.push({value: el.options[k].value, text: el.options[k].text});
			}
		}
		out.push({
			tag: el.tagName.toLowerCase(),
			attributes: attrs,
			text: el.textContent || "",
			html: el.innerHTML || "",
			options: options
		});
	});
	return {loaded: true, elements: out};`, jsonEncode(selector)))
}

func invokeScript(scope omsa.Scope, function string, args []interface{}) string {
	if args == nil {
		args = []interface{}{}
	}
	return scopedScript(scope, errScopeNotLoaded, fmt.Sprintf(`
	var fn = w[%[1]s];
	if (typeof fn !== 'function') { return %[1]s + " is not a function"; }
	try {
		fn.apply(w, %[2]s);
	} catch (e) {
		return String(e);
	}
	return "";`, jsonEncode(function), jsonEncode(args)))
}
