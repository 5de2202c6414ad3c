// internal/browser/fakesite_test.go
package browser_test

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeDrive is one virtual drive row served by fakeSite.
type fakeDrive struct {
	name, state, layout, size string
	running                   bool
	progress                  string
}

// fakeSite serves a miniature OMSA console: a login frameset, the post-login
// gnv/body frameset, the storage tree and a virtual drive page whose
// onExecute raises an alert and reloads the data area.
type fakeSite struct {
	mu       sync.Mutex
	drives   []*fakeDrive
	executed []string
	logouts  int
}

func newFakeSite(t *testing.T, drives ...*fakeDrive) (*fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{drives: drives}
	srv := httptest.NewServer(site.routes())
	t.Cleanup(srv.Close)
	return site, srv
}

func (f *fakeSite) Executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

func (f *fakeSite) Logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

func page(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html PUBLIC \"-//W3C//DTD HTML 4.01 Frameset//EN\">\n<html>%s</html>", body)
}

func (f *fakeSite) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/OMSALogin", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<frameset rows="100%"><frame name="managedws" src="/login.html"></frameset>`)
	})
	mux.HandleFunc("/login.html", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<body><form onsubmit="return false">
			<input name="targetmachine" type="text">
			<input name="user" type="text">
			<input name="password" type="password">
			<input name="ignorecertificate" type="checkbox">
			<button id="login_submit" type="button" onclick="top.location.href='/console.html'">Log in</button>
		</form></body>`)
	})
	mux.HandleFunc("/console.html", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<frameset rows="40,*"><frame name="gnv" src="/gnv.html"><frame name="body" src="/body.html"></frameset>`)
	})
	mux.HandleFunc("/gnv.html", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<head><script>
			function logout() { top.location.href = '/logout'; }
		</script></head><body><a href="javascript:logout()">Log Out</a></body>`)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()
		http.Redirect(w, r, "/OMSALogin?manageDWS=false", http.StatusFound)
	})
	mux.HandleFunc("/body.html", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<frameset cols="200,*"><frame name="ct" src="/tree.html"><frame name="da" src="/da.html"></frameset>`)
	})
	mux.HandleFunc("/tree.html", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<body>
			<a id="link_Storage" href="#">Storage</a>
			<a id="link_Controller.0" href="#">PERC H710 Mini</a>
			<a id="link_VD.0" href="/da.html" target="da">Virtual Disks</a>
		</body>`)
	})
	mux.HandleFunc("/da.html", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<body><a id="link_VD.0" href="/vd.html">Properties</a></body>`)
	})
	mux.HandleFunc("/vd.html", f.virtualDrives)
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		oid := r.URL.Query().Get("oid")
		f.mu.Lock()
		f.executed = append(f.executed, r.URL.Query().Get("name")+" "+oid)
		parts := strings.Split(strings.TrimPrefix(oid, "."), ".")
		if i, err := strconv.Atoi(parts[len(parts)-1]); err == nil && i < len(f.drives) {
			f.drives[i].running = true
			f.drives[i].state = "Resynching"
			f.drives[i].progress = "0% complete"
		}
		f.mu.Unlock()
		http.Redirect(w, r, "/vd.html", http.StatusFound)
	})
	return mux
}

func (f *fakeSite) virtualDrives(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<head><script>
		function onExecute(name, oid, confirmFlag, extra, mode) {
			alert('Executing task on ' + name);
			location.href = '/execute?name=' + encodeURIComponent(name) + '&oid=' + encodeURIComponent(oid);
		}
	</script></head><body><a id="link_VD.0" href="/vd.html">Properties</a><table>`)
	for i, d := range f.drives {
		n := i + 1
		cc := "Check Consistency"
		if d.running {
			cc = "Cancel Check Consistency"
		}
		fmt.Fprintf(&b, `<tr>
			<td><a id="Name%[1]d" href="#">%[2]s</a></td>
			<td id="State%[1]d">%[3]s</td>
			<td id="Layout%[1]d">%[4]s</td>
			<td id="Size%[1]d">%[5]s</td>
			<td id="table1_row_%[1]d.8">%[6]s</td>
			<td><select id="vdTasks%[7]d" name="vdtasks.0.%[7]d" class="data-area">
				<option value="0">Blink</option>
				<option value="1">%[8]s</option>
			</select></td>
		</tr>`, n, html.EscapeString(d.name), d.state, d.layout, d.size, d.progress, i, cc)
	}
	b.WriteString(`</table></body>`)
	page(w, b.String())
}
