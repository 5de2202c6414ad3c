// internal/browser/events.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// listen echoes the page's console output and uncaught exceptions and
// accepts JavaScript dialogs, per configuration. The console reports some
// failures only through alert() and page errors.
func (s *Session) listen() {
	chromedp.ListenTarget(s.ctx, s.handleEvent)
}

func (s *Session) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if s.cfg.EchoConsole {
			s.logger.Info("remote message caught",
				zap.String("type", string(e.Type)), zap.String("text", consoleText(e.Args)))
		}
	case *runtime.EventExceptionThrown:
		if s.cfg.EchoConsole {
			s.logger.Warn("Page Error", zap.String("error", exceptionText(e.ExceptionDetails)))
		}
	case *page.EventJavascriptDialogOpening:
		s.logger.Info("JavaScript dialog opened.",
			zap.String("type", string(e.Type)), zap.String("message", e.Message))
		if s.cfg.AcceptDialogs {
			s.acceptDialog()
		}
	}
}

// acceptDialog answers the open dialog. Listener callbacks run on chromedp's
// event loop and must not issue commands themselves.
func (s *Session) acceptDialog() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.handlers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.handlers.Done()
		if err := chromedp.Run(s.ctx, page.HandleJavaScriptDialog(true)); err != nil && s.ctx.Err() == nil {
			s.logger.Warn("Could not accept dialog.", zap.Error(err))
		}
	}()
}

// consoleText joins console arguments the way DevTools prints them: strings
// unquoted, other JSON values verbatim, objects by description.
func consoleText(args []*runtime.RemoteObject) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(remoteValue(arg))
	}
	return b.String()
}

func remoteValue(arg *runtime.RemoteObject) string {
	if arg == nil {
		return "[nil]"
	}
	if len(arg.Value) > 0 {
		if arg.Type == runtime.TypeString {
			var str string
			if err := json.Unmarshal([]byte(arg.Value), &str); err == nil {
				return str
			}
		}
		return string(arg.Value)
	}
	switch {
	case arg.UnserializableValue != "":
		return string(arg.UnserializableValue)
	case arg.Description != "":
		return arg.Description
	default:
		return fmt.Sprintf("[%s]", arg.Type)
	}
}

func exceptionText(d *runtime.ExceptionDetails) string {
	if d == nil {
		return ""
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}
