// internal/omsa/selectors.go
package omsa

import "fmt"

// Frame names of the OMSA console. Before login the root frameset holds
// managedws (the login form); afterwards it holds gnv (global navigation)
// and body, which in turn holds ct (the tree) and da (the data area).
const (
	FrameLogin      = "managedws"
	FrameBody       = "body"
	FrameNavigation = "gnv"
	FrameTree       = "ct"
	FrameDataArea   = "da"
)

// Selectors. Ids containing dots use attribute selectors to avoid escaping.
const (
	SelectorFrameset          = "frameset"
	SelectorLoginUser         = `form input[name="user"]`
	SelectorTargetMachine     = `input[name="targetmachine"]`
	SelectorUser              = `input[name="user"]`
	SelectorPassword          = `input[name="password"]`
	SelectorIgnoreCertificate = `input[name="ignorecertificate"]`
	SelectorLoginSubmit       = "#login_submit"
	SelectorStorageLink       = `a[id="link_Storage"]`
	SelectorControllerLink    = `a[id="link_Controller.0"]`
	SelectorVirtualDrivesLink = `a[id="link_VD.0"]`
	SelectorTaskSelector      = "select.data-area"
)

// Task menu labels and page-global entry points.
const (
	OptionCheckConsistency       = "Check Consistency"
	OptionCancelCheckConsistency = "Cancel Check Consistency"

	FunctionExecute = "onExecute"
	FunctionLogout  = "logout"
)

func idSelector(tag, id string) string {
	return fmt.Sprintf(`%s[id="%s"]`, tag, id)
}

func nameSelector(displayID int) string  { return idSelector("a", fmt.Sprintf("Name%d", displayID)) }
func stateSelector(displayID int) string { return idSelector("td", fmt.Sprintf("State%d", displayID)) }
func layoutSelector(displayID int) string {
	return idSelector("td", fmt.Sprintf("Layout%d", displayID))
}
func sizeSelector(displayID int) string { return idSelector("td", fmt.Sprintf("Size%d", displayID)) }

// progressSelector addresses the progress column (8) of the drive's row.
func progressSelector(displayID int) string {
	return idSelector("", fmt.Sprintf("table1_row_%d.8", displayID))
}

// taskSelectorFor addresses a drive's task selector by id, or by name when
// the console rendered it without one.
func taskSelectorFor(id, name string) string {
	if id != "" {
		return idSelector("select", id)
	}
	return fmt.Sprintf(`select[name="%s"]`, name)
}
