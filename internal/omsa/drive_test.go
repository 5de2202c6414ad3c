// internal/omsa/drive_test.go
package omsa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectPath(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		tests := []struct {
			name      string
			want      ObjectPath
			displayID int
			dotted    string
		}{
			{"vdtasks.0.0", ObjectPath{Controller: "0", Index: 0}, 1, ".0.0"},
			{"vdtasks.0.1", ObjectPath{Controller: "0", Index: 1}, 2, ".0.1"},
			{" vdtasks.0.11 ", ObjectPath{Controller: "0", Index: 11}, 12, ".0.11"},
			{"vdtasks.1.2.3", ObjectPath{Controller: "1.2", Index: 3}, 4, ".1.2.3"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ParseObjectPath(tt.name)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.displayID, got.DisplayID())
				assert.Equal(t, tt.dotted, got.Dotted())
				assert.Equal(t, tt.dotted, got.String())
			})
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, name := range []string{"", "vdtasks", "vdtasks.0", "vdtasks.0.x", "vdtasks.0.-1", "vdtasks..1"} {
			t.Run(name, func(t *testing.T) {
				_, err := ParseObjectPath(name)
				assert.ErrorIs(t, err, ErrMalformedObjectPath)
			})
		}
	})
}

func TestParseDriveState(t *testing.T) {
	assert.Equal(t, StateReady, ParseDriveState("Ready"))
	assert.Equal(t, StateReady, ParseDriveState("  ready "))
	assert.Equal(t, StateResynching, ParseDriveState("Resynching"))
	assert.Equal(t, StateOther, ParseDriveState("Degraded"))
	assert.Equal(t, StateOther, ParseDriveState(""))
	assert.Equal(t, "Other", StateOther.String())
}

func TestVirtualDrive_ControllerID(t *testing.T) {
	d := VirtualDrive{Path: ObjectPath{Controller: "0", Index: 1}}
	assert.Equal(t, "0", d.ControllerID())
	assert.Equal(t, "0.1", d.Path.ObjectID())
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, `a[id="Name2"]`, nameSelector(2))
	assert.Equal(t, `td[id="State2"]`, stateSelector(2))
	assert.Equal(t, `td[id="Layout1"]`, layoutSelector(1))
	assert.Equal(t, `td[id="Size1"]`, sizeSelector(1))
	assert.Equal(t, `[id="table1_row_2.8"]`, progressSelector(2))
	assert.Equal(t, `select[id="vdTasks0"]`, taskSelectorFor("vdTasks0", "vdtasks.0.0"))
	assert.Equal(t, `select[name="vdtasks.0.0"]`, taskSelectorFor("", "vdtasks.0.0"))
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "/", Scope{}.String())
	assert.Equal(t, "/", Scope(nil).String())
	assert.Equal(t, "/body/da", Scope{"body", "da"}.String())
}

func TestOutcome_MarshalText(t *testing.T) {
	for o, want := range map[Outcome]string{
		NoActionAvailable: "NoActionAvailable",
		Started:           "Started",
		AlreadyRunning:    "AlreadyRunning",
		WouldStart:        "WouldStart",
	} {
		b, err := o.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
