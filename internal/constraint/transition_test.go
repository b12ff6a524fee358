package constraint

import (
	"testing"

	"github.com/bnema/waylab/internal/proto"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		lifetime   proto.Lifetime
		trigger    Trigger
		wantState  State
		wantAction Action
	}{
		{"inactive activates", Inactive, proto.LifetimePersistent, TriggerActivate, Active, ActionEmitActivated},
		{"inactive ignores focus loss", Inactive, proto.LifetimePersistent, TriggerFocusLost, Inactive, ActionNone},
		{"inactive ignores revoke", Inactive, proto.LifetimeOneshot, TriggerRevoked, Inactive, ActionNone},
		{"persistent deactivates to inactive", Active, proto.LifetimePersistent, TriggerFocusLost, Inactive, ActionEmitDeactivated},
		{"oneshot deactivates to defunct", Active, proto.LifetimeOneshot, TriggerFocusLost, Defunct, ActionEmitDeactivated},
		{"active survives activate", Active, proto.LifetimePersistent, TriggerActivate, Active, ActionNone},
		{"empty region deactivates", Active, proto.LifetimePersistent, TriggerRegionEmptied, Inactive, ActionEmitDeactivated},
		{"revoke deactivates oneshot", Active, proto.LifetimeOneshot, TriggerRevoked, Defunct, ActionEmitDeactivated},
		{"destroy is silent from inactive", Inactive, proto.LifetimePersistent, TriggerDestroyed, Defunct, ActionNone},
		{"destroy is silent from active", Active, proto.LifetimeOneshot, TriggerDestroyed, Defunct, ActionNone},
		{"defunct absorbs activate", Defunct, proto.LifetimePersistent, TriggerActivate, Defunct, ActionNone},
		{"defunct absorbs focus loss", Defunct, proto.LifetimeOneshot, TriggerFocusLost, Defunct, ActionNone},
		{"defunct absorbs destroy", Defunct, proto.LifetimeOneshot, TriggerDestroyed, Defunct, ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotAction := Transition(tt.state, tt.lifetime, tt.trigger)
			if gotState != tt.wantState || gotAction != tt.wantAction {
				t.Errorf("Transition(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tt.state, tt.lifetime, tt.trigger,
					gotState, gotAction, tt.wantState, tt.wantAction)
			}
		})
	}
}

// Every (state, lifetime, trigger) combination must produce a valid
// state; the function is total.
func TestTransitionTotal(t *testing.T) {
	for _, s := range []State{Inactive, Active, Defunct} {
		for _, lt := range []proto.Lifetime{proto.LifetimeOneshot, proto.LifetimePersistent} {
			for _, tr := range []Trigger{TriggerActivate, TriggerFocusLost, TriggerRegionEmptied, TriggerRevoked, TriggerDestroyed} {
				next, _ := Transition(s, lt, tr)
				if next != Inactive && next != Active && next != Defunct {
					t.Fatalf("Transition(%v, %v, %v) produced invalid state %d", s, lt, tr, next)
				}
				if s == Defunct && next != Defunct {
					t.Fatalf("defunct must absorb %v", tr)
				}
			}
		}
	}
}
