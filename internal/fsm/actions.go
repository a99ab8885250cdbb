package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for control-mode entry actions.
// The arbitrator implements this interface; entry actions only report, the
// drive and steering targets are derived from the current state each cycle.
type Actions interface {
	EnterWaitTx(c *librefsm.Context) error
	EnterArming(c *librefsm.Context) error
	EnterSwitching(c *librefsm.Context) error
	EnterRemoteControl(c *librefsm.Context) error
	EnterKidControl(c *librefsm.Context) error
}
