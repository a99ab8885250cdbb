package fsm

import (
	"github.com/librescoot/librefsm"
)

// NewDefinition creates the control-mode FSM definition.
// The actions parameter receives state entry notifications.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateWaitTx,
			librefsm.WithOnEnter(actions.EnterWaitTx),
		).

		// Every mode that needs a live transmitter
		State(StateTransmitterOn).
		State(StateArmingRemoteControl,
			librefsm.WithParent(StateTransmitterOn),
			librefsm.WithOnEnter(actions.EnterArming),
		).
		State(StateArmingKidControl,
			librefsm.WithParent(StateTransmitterOn),
			librefsm.WithOnEnter(actions.EnterArming),
		).
		State(StateSwitchingToRemote,
			librefsm.WithParent(StateTransmitterOn),
			librefsm.WithOnEnter(actions.EnterSwitching),
		).
		State(StateSwitchingToKid,
			librefsm.WithParent(StateTransmitterOn),
			librefsm.WithOnEnter(actions.EnterSwitching),
		).
		State(StateRemoteControl,
			librefsm.WithParent(StateTransmitterOn),
			librefsm.WithOnEnter(actions.EnterRemoteControl),
		).
		State(StateKidControl,
			librefsm.WithParent(StateTransmitterOn),
			librefsm.WithOnEnter(actions.EnterKidControl),
		).

		// === Transitions ===

		// Only the RC operator may bring the vehicle out of WAIT_TX
		Transition(StateWaitTx, EvTransmitterReady, StateArmingRemoteControl).

		// Signal loss overrides everything, including handoffs in progress
		Transition(StateTransmitterOn, EvTransmitterLost, StateWaitTx).

		// Takeover switch flips start a handoff from any mode
		Transition(StateTransmitterOn, EvTakeoverEngaged, StateSwitchingToRemote).
		Transition(StateTransmitterOn, EvTakeoverReleased, StateSwitchingToKid).

		// Handoff: wait for a full stop, then for the new source to be neutral
		Transition(StateSwitchingToRemote, EvStopped, StateArmingRemoteControl).
		Transition(StateSwitchingToKid, EvStopped, StateArmingKidControl).
		Transition(StateArmingRemoteControl, EvRemoteNeutral, StateRemoteControl).
		Transition(StateArmingKidControl, EvPedalsNeutral, StateKidControl).

		// Initial state
		Initial(StateWaitTx)
}
