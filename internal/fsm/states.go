package fsm

import "github.com/librescoot/librefsm"

// Control modes
const (
	StateWaitTx librefsm.StateID = "wait-tx"

	// Transmitter-on parent state and substates (hierarchical)
	StateTransmitterOn       librefsm.StateID = "transmitter-on"
	StateArmingRemoteControl librefsm.StateID = "arming-remote-control"
	StateArmingKidControl    librefsm.StateID = "arming-kid-control"
	StateSwitchingToRemote   librefsm.StateID = "switching-to-remote-control"
	StateSwitchingToKid      librefsm.StateID = "switching-to-kid-control"
	StateRemoteControl       librefsm.StateID = "remote-control"
	StateKidControl          librefsm.StateID = "kid-control"
)

// Control events, raised by the arbitrator once per cycle at most
const (
	// Receiver
	EvTransmitterLost  librefsm.EventID = "transmitter-lost"
	EvTransmitterReady librefsm.EventID = "transmitter-ready"

	// Takeover switch edges
	EvTakeoverEngaged  librefsm.EventID = "takeover-engaged"
	EvTakeoverReleased librefsm.EventID = "takeover-released"

	// Handoff conditions
	EvStopped       librefsm.EventID = "stopped"
	EvRemoteNeutral librefsm.EventID = "remote-neutral"
	EvPedalsNeutral librefsm.EventID = "pedals-neutral"
)
