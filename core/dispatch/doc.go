// Package dispatch orchestrates a single setpoint dispatch.
//
// Dispatcher routes an operator Selection to the matching builder variant and
// hands the result to Confirmer, which publishes it with retained delivery,
// asks the flight controller for guided mode through ModeEnabler and then
// watches the channel's subscriber count for a bounded grace period.
//
// Delivery is best effort. Only a failed publish is reported as an error; a
// failed mode request or an empty channel is logged and the dispatch still
// succeeds.
package dispatch
