// Package mutation applies optimistic updates to server-backed state.
//
// A Coordinator holds one slot per logical key. Mutate shows the new value
// immediately, sends it to the server, and then either adopts the server's
// canonical value or restores exactly what was visible before. While a key
// is saving, further mutations of that key are dropped without a network
// call. Keys are independent of each other.
//
// The lifecycle of a slot is the pure state machine in Transition:
//
//	Idle --Submit--> Saving --Succeed--> Committed --Settle--> Idle
//	                        --Fail-----> RolledBack --Settle--> Idle
package mutation
