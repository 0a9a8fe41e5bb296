// Package console implements an interactive terminal channel.
//
// Each line typed at the prompt becomes one message activity from the local
// user and runs one bot turn. Bot output is printed as text; OAuth cards are
// rendered with their sign-in link so the user can open it in a browser.
// Token events pushed by the token service after a browser sign-in are
// injected through ProcessActivity and run as ordinary turns. Turns never
// overlap.
package console
