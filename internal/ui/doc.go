// Package ui holds the terminal pieces of the CLI: the account chooser, the
// progress spinner shown while a drive is being tracked and the styles used
// for one-line notifications.
//
// Only one bubbletea program owns the terminal at a time. Terminal tracks the
// running program so interactive collaborators can suspend it while they
// prompt.
package ui
