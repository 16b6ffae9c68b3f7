// Package console holds the configuration and logging plumbing shared by the
// command-line tools under cmd/.
package console
