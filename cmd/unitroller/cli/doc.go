// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the unitroller binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// flags with pflag, and prints structured help. Unknown commands and
// flags produce an error with the closest known name when one is
// within a small edit distance.
//
// Commands write machine-readable results with [WriteJSON] and log
// through [NewCommandLogger], which picks a text handler on a terminal
// and JSON otherwise. A command whose non-zero exit is an expected
// outcome returns an [ExitError].
package cli
