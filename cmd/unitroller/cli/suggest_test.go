// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "abc", 1},
		{"abc", "bac", 2},
		{"kitten", "sitting", 3},
		{"simulate", "simulte", 1},
		{"snapshot", "snaphsot", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"/"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if reverse := levenshtein(test.b, test.a); reverse != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.b, test.a, reverse, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "serve"},
		{Name: "state"},
		{Name: "simulate"},
		{Name: "snapshot"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"simualte", "simulate"},
		{"snapshto", "snapshot"},
		{"vrsion", "version"},
		{"zzzzzzzzz", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flagSet.String("executor", "", "")
	flagSet.StringSlice("retarget", nil, "")
	flagSet.StringP("socket", "s", "", "")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--exector", "timelock"}, "--executor"},
		{[]string{"--retraget=a=b"}, "--retarget"},
		{[]string{"--socket", "x", "--sockt"}, "--socket"},
		{[]string{"--zzzzzzzz"}, ""},
		{[]string{"--", "--exector"}, ""},
	}
	for _, test := range tests {
		if got := suggestFlag(test.args, flagSet); got != test.want {
			t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
