package main

import "github.com/spf13/pflag"

// bind makes flag the highest-precedence source for key.
func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err) // only fails for a nil flag, a programming error
	}
}
