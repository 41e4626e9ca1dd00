package main

import (
	"github.com/concolic-go/concolic/fixtures"
	"github.com/concolic-go/concolic/invocation"
)

var fixtureRegistry = map[string]func() invocation.FuncSpec{
	"romanToInt":   fixtures.RomanToIntSpec,
	"escape":       fixtures.EscapeSpec,
	"strlower":     fixtures.StrLowerSpec,
	"strsplit":     fixtures.StrSplitSpec,
	"policy":       fixtures.PolicySpec,
	"precondition": fixtures.PreconditionSpec,
}
