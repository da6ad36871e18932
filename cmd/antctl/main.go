package main

import (
	"github.com/robotalks/ant.go/pkg/ant/env"
	"github.com/robotalks/ant.go/pkg/cli/sh"

	_ "github.com/robotalks/ant.go/pkg/cli/cmds/ant"
)

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
