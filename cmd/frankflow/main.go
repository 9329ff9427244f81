package main

import (
	"github.com/frankframework/frankflow/flowcli"
	"github.com/frankframework/frankflow/lib/xmain"
)

func main() {
	xmain.Main(flowcli.Run)
}
