package flowcli

import (
	"fmt"
	"path/filepath"

	"github.com/frankframework/frankflow/lib/version"
	"github.com/frankframework/frankflow/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s check [--watch] Configuration.xml
  %[1]s graph [--layout=auto] [--watch] Configuration.xml [graph.json]
  %[1]s serve [--host=localhost] [--port=0] [--autosave=0] [dir]
  %[1]s <edit> Configuration.xml args...

%[1]s checks Frank!Framework configurations, generates their flow diagrams and edits
them the way the flow editor does, keeping the rest of the text untouched.

Use - to read from stdin. Edits of stdin are written to stdout.

Flags:
%[3]s
Edits:
  add-pipe file Type Name              - Add a pipe after the last pipe
  add-listener file Type Name          - Add a receiver with a listener
  add-sender file Type Name            - Add a SenderPipe wrapping a sender
  add-exit file Name [x y]             - Add an exit
  add-default-exit file                - Add the READY exit
  connect file SourceUID TargetUID     - Forward from a pipe to a pipe or exit
  disconnect file SourceUID TargetUID  - Remove that forward
  move file SourceUID TargetUID NewUID - Point that forward elsewhere
  delete file UID                      - Delete a node and the forwards to it
  delete-nested file UID               - Delete a nested element
  nest file ParentUID Type Name        - Add a nested element
  first-pipe file PipeUID              - Set the firstPipe of the pipeline
  remove-first-pipe file               - Remove the firstPipe of the pipeline
  set file UID name=value...           - Set attributes
  position file UID x y                - Set flow:x and flow:y
  flow-setting file Name [Value]       - Set or remove a flow setting
  strip-flow file                      - Remove all flow settings

UIDs are Type(name), e.g. EchoPipe(Echo) or Exit(READY).
`, filepath.Base(ms.Name), version.Version, ms.Opts.Help())
}
