package adapters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"pacrepack/internal/ports"
)

// StdinConfirmer asks on stderr and reads one answer line from stdin.
// Anything that is not an explicit yes counts as no, including EOF.
type StdinConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func NewStdinConfirmer() StdinConfirmer {
	return StdinConfirmer{In: os.Stdin, Out: os.Stderr}
}

func (c StdinConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.Out, "%s ", prompt)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var _ ports.Confirmer = StdinConfirmer{}
