package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leandrodaf/pianosync/sdk/contracts"
)

// PromptSelector lists the ports on Out and reads one index from In.
type PromptSelector struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptSelector) SelectPort(ports []contracts.DeviceInfo) (int, error) {
	fmt.Fprintln(p.Out, "\nAvailable input ports:")
	for i, port := range ports {
		fmt.Fprintf(p.Out, "%d: %s\n", i, port.Name)
	}
	fmt.Fprint(p.Out, "Please select input port: ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, fmt.Errorf("reading port selection: %w", err)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", contracts.ErrInvalidPortSelection, err)
	}
	return idx, nil
}

// FixedSelector always picks the same index.
type FixedSelector int

func (f FixedSelector) SelectPort([]contracts.DeviceInfo) (int, error) {
	return int(f), nil
}
