// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirm prompts on stdout and reads a single line from stdin. Only
// an explicit yes counts; EOF or anything else declines.
func (a *App) confirm(prompt string) (bool, error) {
	fmt.Fprint(a.Stdout, prompt)
	line, err := bufio.NewReader(a.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
