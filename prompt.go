package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tonimelisma/rmz-go/internal/engine"
	"github.com/tonimelisma/rmz-go/internal/record"
)

// stdCallbacks wires the engine's UI integration points to the
// terminal: yes/no confirmation and numbered-list picking on stdin,
// progress on stderr.
func stdCallbacks(cc *CLIContext) engine.Callbacks {
	return engine.Callbacks{
		Confirm:  confirmStdin,
		Pick:     pickStdin,
		Progress: progressStderr,
	}
}

// confirmStdin asks a yes/no question; anything but y/yes is no.
func confirmStdin(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)

	reader := bufio.NewReader(os.Stdin)

	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

// pickStdin presents candidates as a numbered table and reads the
// user's selection. Empty input or a non-number cancels.
func pickStdin(candidates []*record.FileRecord, prompt string) (int, bool) {
	fmt.Fprintf(os.Stderr, "%s\n", prompt)

	rows := make([][]string, 0, len(candidates))
	for i, rec := range candidates {
		rows = append(rows, append([]string{strconv.Itoa(i + 1)}, recordRows([]*record.FileRecord{rec})[0]...))
	}

	printTable(os.Stderr, append([]string{"#"}, recordHeaders...), rows)
	fmt.Fprintf(os.Stderr, "selection (1-%d, empty cancels): ", len(candidates))

	reader := bufio.NewReader(os.Stdin)

	answer, err := reader.ReadString('\n')
	if err != nil {
		return 0, false
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, false
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(candidates) {
		return 0, false
	}

	return n - 1, true
}

// progressStderr emits per-path progress lines unless quiet.
func progressStderr(current, total int, message string) {
	statusf("[%d/%d] %s\n", current, total, message)
}
