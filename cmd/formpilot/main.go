// File: cmd/formpilot/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/formpilot/cmd"
	"github.com/xkilldash9x/formpilot/internal/observability"
)

const panicLogFile = "panic.log"

const banner = `
  formpilot  %s
  type a command (submit, preview, validate, inspect, history) or "exit"

`

// Function variables swapped out in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	// SIGINT/SIGTERM cancel the context; a running submit finishes its
	// report and exits cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		osExit(exitCode(cmd.Execute(ctx)))
		return
	}

	// -- Interactive Mode --
	fmt.Printf(banner, cmd.Version)
	if err := interactive(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
	}
	fmt.Println("Exiting formpilot.")
}

// exitCode maps a command error to the process status. Cancellation by
// signal is a clean exit.
func exitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// interactive reads commands line by line until EOF, "exit" or "quit".
func interactive(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "formpilot > ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := executeInteractiveCommand(ctx, line, out); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

// executeInteractiveCommand runs one line on a fresh command tree so flags
// from one command never leak into the next.
func executeInteractiveCommand(ctx context.Context, line string, out io.Writer) (err error) {
	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(strings.Fields(line))
	rootCmd.SetOut(out)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// handlePanic writes the panic and its stack to panic.log and exits with 1.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(1)
		return
	}

	fmt.Fprintf(os.Stderr, "\nformpilot crashed. Details logged to %s\n", panicLogFile)
	osExit(1)
}
