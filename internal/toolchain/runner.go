package toolchain

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/magefile/mage/sh"

	"github.com/oshokin/fw-merge/internal/logger"
)

// Runner starts an external command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// CommandError reports a command that could not be started or exited with
// a non-zero status.
type CommandError struct {
	// Command is the quoted command line.
	Command string
	// ExitCode is the process exit status, -1 if the process never ran.
	ExitCode int
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("run %s: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

// Unwrap returns the underlying failure.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// dollar starts a variable reference in sh.Exec arguments.
const dollar = "$"

// ShellRunner runs commands through mage's sh package, streaming their
// output to the configured writers.
type ShellRunner struct {
	// Stdout receives the command's standard output.
	Stdout io.Writer
	// Stderr receives the command's standard error.
	Stderr io.Writer
	// Env holds extra environment variables for the command.
	Env map[string]string
}

// NewShellRunner creates a runner writing command output to stdout and stderr.
func NewShellRunner(stdout, stderr io.Writer) *ShellRunner {
	return &ShellRunner{
		Stdout: stdout,
		Stderr: stderr,
	}
}

// Run executes the command and blocks until it exits.
// The context is checked before the process starts; a running process is
// not interrupted.
func (r *ShellRunner) Run(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	commandLine := CommandLine(name, args...)
	logger.DebugKV(ctx, "Running command", "command", commandLine)

	env, name, argv := escapeDollars(r.Env, name, args)

	ran, err := sh.Exec(env, r.Stdout, r.Stderr, name, argv...)
	if err == nil {
		return nil
	}

	if !ran {
		return &CommandError{
			Command:  commandLine,
			ExitCode: -1,
			Err:      err,
		}
	}

	return &CommandError{
		Command:  commandLine,
		ExitCode: sh.ExitStatus(err),
		Err:      err,
	}
}

// escapeDollars protects literal dollar signs from the $VAR expansion sh.Exec
// applies to the command and its arguments. Each $ is doubled and "$" is
// mapped back to itself, so paths and scripts reach the process unchanged.
// The returned slice is a copy, sh.Exec rewrites it in place.
func escapeDollars(env map[string]string, name string, args []string) (map[string]string, string, []string) {
	argv := append([]string(nil), args...)

	escaped := strings.Contains(name, dollar)
	for _, arg := range argv {
		escaped = escaped || strings.Contains(arg, dollar)
	}

	if !escaped {
		return env, name, argv
	}

	for i := range argv {
		argv[i] = strings.ReplaceAll(argv[i], dollar, dollar+dollar)
	}

	withDollar := make(map[string]string, len(env)+1)
	for key, value := range env {
		withDollar[key] = value
	}

	withDollar[dollar] = dollar

	return withDollar, strings.ReplaceAll(name, dollar, dollar+dollar), argv
}

// CommandLine renders a command for logs and error messages, quoting
// arguments that contain spaces.
func CommandLine(name string, args ...string) string {
	var builder strings.Builder

	builder.WriteString(quote(name))

	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(quote(arg))
	}

	return builder.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return strconv.Quote(s)
	}

	return s
}
