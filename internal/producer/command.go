package producer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/runger/fzpick/internal/item"
)

// searchPlaceholder is replaced with the search string in command templates.
const searchPlaceholder = "{}"

// Command runs an external program per production cycle and turns its
// stdout lines into candidates. The template is split with POSIX shlex
// rules, so no shell is involved; the {} argument is replaced with the
// search string.
//
// Lines shaped like grep --line-number output ("path:line:rest" or
// "path:line:col:rest") become location candidates keyed by path:line;
// anything else is plain text.
type Command struct {
	// Template is the argv template, e.g. "rg --line-number --column {}".
	Template string

	// Dir is the working directory for the command.
	Dir string

	// RunOnEmpty also runs the command when the search string is empty.
	// Off by default: grep-style tools treat an empty pattern as
	// match-everything, which floods the pipeline for no signal.
	RunOnEmpty bool
}

func (c Command) Name() string { return "command" }

func (c Command) Produce(ctx context.Context, search string, emit func(item.Result)) error {
	if search == "" && !c.RunOnEmpty {
		return nil
	}

	argv, err := shlex.Split(c.Template)
	if err != nil {
		return fmt.Errorf("splitting command template: %w", err)
	}
	if len(argv) == 0 {
		return errors.New("empty command template")
	}
	for i, arg := range argv {
		if arg == searchPlaceholder {
			argv[i] = search
		}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("piping %s: %w", argv[0], err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		emit(parseLine(line))
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		// grep and friends exit 1 for "no matches"; that is an empty
		// result, not a failure.
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("%s: %w", argv[0], waitErr)
	}
	return scanner.Err()
}

// parseLine recognizes grep-style "path:line[:col]:rest" output. The full
// line stays as the display text so the matcher scores what the user sees.
func parseLine(line string) item.Result {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 3 {
		return item.Result{Kind: item.KindText, Text: line}
	}
	lineNo, err := strconv.Atoi(parts[1])
	if err != nil || lineNo < 1 || parts[0] == "" {
		return item.Result{Kind: item.KindText, Text: line}
	}

	col := 1
	if len(parts) == 4 {
		if c, err := strconv.Atoi(parts[2]); err == nil && c >= 1 {
			col = c
		}
	}
	return item.Result{
		Kind: item.KindLocation,
		Text: line,
		Loc:  item.NewLocation(parts[0], lineNo, col, 0, 0),
	}
}
