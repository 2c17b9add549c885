package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/engine"
)

const consoleHelp = `commands:
  <code>       scan a barcode
  qty N        enter a quantity
  search Q     list candidates for the current step
  pick N       choose candidate N from the last search
  do           run the current step's action (create, close, print)
  back         previous step
  next         skip an already resolved step
  submit       send the fact record
  retry        resend after a failed submission
  state        show the collected values
  cancel       leave the wizard
  help         this text`

// console drives one controller from line-oriented input.
type console struct {
	ctrl *engine.Controller
	out  io.Writer
}

// run reads commands until input ends or the wizard finishes.
func (c *console) run(ctx context.Context, in io.Reader) error {
	c.prompt()
	lines := bufio.NewScanner(in)
	for lines.Scan() {
		done, err := c.exec(ctx, lines.Text())
		if err != nil {
			fmt.Fprintf(c.out, "error: %s\n", wizard.UserMessage(err))
		}
		if done {
			return nil
		}
		c.prompt()
	}
	if err := lines.Err(); err != nil {
		return err
	}
	c.ctrl.Cancel()
	return nil
}

func (c *console) exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var (
		out engine.Outcome
		err error
	)
	switch strings.ToLower(cmd) {
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return false, nil
	case "state":
		fmt.Fprintln(c.out, c.ctrl.Summary())
		return false, nil
	case "cancel":
		c.ctrl.Cancel()
		fmt.Fprintln(c.out, "cancelled")
		return true, nil
	case "back":
		out, err = c.ctrl.Back(ctx)
	case "next":
		out, err = c.ctrl.Advance(ctx)
	case "qty":
		if arg == "" {
			return false, fmt.Errorf("qty needs a number")
		}
		out, err = c.ctrl.Supply(ctx, arg)
	case "search":
		out, err = c.ctrl.Search(ctx, arg)
	case "pick":
		n, perr := strconv.Atoi(arg)
		if perr != nil {
			return false, fmt.Errorf("pick needs a candidate number")
		}
		out, err = c.ctrl.Select(ctx, n-1)
	case "do":
		out, err = c.ctrl.Perform(ctx)
	case "submit":
		out, err = c.ctrl.Submit(ctx)
	case "retry":
		out, err = c.ctrl.Retry(ctx)
	default:
		out, err = c.ctrl.HandleScan(ctx, line)
	}
	if err != nil {
		return c.ctrl.State().Phase.Done(), err
	}
	c.report(out)
	return out.Status == engine.StatusSubmitted, nil
}

func (c *console) report(out engine.Outcome) {
	switch out.Status {
	case engine.StatusCandidates:
		if len(out.Candidates) == 0 {
			fmt.Fprintln(c.out, "no matches")
			return
		}
		for i, cand := range out.Candidates {
			fmt.Fprintf(c.out, "  %d) %s\n", i+1, describe(cand))
		}
	case engine.StatusRejected, engine.StatusNotResolved, engine.StatusSubmitFailed:
		fmt.Fprintf(c.out, "! %s\n", out.Message)
	case engine.StatusIgnored:
		if out.Message != "" {
			fmt.Fprintf(c.out, "(%s)\n", out.Message)
		}
	case engine.StatusSubmitted:
		fmt.Fprintln(c.out, "submitted")
	case engine.StatusCompleted:
		fmt.Fprintln(c.out, c.ctrl.Summary())
		fmt.Fprintln(c.out, "all steps done, type submit to send")
	}
}

func (c *console) prompt() {
	st := c.ctrl.State()
	if step, ok := st.Current(); ok {
		fmt.Fprintf(c.out, "[%d/%d] %s> ", st.Index+1, len(st.Steps), prompt(step))
		return
	}
	fmt.Fprintf(c.out, "[%s]> ", st.Phase)
}

func prompt(step wizard.Step) string {
	if step.Prompt != "" {
		return step.Prompt
	}
	return string(step.Kind)
}

func describe(v any) string {
	switch o := v.(type) {
	case wizard.Item:
		return join(o.Code, o.Name)
	case wizard.Condition:
		return join(o.Code, o.Name)
	case wizard.Container:
		return join(o.Code, o.Name, o.Zone)
	case wizard.Location:
		return join(o.Code, o.Name, o.Zone)
	}
	return fmt.Sprint(v)
}

func join(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
