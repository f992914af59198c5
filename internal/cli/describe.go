package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/sample"
)

// TypeList is the output of describe without arguments.
type TypeList struct {
	Types []string `json:"types"`
}

// Text prints one type per line.
func (l TypeList) Text(w io.Writer) error {
	for _, t := range l.Types {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}

// TypeDescription wraps compose.Description for text output.
type TypeDescription struct {
	compose.Description
}

// Text prints the type header followed by its params and nodes.
func (d TypeDescription) Text(w io.Writer) error {
	fmt.Fprintf(w, "%s%s\n", d.Type, d.Signature)
	if d.Help != "" {
		fmt.Fprintf(w, "  %s\n", d.Help)
	}
	fmt.Fprintf(w, "middleware: %s [%s]\n", d.Section, strings.Join(d.Middleware, ", "))
	writeSlots(w, "params", d.Params)
	writeSlots(w, "nodes", d.Nodes)
	return nil
}

func writeSlots(w io.Writer, title string, slots []compose.SlotInfo) {
	if len(slots) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, s := range slots {
		line := "  " + s.Name
		if s.Type != "" {
			line += " " + s.Type
		}
		switch {
		case s.Computed != "":
			line += " (" + s.Computed
			if len(s.DependsOn) > 0 {
				line += " on " + strings.Join(s.DependsOn, ", ")
			}
			line += ")"
		case s.Default != "":
			line += " = " + s.Default
		default:
			line += " (required)"
		}
		if s.Help != "" {
			line += "  # " + s.Help
		}
		fmt.Fprintln(w, line)
	}
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [type]",
		Short: "List loadable types or describe one",
		Long: `Without arguments, list the types a tree may contain. With a type name,
show its signature, middleware and slots.

Examples:
  pipetree describe
  pipetree describe sample.Plus --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args, cmd)
		},
	}
}

func runDescribe(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	allowed := sample.AllowList()

	if len(args) == 0 {
		return formatter.Success(TypeList{Types: allowed.Names()})
	}

	t, err := allowed.Resolve(args[0])
	if err != nil {
		if ferr := formatter.Error(ErrorCode(err), err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "unknown type", err)
	}

	sess, err := openSession(opts, "", nil)
	if err != nil {
		return err
	}
	defer sess.Close()
	return formatter.Success(TypeDescription{t.Describe(sess.env)})
}
