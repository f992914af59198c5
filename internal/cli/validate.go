package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/slot"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Type         string   `json:"type"`
	Params       []string `json:"missing_params,omitempty"`
	Nodes        []string `json:"missing_nodes,omitempty"`
	Incompatible []string `json:"incompatible,omitempty"`
}

// Text prints a verdict followed by each problem.
func (r ValidationResult) Text(w io.Writer) error {
	if r.Valid {
		_, err := fmt.Fprintf(w, "%s: valid\n", r.Type)
		return err
	}
	fmt.Fprintf(w, "%s: invalid\n", r.Type)
	for _, p := range r.Params {
		fmt.Fprintf(w, "  missing param %s\n", p)
	}
	for _, n := range r.Nodes {
		fmt.Fprintf(w, "  missing node %s\n", n)
	}
	for _, n := range r.Incompatible {
		fmt.Fprintf(w, "  incompatible node %s\n", n)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <tree.yaml>",
		Short: "Check a tree for missing values and incompatible nodes",
		Long: `Load a dumped tree without running it and report every param and node
that has no value, and every node whose run signature does not match what
its slot expects. Exits 1 when anything is reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sess, err := openSession(opts, "", nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	root, err := loadTree(path, sess.env)
	if err != nil {
		if ferr := formatter.Error(ErrorCode(err), err.Error(), nil); ferr != nil {
			return ferr
		}
		return err
	}

	missing := root.Missing()
	result := ValidationResult{
		Type:   root.TypeName(),
		Params: missing.Params,
		Nodes:  missing.Nodes,
	}
	incompatible, err := incompatibleNodes(root)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to check compatibility", err)
	}
	result.Incompatible = incompatible
	result.Valid = len(result.Params) == 0 && len(result.Nodes) == 0 && len(result.Incompatible) == 0

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "tree is invalid")
	}
	return nil
}

// incompatibleNodes checks every held node against its slot's expected
// signature. Nodes with no value are left to Missing.
func incompatibleNodes(root *compose.Composable) ([]string, error) {
	var out []string
	err := root.Apply(func(path string, n *compose.Composable) error {
		for _, edge := range n.Nodes() {
			child, err := n.Node(edge)
			if slot.IsMissingValue(err) || errors.Is(err, compose.ErrNotANode) {
				continue
			}
			if err != nil {
				return err
			}
			ok, err := n.IsCompatible(edge, child.Type())
			if err != nil {
				return err
			}
			if !ok {
				out = append(out, runctx.Join(path, edge))
			}
		}
		return nil
	})
	return out, err
}
