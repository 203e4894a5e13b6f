package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridflow/gridflow/internal/config"
	"github.com/gridflow/gridflow/internal/engine"
	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/scheduler"
	"github.com/gridflow/gridflow/internal/translate"
)

type evalFlags struct {
	jsonOutput bool
	timeout    time.Duration
	variables  []string
}

func newEvalCmd(root *rootFlags) *cobra.Command {
	flags := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "eval <graph.yaml>",
		Short: "Evaluate a graph document once and print node values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], root, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Emit values as JSON")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "Give up after this long")
	cmd.Flags().StringArrayVar(&flags.variables, "var", nil, "Override a variable case, e.g. --var span=long")

	return cmd
}

func runEval(cmd *cobra.Command, path string, root *rootFlags, flags *evalFlags) error {
	log, err := newLogger(root)
	if err != nil {
		return err
	}

	doc, err := config.ParseDocument(path)
	if err != nil {
		return err
	}

	opts, err := bindingContext(doc, flags.variables)
	if err != nil {
		return err
	}

	eng := engine.Start(engine.Options{Log: log})
	defer eng.Close()
	session := scheduler.NewSession(eng, log)
	defer session.Close()

	nodes, edges := doc.Graph()
	if err := session.ApplyEdit(nodes, edges, opts); err != nil {
		return err
	}

	update, err := awaitValues(session, flags.timeout)
	if err != nil {
		return err
	}

	if flags.jsonOutput {
		return printJSON(cmd, update)
	}
	printText(cmd, doc.Name, update)
	return nil
}

func bindingContext(doc *config.Document, overrides []string) (*translate.Options, error) {
	opts := doc.BindingOptions()
	for _, override := range overrides {
		name, active, ok := strings.Cut(override, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var %q, expected name=case", override)
		}
		switched := doc.WithVariableCase(name, active)
		if switched == nil {
			return nil, fmt.Errorf("unknown variable case %q", override)
		}
		opts.Variables[name] = switched.Variables[name]
	}
	return opts, nil
}

func awaitValues(session *scheduler.Session, timeout time.Duration) (scheduler.Update, error) {
	// The first update is the terminal reply to our edit. A document of
	// nothing but annotations legitimately evaluates to zero values.
	select {
	case update := <-session.Updates():
		if update.Err != nil {
			return update, update.Err
		}
		return update, nil
	case <-time.After(timeout):
		return scheduler.Update{}, fmt.Errorf("timed out after %s waiting for evaluation", timeout)
	}
}

func printText(cmd *cobra.Command, name string, update scheduler.Update) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", name)

	ids := make([]string, 0, len(update.Values))
	for id := range update.Values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fmt.Fprintf(out, "  %-20s %s\n", id, formatValue(update.Values[id]))
	}
	for _, diag := range update.Diagnostics {
		fmt.Fprintf(out, "  ! %s [%s] %s\n", diag.NodeID, diag.Code, diag.Message)
	}
	if update.Partial {
		fmt.Fprintln(out, "  (partial result)")
	}
}

func formatValue(value protocol.Value) string {
	switch value.Kind {
	case protocol.ValueScalar:
		return fmt.Sprintf("%g", value.Scalar)
	case protocol.ValueVector:
		return fmt.Sprintf("vector(n=%d)", len(value.Vector))
	case protocol.ValueTable:
		if value.Table == nil {
			return "table(empty)"
		}
		return fmt.Sprintf("table(%d cols, %d rows)", len(value.Table.Columns), len(value.Table.Rows))
	case protocol.ValueError:
		return "error: " + value.Message
	}
	return "unknown"
}

func printJSON(cmd *cobra.Command, update scheduler.Update) error {
	payload := struct {
		Values      map[string]protocol.Value `json:"values"`
		Diagnostics []protocol.Diagnostic     `json:"diagnostics,omitempty"`
		Partial     bool                      `json:"partial,omitempty"`
	}{
		Values:      update.Values,
		Diagnostics: update.Diagnostics,
		Partial:     update.Partial,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
