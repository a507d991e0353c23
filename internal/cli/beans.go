package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	gohttp "github.com/km-arc/go-arc/framework/http"
)

var (
	beansJSON  bool
	beansScope string
)

var beansCmd = &cobra.Command{
	Use:   "beans",
	Short: "List the registered beans",
	Long:  `Start the container without serving HTTP and list every bean definition.`,
	RunE:  runBeans,
}

func init() {
	beansCmd.Flags().BoolVar(&beansJSON, "json", false, "Output in JSON format")
	beansCmd.Flags().StringVar(&beansScope, "scope", "", "Filter by scope (Dependent, ApplicationScoped, RequestScoped)")
	rootCmd.AddCommand(beansCmd)
}

func runBeans(cmd *cobra.Command, args []string) error {
	a, err := newApplication()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.Boot(ctx); err != nil {
		return fmt.Errorf("booting application: %w", err)
	}
	defer func() { _ = a.Shutdown(ctx) }()

	var entries []gohttp.BeanInfo
	for _, def := range a.Beans() {
		if beansScope != "" && !strings.EqualFold(def.Scope().String(), beansScope) {
			continue
		}
		entries = append(entries, gohttp.Describe(def))
	}

	out := cmd.OutOrStdout()
	if beansJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling beans: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No beans registered.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tKIND\tSCOPE\tQUALIFIERS\tID")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Type, e.Kind, e.Scope, strings.Join(e.Qualifiers, " "), e.ID)
	}
	return w.Flush()
}
