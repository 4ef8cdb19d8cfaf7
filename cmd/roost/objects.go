package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"

	"github.com/birbparty/roost/sdk"
)

var (
	limit      int
	skip       int
	withCount  bool
	sortBy     string
	dataFile   string
	merge      bool
	deleteAll  bool
	params     string
	resultOnly bool

	loadCmd = &cobra.Command{
		Use:   "load [key...]",
		Short: "Load objects by key, or every object in scope",
		RunE:  load,
	}

	searchCmd = &cobra.Command{
		Use:     "search [query]",
		Aliases: []string{"find"},
		Short:   `Search objects, e.g. '[level > 10, name = "Bob"]'`,
		Args:    cobra.ExactArgs(1),
		RunE:    search,
	}

	saveCmd = &cobra.Command{
		Use:   "save [key] [json]",
		Short: "Save an object from inline JSON or a JSON/YAML file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  save,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete [key...]",
		Short: "Delete objects",
		RunE:  remove,
	}

	snippetCmd = &cobra.Command{
		Use:   "snippet [name]",
		Short: "Run a server-side snippet",
		Args:  cobra.ExactArgs(1),
		RunE:  snippet,
	}
)

func registerObjectCommands(root *cobra.Command) {
	for _, cmd := range []*cobra.Command{loadCmd, searchCmd} {
		cmd.Flags().IntVar(&limit, "limit", 0, "page size, 0 for the backend default")
		cmd.Flags().IntVar(&skip, "skip", 0, "objects to skip")
		cmd.Flags().BoolVar(&withCount, "count", false, "include the total count")
		cmd.Flags().StringVar(&sortBy, "sort", "", "sort as field[:asc|desc]")
	}
	saveCmd.Flags().StringVarP(&dataFile, "file", "f", "", "path to a JSON/YAML document, - for stdin")
	saveCmd.Flags().BoolVar(&merge, "merge", false, "merge into the stored object instead of replacing it")
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every object in scope")
	snippetCmd.Flags().StringVar(&params, "params", "", "snippet parameters as a JSON object")
	snippetCmd.Flags().BoolVar(&resultOnly, "result-only", true, "return only the snippet result")

	root.AddCommand(loadCmd, searchCmd, saveCmd, deleteCmd, snippetCmd)
}

func requestOptions() (*sdk.RequestOptions, error) {
	opts := sdk.NewRequestOptions()
	if limit > 0 || skip > 0 || withCount {
		paging, err := sdk.NewPagingOptions(limit, skip, withCount)
		if err != nil {
			return nil, err
		}
		opts = opts.WithPaging(paging)
	}
	if sortBy != "" {
		field, dir, _ := strings.Cut(sortBy, ":")
		direction := sdk.Ascending
		if strings.EqualFold(dir, "desc") {
			direction = sdk.Descending
		}
		sort, err := sdk.NewSortOptions(field, direction)
		if err != nil {
			return nil, err
		}
		opts = opts.WithSort(sort)
	}
	return opts, nil
}

// report prints the response body and turns a rejected call into an
// error so the exit status reflects it.
func report(cmd *cobra.Command, env *sdk.Envelope) error {
	body := env.Body()
	if gjson.ValidBytes(body) {
		body = []byte(gjson.GetBytes(body, "@pretty").Raw)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
	if !env.WasSuccess() {
		return fmt.Errorf("roost rejected the request with status %d: %s",
			env.StatusCode(), strings.Join(append(env.ErrorMessages(), errorValues(env)...), "; "))
	}
	return nil
}

func errorValues(env *sdk.Envelope) []string {
	out := make([]string, 0, len(env.ErrorKeys()))
	for _, k := range env.ErrorKeys() {
		out = append(out, k+": "+env.ErrorMessage(k))
	}
	return out
}

func load(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	opts, err := requestOptions()
	if err != nil {
		return err
	}
	resp, err := s.Load(cmd.Context(), opts, args...)
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}

func search(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	opts, err := requestOptions()
	if err != nil {
		return err
	}
	resp, err := s.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}

func readDocument(args []string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case len(args) == 2:
		data = []byte(args[1])
	case dataFile == "-":
		data, err = io.ReadAll(os.Stdin)
	case dataFile != "":
		data, err = os.ReadFile(dataFile)
	default:
		return nil, fmt.Errorf("pass the object as an argument or with --file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	// YAML is a superset of JSON, so both are accepted.
	return yaml.YAMLToJSON(data)
}

func save(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	doc, err := readDocument(args)
	if err != nil {
		return err
	}
	keyed, err := json.Marshal(map[string]json.RawMessage{args[0]: doc})
	if err != nil {
		return err
	}
	obj, err := sdk.NewKeyedObjectFromJSON(string(keyed))
	if err != nil {
		return err
	}

	var resp *sdk.ObjectModificationResponse
	if merge {
		resp, err = s.Update(cmd.Context(), obj)
	} else {
		resp, err = s.Save(cmd.Context(), obj)
	}
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}

func remove(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	var resp *sdk.ObjectModificationResponse
	switch {
	case deleteAll && len(args) > 0:
		return fmt.Errorf("--all cannot be combined with keys")
	case deleteAll:
		resp, err = s.DeleteAll(cmd.Context())
	default:
		resp, err = s.Delete(cmd.Context(), args...)
	}
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}

func snippet(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	fnOpts := []sdk.FunctionOption{sdk.WithResultsOnly(resultOnly)}
	if params != "" {
		var p map[string]any
		if err := json.Unmarshal([]byte(params), &p); err != nil {
			return fmt.Errorf("invalid --params: %w", err)
		}
		fnOpts = append(fnOpts, sdk.WithFunctionParams(p))
	}
	fn, err := sdk.NewServerFunction(args[0], fnOpts...)
	if err != nil {
		return err
	}
	resp, err := s.RunSnippet(cmd.Context(), fn, nil)
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}
