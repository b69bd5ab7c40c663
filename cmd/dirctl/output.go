package main

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
	httpserver "github.com/fyrsmithlabs/directoryd/internal/http"
)

// displayKeys are tried in order for an entity's one-line title.
var displayKeys = []string{"name", "title", "heading"}

func writeJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func printHealth(w io.Writer, server string, resp httpserver.HealthResponse) {
	fmt.Fprintf(w, "Server Status: %s\n", resp.Status)
	fmt.Fprintf(w, "Server URL: %s\n", server)
	if resp.Version != "" {
		fmt.Fprintf(w, "Version: %s\n", resp.Version)
	}
	for _, r := range resp.Reasons {
		fmt.Fprintf(w, "  ! %s\n", r)
	}

	kinds := make([]string, 0, len(resp.Collections))
	for k := range resp.Collections {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-12s %s\n", k, resp.Collections[k])
	}
}

func printCollections(w io.Writer, collections []httpserver.CollectionSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSTATE\tENTITIES\tFILTER\tRESOURCE")
	for _, c := range collections {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.Kind, c.State, c.Entities, c.Filter, c.Resource)
	}
	return tw.Flush()
}

func printStatus(w io.Writer, st httpserver.StatusResponse) {
	switch st.State {
	case "failed":
		fmt.Fprintf(w, "%s: failed: %s\n", st.Kind, st.Message)
	case "loaded":
		fmt.Fprintf(w, "%s: loaded, %d entities", st.Kind, st.Entities)
		if st.LoadedAt != nil {
			fmt.Fprintf(w, " at %s", st.LoadedAt.Format("2006-01-02 15:04:05Z07:00"))
		}
		fmt.Fprintln(w)
	default:
		fmt.Fprintf(w, "%s: %s\n", st.Kind, st.State)
	}
}

func printView(w io.Writer, v httpserver.ViewResponse) error {
	printStatus(w, v.Status)
	if v.Status.State != "loaded" {
		return nil
	}

	opts := make([]string, 0, len(v.Options))
	for _, o := range v.Options {
		mark := " "
		if o.Value == v.Filter {
			mark = "*"
		}
		opts = append(opts, fmt.Sprintf("%s%s (%d)", mark, o.Label, o.Count))
	}
	fmt.Fprintf(w, "Filter: %s\n", v.Filter)
	fmt.Fprintf(w, "Options: %s\n\n", strings.Join(opts, "  "))

	if v.EmptyMessage != "" {
		fmt.Fprintln(w, v.EmptyMessage)
		return nil
	}
	if v.Grouped {
		if err := printGroups(w, v.Groups); err != nil {
			return err
		}
		if len(v.Ungrouped) == 0 {
			return nil
		}
		if len(v.Groups) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Ungrouped (%d)\n", len(v.Ungrouped))
		return printEntities(w, v.Ungrouped)
	}
	return printEntities(w, v.Entities)
}

func printGroups(w io.Writer, groups []directory.Group) error {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", g.Label, len(g.Entities))
		if err := printEntities(w, g.Entities); err != nil {
			return err
		}
	}
	return nil
}

func printEntities(w io.Writer, entities []directory.Entity) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entities {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", e.ID, displayName(e), strings.Join(e.Categories, ", "))
	}
	return tw.Flush()
}

func displayName(e directory.Entity) string {
	for _, k := range displayKeys {
		if s, ok := e.Display[k].(string); ok && s != "" {
			return s
		}
	}
	return "-"
}
