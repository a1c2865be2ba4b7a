// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/kubestorage/pvshare/internal/share"
)

func printShareTable(w io.Writer, infos []share.ShareInfo) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VOLUME\tSOURCE\tTARGET\tRO\tCAPACITY\tPHASE")
	for _, info := range infos {
		ro := "false"
		if info.ReadOnly {
			ro = "true"
		}
		fmt.Fprintf(tw, "%s\t%s/%s\t%s/%s\t%s\t%s\t%s\n",
			info.VolumeName,
			info.SourceNamespace, info.SourceClaim,
			info.TargetNamespace, info.TargetClaim,
			ro, info.Capacity, info.Phase)
	}
	tw.Flush()
}

func printReport(w io.Writer, rep *share.Report, dryRun bool) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tVOLUME\tSTATUS\tDETAIL")
	for _, out := range rep.Outcomes {
		fmt.Fprintf(tw, "%s/%s\t%s\t%s\t%s\n",
			out.Target.Namespace, out.Target.Claim,
			out.VolumeName, out.Status, out.Message)
	}
	tw.Flush()
	if dryRun {
		fmt.Fprintf(w, "dry run: %d planned, %d skipped, %d failed\n",
			rep.Planned, rep.Skipped, rep.Failed)
		return
	}
	fmt.Fprintf(w, "%d created, %d skipped, %d failed\n",
		rep.Created, rep.Skipped, rep.Failed)
}

func printShareList(w io.Writer, heading string, infos []share.ShareInfo) {
	if len(infos) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", heading)
	for _, info := range infos {
		fmt.Fprintf(w, "  %s -> %s/%s\n",
			info.VolumeName, info.TargetNamespace, info.TargetClaim)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
