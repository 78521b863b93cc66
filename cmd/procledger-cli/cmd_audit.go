package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/procledger/procledger/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and export the audit trail",
	}
	cmd.AddCommand(auditQueryCmd())
	cmd.AddCommand(auditExportCmd())
	return cmd
}

// parseTimeFlag parses an RFC 3339 timestamp flag, returning nil when unset.
func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be RFC 3339 (e.g. 2026-01-02T15:04:05Z): %w", name, err)
	}
	return &t, nil
}

func auditQueryCmd() *cobra.Command {
	var documentID, from, to string
	var actions, userIDs []string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query audit log entries, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			fromTime, err := parseTimeFlag("from", from)
			if err != nil {
				fatal("parse time", err)
			}
			toTime, err := parseTimeFlag("to", to)
			if err != nil {
				fatal("parse time", err)
			}
			opts := &client.AuditQueryOptions{
				DocumentID: documentID,
				Actions:    actions,
				UserIDs:    userIDs,
				From:       fromTime,
				To:         toTime,
				Limit:      limit,
				Offset:     offset,
			}
			entries, total, err := apiClient.Audit.Query(context.Background(), opts)
			if err != nil {
				fatal("audit query", err)
			}
			if flagFmt == "table" {
				headers := []string{"ID", "ACTION", "RESOURCE", "USER", "SUCCESS", "TIMESTAMP"}
				var rows [][]string
				for _, e := range entries {
					rows = append(rows, []string{
						e.ID,
						e.Action,
						fmt.Sprintf("%s/%s", e.ResourceType, e.ResourceID),
						e.UserName,
						fmt.Sprintf("%t", e.Success),
						e.Timestamp.Format("2006-01-02 15:04:05"),
					})
				}
				formatTable(headers, rows)
				fmt.Fprintf(os.Stderr, "%d of %d entries\n", len(entries), total)
				return
			}
			if flagFmt == "quiet" {
				for _, e := range entries {
					fmt.Println(e.ID)
				}
				return
			}
			output(map[string]any{"data": entries, "total": total}, "")
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "Filter by document ID")
	cmd.Flags().StringArrayVar(&actions, "action", nil, "Filter by action (repeatable)")
	cmd.Flags().StringArrayVar(&userIDs, "user", nil, "Filter by user ID (repeatable)")
	cmd.Flags().StringVar(&from, "from", "", "Entries at or after this RFC 3339 timestamp")
	cmd.Flags().StringVar(&to, "to", "", "Entries at or before this RFC 3339 timestamp")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset")
	return cmd
}

func auditExportCmd() *cobra.Command {
	var documentID, outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the audit trail as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiClient.Audit.ExportCSV(cmd.Context(), documentID)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if outputPath == "" {
				outputPath = fmt.Sprintf("procledger-audit-%s.csv",
					time.Now().UTC().Format("20060102T150405Z"))
			}

			if outputPath == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}

			if err := os.WriteFile(outputPath, data, 0o600); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Exported audit log to %s\n", outputPath)

			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "Limit export to one document")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: procledger-audit-<timestamp>.csv, use - for stdout)")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Run: func(cmd *cobra.Command, args []string) {
			h, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health check", err)
			}
			output(h, h.Status)
		},
	}
}
