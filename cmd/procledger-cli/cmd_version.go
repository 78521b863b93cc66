package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/procledger/procledger/client"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage document versions",
	}
	cmd.AddCommand(versionSaveCmd())
	cmd.AddCommand(versionGetCmd())
	cmd.AddCommand(versionListCmd())
	cmd.AddCommand(versionLatestCmd())
	cmd.AddCommand(versionRestoreCmd())
	cmd.AddCommand(versionDeleteCmd())
	cmd.AddCommand(versionChangelogCmd())
	return cmd
}

// readDocument loads a document snapshot from a JSON file, or stdin when
// path is "-".
func readDocument(path string) (*client.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var doc client.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document JSON: %w", err)
	}
	return &doc, nil
}

func versionSaveCmd() *cobra.Command {
	var filePath, notes, changeType string
	cmd := &cobra.Command{
		Use:   "save <document-id>",
		Short: "Save a new version of a document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if strings.TrimSpace(notes) == "" {
				fmt.Fprintln(os.Stderr, "Error: --notes is required")
				os.Exit(1)
			}
			doc, err := readDocument(filePath)
			if err != nil {
				fatal("read document", err)
			}
			req := &client.SaveVersionRequest{
				Document:    doc,
				ChangeNotes: notes,
				ChangeType:  changeType,
				CreatedBy:   flagActor,
			}
			v, err := apiClient.Versions.Save(context.Background(), args[0], req)
			if err != nil {
				fatal("save version", err)
			}
			output(v, v.ID)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Document snapshot JSON file (use - for stdin)")
	cmd.Flags().StringVar(&notes, "notes", "", "Change notes (required)")
	cmd.Flags().StringVar(&changeType, "type", "minor", "Change type: major|minor|patch|draft")
	cmd.MarkFlagRequired("file")
	return cmd
}

func versionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <version-id>",
		Short: "Get a version by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := apiClient.Versions.Get(context.Background(), args[0])
			if err != nil {
				fatal("get version", err)
			}
			output(v, v.ID)
		},
	}
}

func versionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <document-id>",
		Short: "List versions of a document, newest first",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			versions, err := apiClient.Versions.List(context.Background(), args[0])
			if err != nil {
				fatal("list versions", err)
			}
			if flagFmt == "table" {
				headers := []string{"ID", "VERSION", "NUMBER", "TYPE", "LATEST", "CREATED_AT"}
				var rows [][]string
				for _, v := range versions {
					rows = append(rows, []string{
						v.ID,
						v.Version,
						fmt.Sprintf("%d", v.VersionNumber),
						v.ChangeType,
						fmt.Sprintf("%t", v.IsLatest),
						v.CreatedAt.Format("2006-01-02 15:04:05"),
					})
				}
				formatTable(headers, rows)
				return
			}
			if flagFmt == "quiet" {
				for _, v := range versions {
					fmt.Println(v.ID)
				}
				return
			}
			output(versions, "")
		},
	}
}

func versionLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <document-id>",
		Short: "Get the latest version of a document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := apiClient.Versions.Latest(context.Background(), args[0])
			if err != nil {
				fatal("get latest version", err)
			}
			output(v, v.ID)
		},
	}
}

func versionRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <version-id>",
		Short: "Restore a historical version as a new latest version",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, err := apiClient.Versions.Restore(context.Background(), args[0], flagActor)
			if err != nil {
				fatal("restore version", err)
			}
			output(v, v.ID)
		},
	}
}

func versionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <version-id>",
		Short: "Delete a historical version (the latest version cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient.Versions.Delete(context.Background(), args[0], flagActor); err != nil {
				fatal("delete version", err)
			}
			fmt.Println("deleted")
		},
	}
}

func versionChangelogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changelog <document-id>",
		Short: "Show the human-readable changelog for a document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cl, err := apiClient.Versions.ChangeLog(context.Background(), args[0])
			if err != nil {
				fatal("get changelog", err)
			}
			if flagFmt == "table" {
				headers := []string{"VERSION", "TYPE", "AUTHOR", "CREATED_AT", "NOTES"}
				var rows [][]string
				for _, e := range cl.Entries {
					rows = append(rows, []string{
						e.Version,
						e.ChangeType,
						e.Author,
						e.CreatedAt.Format("2006-01-02 15:04:05"),
						e.Notes,
					})
				}
				formatTable(headers, rows)
				return
			}
			output(cl, cl.DocumentID)
		},
	}
}
