package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-registrar-api/internal/app"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/pkg/storage"
)

// systemActor is used for exports run from the command line.
var systemActor = models.Actor{UserID: "registrarctl", Role: models.RoleAdmin}

func calendarCmd() *cobra.Command {
	var (
		sectionID string
		studentID string
		termID    string
		outDir    string
	)

	export := &cobra.Command{
		Use:   "export",
		Short: "Write a section or student timetable as an .ics file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (sectionID == "") == (studentID == "") {
				return errors.New("exactly one of --section or --student is required")
			}
			dir, err := storage.NewExportDir(outDir)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				var name string
				var body []byte
				if sectionID != "" {
					file, err := c.Calendar.ExportSection(ctx, sectionID)
					if err != nil {
						return err
					}
					name, body = file.Filename, file.Body
				} else {
					file, err := c.Calendar.ExportStudent(ctx, systemActor, studentID, termID)
					if err != nil {
						return err
					}
					name, body = file.Filename, file.Body
				}
				path, err := dir.Write(name, body)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	export.Flags().StringVar(&sectionID, "section", "", "section id")
	export.Flags().StringVar(&studentID, "student", "", "student user id")
	export.Flags().StringVar(&termID, "term", "", "term id, required with --student")
	export.Flags().StringVarP(&outDir, "out", "o", "./exports", "output directory")

	cmd := &cobra.Command{Use: "calendar", Short: "Timetable exports"}
	cmd.AddCommand(export)
	return cmd
}

func rosterCmd() *cobra.Command {
	var (
		format string
		outDir string
	)

	export := &cobra.Command{
		Use:   "export <section-id>...",
		Short: "Write section rosters as CSV, PDF or XLSX",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storage.NewExportDir(outDir)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				for _, id := range args {
					file, err := c.Roster.Export(ctx, id, format)
					if err != nil {
						return fmt.Errorf("roster %s: %w", id, err)
					}
					path, err := dir.Write(file.Filename, file.Body)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			})
		},
	}
	export.Flags().StringVarP(&format, "format", "f", "csv", "csv, pdf or xlsx")
	export.Flags().StringVarP(&outDir, "out", "o", "./exports", "output directory")

	cmd := &cobra.Command{Use: "roster", Short: "Roster exports"}
	cmd.AddCommand(export)
	return cmd
}

func exportsCmd() *cobra.Command {
	var (
		outDir    string
		olderThan time.Duration
	)

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete exported files older than a cutoff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := storage.NewExportDir(outDir)
			if err != nil {
				return err
			}
			deleted, err := dir.Prune(olderThan, time.Now())
			if err != nil {
				return err
			}
			for _, name := range deleted {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	prune.Flags().StringVarP(&outDir, "out", "o", "./exports", "export directory")
	prune.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age cutoff")

	cmd := &cobra.Command{Use: "exports", Short: "Manage the export directory"}
	cmd.AddCommand(prune)
	return cmd
}
