package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/zulandar/assignyard/internal/editor"
	"github.com/zulandar/assignyard/internal/lookup"
	"github.com/zulandar/assignyard/internal/notify"
	"github.com/zulandar/assignyard/internal/script"
	"github.com/zulandar/assignyard/internal/store"
)

func newEditCmd() *cobra.Command {
	var (
		configPath string
		scriptPath string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "edit <intervention-id>",
		Short: "Replay scripted edits on an intervention's assignments",
		Long: `Opens an editor over the stored assignments of an intervention, replays a
YAML script of edits, row additions and deletions, and prints the resulting
rows with their validation flags. With --save the result is written back,
unless a row is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, configPath, args[0], scriptPath, save)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to assignyard config file")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "YAML edit script to replay")
	cmd.Flags().BoolVar(&save, "save", false, "persist the edited rows")
	return cmd
}

func runEdit(cmd *cobra.Command, configPath, interventionID, scriptPath string, save bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var sc *script.Script
	if scriptPath != "" {
		var err error
		if sc, err = script.Load(scriptPath); err != nil {
			return err
		}
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st := store.New(gormDB)

	iv, err := st.Intervention(ctx, interventionID)
	if err != nil {
		return err
	}
	data, err := st.Load(ctx, interventionID)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	ed := editor.New(editor.Opts{
		Context: store.EditorContext(iv, cfg.ManagedCompanyID, cfg.AdvancedInterventionPlanning),
		Data:    data,
		Lookup:  lookup.New(gormDB, cfg.Lookup.DefaultPageSize, cfg.Lookup.MaxPageSize),
		OnHistory: func(ev editor.HistoryEvent) {
			if err := st.RecordHistoryRequest(ctx, interventionID, ev.Assignment); err != nil {
				log.Printf("edit: record history of row %d: %v", ev.Index, err)
			}
			fmt.Fprintf(out, "History requested for row %d\n", ev.Index)
			var id string
			if ev.Assignment.ID != nil {
				id = ev.Assignment.ID.String()
			}
			notify.Send(ctx, notifier, notify.Event{
				Kind:           notify.KindHistoryRequested,
				InterventionID: interventionID,
				AssignmentID:   id,
				Status:         ev.Assignment.Status.String(),
			})
		},
	})
	defer ed.Close()

	if sc != nil {
		if err := sc.Run(ctx, ed, st.Company); err != nil {
			printEditor(out, iv.Title, ed)
			return err
		}
	}
	printEditor(out, iv.Title, ed)

	if !save {
		return nil
	}
	if ed.Invalid() {
		return errors.New("edit: rows have validation errors, not saved")
	}
	res, err := st.Save(ctx, interventionID, ed.Value(), ed.DeletedIDs())
	if err != nil {
		return err
	}
	notify.Send(ctx, notifier, notify.Event{
		Kind:           notify.KindSaved,
		InterventionID: interventionID,
		Saved:          res.Saved,
		Deleted:        res.Deleted,
		Cancelled:      res.Cancelled,
	})
	fmt.Fprintf(out, "Saved %d row(s), deleted %d, cancelled %d\n", res.Saved, res.Deleted, res.Cancelled)
	return nil
}
