package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rivetbt/rivet/internal/config/tracker"
)

func trackerShow(cmd *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	cfg, err := svc.TrackerConfig(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, cfg)
}

func trackerSet(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	cfg, err := svc.SetTrackerConfig(cmd.Context(), doc)
	if err != nil {
		var verr tracker.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("tracker payload rejected (%s on %q): %s", verr.Kind, verr.Field, verr.Reason)
		}
		return err
	}
	return printJSON(cmd, cfg)
}
