package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/assignyard/internal/editor"
	"github.com/zulandar/assignyard/internal/lookup"
)

func newResourcesCmd() *cobra.Command {
	var (
		configPath string
		req        editor.LookupRequest
	)

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Search assignable resources",
		Long:  "Lists one page of active resources of a company, optionally narrowed to a site, a project and a name filter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResources(cmd, configPath, req)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to assignyard config file")
	cmd.Flags().StringVar(&req.CompanyID, "company", "", "company id (defaults to managed_company_id)")
	cmd.Flags().StringVar(&req.SiteID, "site", "", "site id")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "project id")
	cmd.Flags().StringVarP(&req.Query, "query", "q", "", "name filter")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "number of matches to skip")
	cmd.Flags().IntVar(&req.PageSize, "limit", 0, "page size (defaults to lookup.default_page_size)")
	return cmd
}

func runResources(cmd *cobra.Command, configPath string, req editor.LookupRequest) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if req.CompanyID == "" {
		req.CompanyID = cfg.ManagedCompanyID
	}

	l := lookup.New(gormDB, cfg.Lookup.DefaultPageSize, cfg.Lookup.MaxPageSize)
	page, err := l.Resources(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No resources found.")
		return nil
	}
	printPage(out, page, req.Offset)
	return nil
}
