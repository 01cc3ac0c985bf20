package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avmeta/internal/domain"
)

var personCmd = &cobra.Command{
	Use:   "person <id>...",
	Short: "按站点 id 解析演员资料（失败也会缓存为无元数据）",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPerson,
}

func init() {
	rootCmd.AddCommand(personCmd)
}

func runPerson(cmd *cobra.Command, args []string) error {
	r := app.resolver
	rep := runBatch(cmd.Context(), r.Source().Name(), args, app.cfg.Concurrency, func(ctx context.Context, id string) domain.ItemResult {
		rec, err := r.Person(ctx, id)
		if err != nil {
			return failedItem(id, err)
		}
		return domain.ItemResult{ID: id, Status: statusOf(rec.HasMetadata), Record: personView{rec, rec.Overview()}}
	})

	if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	return exitErr(rep)
}

// personView 在记录之外附带拼好的简介。
type personView struct {
	domain.PersonRecord
	Overview string `json:"overview,omitempty"`
}
