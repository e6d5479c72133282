package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/keys"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newFieldsCommand(a *app) *cobra.Command {
	var (
		sel    selectionFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "fields [flags] FILE...",
		Short: "List the fields discovered across the given datasets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.newStore()
			defer st.Close()
			if _, err := a.loadAll(cmd.Context(), st, args); err != nil {
				return err
			}
			sel.apply(st, a.cfg.Compare.KeyFields, a.cfg.Compare.IgnoredFields)

			merged := st.MergedConfiguration()
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(merged, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			values := st.MergedValues()
			selection := st.Selection()
			table := tablewriter.NewWriter(out)
			table.Header("Field", "Display Name", "Groupable", "Distinct", "Set")
			for _, f := range merged.Fields {
				set := ""
				switch {
				case selection.Key.Contains(f.ID()):
					set = "key"
				case selection.Ignored.Contains(f.ID()):
					set = "ignored"
				}
				if err := table.Append([]string{
					f.ID(), f.DisplayName, strconv.FormatBool(f.Groupable), strconv.Itoa(len(values[f.ID()])), set,
				}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().StringSliceVarP(&sel.keys, "key", "k", nil, "Key fields to mark")
	cmd.Flags().StringSliceVarP(&sel.ignored, "ignore", "i", nil, "Ignored fields to mark")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the merged configuration as JSON")
	return cmd
}

func newValuesCommand(a *app) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "values --field FIELD FILE...",
		Short: "Print the sorted distinct values of one field",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.newStore()
			defer st.Close()
			if _, err := a.loadAll(cmd.Context(), st, args); err != nil {
				return err
			}
			if !st.MergedConfiguration().Has(field) {
				return fmt.Errorf("%w: %s", core.ErrUnknownField, field)
			}
			out := cmd.OutOrStdout()
			for _, v := range st.MergedValues()[field] {
				fmt.Fprintln(out, v.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", "", "Field id, dot-joined for nested fields")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func newKeysCommand(a *app) *cobra.Command {
	var (
		sel        selectionFlags
		duplicates bool
	)
	cmd := &cobra.Command{
		Use:   "keys [flags] FILE...",
		Short: "Report how uniquely the key fields identify records",
		Long: `Hashes every record by the key fields and reports, per dataset, how many
records share a key. Without key fields the whole record is the key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.newStore()
			defer st.Close()
			owners, err := a.loadAll(cmd.Context(), st, args)
			if err != nil {
				return err
			}
			sel.apply(st, a.cfg.Compare.KeyFields, nil)

			out := cmd.OutOrStdout()
			infos := st.KeyInfo()
			table := tablewriter.NewWriter(out)
			table.Header("Dataset", "Records", "Unique Keys", "Duplicates")
			for _, info := range infos {
				dup := strconv.Itoa(info.DuplicateCount)
				if info.Ambiguous() {
					dup = red(dup)
				}
				if err := table.Append([]string{
					info.Name, strconv.Itoa(info.KeyCount), strconv.Itoa(info.UniqueKeyCount), dup,
				}); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %v\n", bold("Key fields:"), keyLabel(st.KeyFields().IDs()))
			warnAmbiguous(cmd.ErrOrStderr(), infos)

			if !duplicates {
				return nil
			}
			keyFields := st.KeyFields()
			for _, owner := range owners {
				ds, _ := st.Dataset(owner)
				groups := keys.Duplicates(ds.Records, keyFields)
				hashes := make([]string, 0, len(groups))
				for h := range groups {
					hashes = append(hashes, h)
				}
				sort.Strings(hashes)
				for _, h := range hashes {
					fmt.Fprintf(out, "%s %q records %v\n", ds.Name, h, groups[h])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sel.keys, "key", "k", nil, "Key fields, dot-joined for nested fields")
	cmd.Flags().BoolVar(&duplicates, "duplicates", false, "List the record indices of every duplicated key")
	return cmd
}

func keyLabel(ids []string) any {
	if len(ids) == 0 {
		return faint("(whole record)")
	}
	return ids
}
