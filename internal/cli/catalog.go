package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newModelsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and toggle logical models",
	}

	var admin bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch := app.api().ListModels
			if admin {
				fetch = app.api().ListAdminModels
			}
			models, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				desc := ""
				if m.Description != nil {
					desc = *m.Description
				}
				rows = append(rows, []string{m.ID, m.DisplayName, strconv.FormatBool(m.Enabled), desc})
			}
			return app.render(models, []string{"ID", "NAME", "ENABLED", "DESCRIPTION"}, rows)
		},
	}
	list.Flags().BoolVar(&admin, "admin", false, "Use the admin listing")
	cmd.AddCommand(list)

	for _, enabled := range []bool{true, false} {
		enabled := enabled
		cmd.AddCommand(&cobra.Command{
			Use:   toggleVerb(enabled) + " <model-id>",
			Short: toggleShort(enabled, "model"),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := app.api().SetModelEnabled(cmd.Context(), args[0], enabled)
				if err != nil {
					return err
				}
				return app.reportToggle(m, "Model", m.ID, m.Enabled)
			},
		})
	}
	return cmd
}

func newProvidersCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List and toggle generation providers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := app.api().ListProviders(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(providers))
			for _, p := range providers {
				rows = append(rows, []string{
					p.ID,
					p.DisplayName,
					strconv.FormatBool(p.Enabled),
					strconv.Itoa(p.Priority),
					strconv.Itoa(p.Weight),
					joinInts(p.SupportedDurations),
					strconv.FormatBool(p.SupportsPro),
				})
			}
			return app.render(providers, []string{"ID", "NAME", "ENABLED", "PRIORITY", "WEIGHT", "DURATIONS", "PRO"}, rows)
		},
	})

	for _, enabled := range []bool{true, false} {
		enabled := enabled
		cmd.AddCommand(&cobra.Command{
			Use:   toggleVerb(enabled) + " <provider-id>",
			Short: toggleShort(enabled, "provider"),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := app.api().SetProviderEnabled(cmd.Context(), args[0], enabled)
				if err != nil {
					return err
				}
				return app.reportToggle(p, "Provider", p.ID, p.Enabled)
			},
		})
	}
	return cmd
}

func (a *App) reportToggle(v any, kind, id string, enabled bool) error {
	if a.jsonOut {
		return a.writeJSON(v)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	a.printf("%s %s %s\n", kind, id, state)
	return nil
}

func toggleVerb(enabled bool) string {
	if enabled {
		return "enable"
	}
	return "disable"
}

func toggleShort(enabled bool, kind string) string {
	if enabled {
		return "Enable a " + kind
	}
	return "Disable a " + kind
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

