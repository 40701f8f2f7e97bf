package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	stamp "github.com/goliatone/go-stamp"
	"github.com/goliatone/go-stamp/internal/config"
	"github.com/goliatone/go-stamp/pkg/activity"
)

type checkOutput struct {
	Outcome        stamp.Outcome      `json:"outcome"`
	StoredVersion  string             `json:"stored_version,omitempty"`
	CurrentVersion string             `json:"current_version"`
	Stamped        bool               `json:"stamped"`
	ClearedAll     bool               `json:"cleared_all"`
	Removed        []string           `json:"removed,omitempty"`
	Migration      []migrationOutcome `json:"migration,omitempty"`
	Notifications  []notification     `json:"notifications,omitempty"`
	Errors         []string           `json:"errors,omitempty"`
}

type migrationOutcome struct {
	Rule   string          `json:"rule"`
	Key    string          `json:"key"`
	Status stamp.KeyStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

type notification struct {
	ID         string `json:"id"`
	Verb       string `json:"verb"`
	Channel    string `json:"channel"`
	OldVersion string `json:"old_version"`
	NewVersion string `json:"new_version"`
}

func newCheckCommand(deps commandDeps) *cobra.Command {
	var (
		currentVersion string
		clearAll       bool
		clearKeys      []string
		migrate        bool
		notify         bool
		channel        string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the version check against the configured store",
		Example: "  stamp check --current-version 2.1.0\n" +
			"  stamp --config stamp.yaml check --clear-all\n" +
			"  STAMP_CURRENT_VERSION=3.0.0 stamp --json check",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("check does not accept positional arguments")
			}

			var layer config.CheckConfig
			flags := cmd.Flags()
			if flags.Changed("current-version") {
				layer.CurrentVersion = &currentVersion
			}
			if flags.Changed("clear-all") {
				layer.ClearAllOnMajorUpdate = &clearAll
			}
			if flags.Changed("clear-key") {
				layer.ClearSpecificKeys = clearKeys
			}
			if flags.Changed("migrate") {
				layer.MigrateData = &migrate
			}
			if flags.Changed("notify") {
				layer.ShowUserNotification = &notify
			}
			if flags.Changed("channel") {
				layer.Channel = &channel
			}

			rt, err := deps.loadRuntime(cmd, layer)
			if err != nil {
				return mapCommandError(err)
			}
			defer rt.Close()

			cfg := rt.cfg.StampConfig()
			if strings.TrimSpace(cfg.CurrentVersion) == "" {
				return usageErrorf("current version is required (--current-version, STAMP_CURRENT_VERSION or check.current_version)")
			}

			broadcaster := activity.NewBroadcaster()
			defer broadcaster.Close()
			events, cancel := broadcaster.Subscribe(4, activity.VerbAppUpdated, activity.VerbAppMajorUpdate)
			defer cancel()

			manager, err := rt.manager(stamp.WithHooks(broadcaster))
			if err != nil {
				return mapCommandError(err)
			}
			result := manager.Run(cmd.Context(), cfg)

			out := buildCheckOutput(result, drain(events))
			if deps.globals.JSON {
				if err := printJSON(deps.out, out); err != nil {
					return mapCommandError(err)
				}
			} else if err := printCheck(deps, out); err != nil {
				return mapCommandError(err)
			}

			switch result.Outcome {
			case stamp.OutcomeUnavailable:
				return &ExitError{Code: ExitCodeUnavailable, Err: fmt.Errorf("storage unavailable")}
			case stamp.OutcomeInvalid:
				return &ExitError{Code: ExitCodeConfig, Err: result.Err()}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&currentVersion, "current-version", "", "Version of the running build")
	flags.BoolVar(&clearAll, "clear-all", false, "Wipe every feature key on a major upgrade")
	flags.StringSliceVar(&clearKeys, "clear-key", nil, "Key to remove on any upgrade (repeatable)")
	flags.BoolVar(&migrate, "migrate", true, "Run the migration rules on upgrade")
	flags.BoolVar(&notify, "notify", true, "Emit update notifications")
	flags.StringVar(&channel, "channel", "", "Channel stamped on notifications")
	return cmd
}

func drain(events <-chan activity.Event) []activity.Event {
	var out []activity.Event
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		default:
			return out
		}
	}
}

func buildCheckOutput(result stamp.Result, events []activity.Event) checkOutput {
	out := checkOutput{
		Outcome:        result.Outcome,
		StoredVersion:  result.StoredVersion,
		CurrentVersion: result.CurrentVersion,
		Stamped:        result.Stamped,
		ClearedAll:     result.ClearedAll,
		Removed:        result.Removed,
	}
	for _, outcome := range result.Migration.Outcomes {
		entry := migrationOutcome{Rule: outcome.Rule, Key: outcome.Key, Status: outcome.Status}
		if outcome.Err != nil {
			entry.Error = outcome.Err.Error()
		}
		out.Migration = append(out.Migration, entry)
	}
	for _, event := range events {
		payload, ok := activity.ParseUpdate(event)
		if !ok {
			continue
		}
		out.Notifications = append(out.Notifications, notification{
			ID:         event.ID,
			Verb:       event.Verb,
			Channel:    event.Channel,
			OldVersion: payload.OldVersion,
			NewVersion: payload.NewVersion,
		})
	}
	for _, err := range result.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

func printCheck(deps commandDeps, out checkOutput) error {
	if _, err := fmt.Fprintf(deps.out, "outcome=%s stored=%s current=%s stamped=%t\n",
		out.Outcome, valueOr(out.StoredVersion, "-"), out.CurrentVersion, out.Stamped); err != nil {
		return err
	}
	if len(out.Removed) > 0 {
		if _, err := fmt.Fprintf(deps.out, "removed=%s\n", strings.Join(out.Removed, ",")); err != nil {
			return err
		}
	}
	for _, m := range out.Migration {
		if _, err := fmt.Fprintf(deps.out, "migrate key=%s status=%s rule=%q\n", m.Key, m.Status, m.Rule); err != nil {
			return err
		}
	}
	for _, n := range out.Notifications {
		if _, err := fmt.Fprintf(deps.out, "notify %s %s -> %s\n", n.Verb, n.OldVersion, n.NewVersion); err != nil {
			return err
		}
	}
	for _, e := range out.Errors {
		if _, err := fmt.Fprintf(deps.out, "error %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
