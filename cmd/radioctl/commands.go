package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/radiowar/internal/diplomacy"
	"github.com/talgya/radiowar/internal/social"
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show round, alive factions and countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.client().Status()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), st, func(w io.Writer) {
				s := st.Session
				fmt.Fprintf(w, "Round:     %s\n", s.Round)
				fmt.Fprintf(w, "Tick:      %d (paused=%t)\n", st.Tick, st.Paused)
				fmt.Fprintf(w, "Stations:  %d\n", s.Stations)
				fmt.Fprintf(w, "Alive:     %s\n", joinFreqs(s.Alive))
				fmt.Fprintf(w, "Locked:    %s\n", joinFreqs(s.Locked))
				fmt.Fprintf(w, "Countdown: %s", s.Countdown.Phase)
				if !s.Countdown.EndTime.IsZero() {
					fmt.Fprintf(w, " (ends %s)", s.Countdown.EndTime.Format(time.RFC3339))
				}
				fmt.Fprintln(w)
				if s.Ended {
					fmt.Fprintln(w, "Round over.")
				}
			})
		},
	}
}

func (c *cli) stationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List stations and their frequencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stations, err := c.client().Stations()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), stations, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPOSITION\tFREQUENCY")
				for _, s := range stations {
					fmt.Fprintf(tw, "%s\t%s\t%d,%d\t%s\n", s.ID, s.Name, s.Position.Q, s.Position.R, s.Owner)
				}
				tw.Flush()
			})
		},
	}
}

func (c *cli) examineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examine <station>",
		Short: "Show what a player sees when examining a station",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := c.client().Station(args[0])
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), ex, func(w io.Writer) {
				fmt.Fprintln(w, ex.Description)
			})
		},
	}
}

func (c *cli) factionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "factions",
		Short: "List factions with stations, elimination phase and allies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			factions, err := c.client().Factions()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), factions, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FREQUENCY\tNAME\tSTATIONS\tPHASE\tALLIES")
				for _, f := range factions {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", f.Frequency, f.Name, f.Stations, f.State.Phase, joinFreqs(f.Allies))
				}
				tw.Flush()
			})
		},
	}
}

func (c *cli) alliancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alliances",
		Short: "Show the alliance ledger and its blocs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := c.client().Alliances()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), view, func(w io.Writer) {
				for _, bloc := range view.Blocs {
					fmt.Fprintf(w, "bloc: %s\n", joinFreqs(bloc))
				}
			})
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	var (
		limit    int
		category string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent session events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := c.client().Events(limit, category)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), events, func(w io.Writer) {
				for _, e := range events {
					fmt.Fprintf(w, "%s [%s] %s\n", e.Time.Format(time.TimeOnly), e.Category, e.Description)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	cmd.Flags().StringVar(&category, "category", "", "only this category (capture, grace, locked, alliance, treaty, countdown, round)")
	return cmd
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the end-of-round report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := c.client().Summary()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), sum, func(w io.Writer) {
				fmt.Fprintln(w, strings.Join(sum.Lines, "\n"))
			})
		},
	}
}

func (c *cli) roundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rounds [id]",
		Short: "List past rounds, or show one with its journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				detail, err := c.client().Round(args[0])
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), detail, func(w io.Writer) {
					fmt.Fprintln(w, strings.Join(detail.Round.Summary.Lines, "\n"))
					fmt.Fprintf(w, "%d journal events\n", len(detail.Journal))
				})
			}
			rounds, err := c.client().Rounds()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), rounds, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ROUND\tSTARTED\tENDED\tLEADER")
				for _, r := range rounds {
					ended := "-"
					if r.EndedAt != nil {
						ended = r.EndedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.StartedAt.Format(time.RFC3339), ended, r.Summary.Leader)
				}
				tw.Flush()
			})
		},
	}
}

func (c *cli) captureCmd() *cobra.Command {
	var roles []string
	cmd := &cobra.Command{
		Use:   "capture <station> [frequency]",
		Short: "Retune a station to a frequency, or by the capturing player's roles",
		Long: `Retunes a station. With a frequency argument the station moves to that
faction; "neutral" or an empty argument clears it. With --roles the
first active faction owning one of the roles takes it.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := c.client()
			station := args[0]
			if len(roles) > 0 {
				res, err := cl.Reconfigure(station, roles)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "%s now broadcasts on %s\n", station, res.Frequency)
				})
			}
			var f social.Frequency
			if len(args) == 2 {
				f = social.Frequency(args[1])
			}
			res, err := cl.Capture(station, f)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s now broadcasts on %s\n", station, res.Station.Owner)
			})
		},
	}
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "capturing player's role ids, in order")
	return cmd
}

func (c *cli) treatyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treaty",
		Short: "Issue, apply and terminate treaties",
	}

	printOutcome := func(cmd *cobra.Command, out *diplomacy.Outcome) error {
		return c.print(cmd.OutOrStdout(), out, func(w io.Writer) {
			fmt.Fprintf(w, "%s", out.Kind)
			if out.Item != nil {
				fmt.Fprintf(w, " %s", out.Item.ID)
			}
			fmt.Fprintln(w)
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "issue <document>",
			Short: "Draft a treaty at a faction document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := c.client().IssueTreaty(args[0])
				if err != nil {
					return err
				}
				return printOutcome(cmd, out)
			},
		},
		&cobra.Command{
			Use:   "apply <treaty> <document>",
			Short: "Present a treaty to another faction's document",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := c.client().ApplyTreaty(args[0], args[1])
				if err != nil {
					return err
				}
				return printOutcome(cmd, out)
			},
		},
		&cobra.Command{
			Use:   "terminate <initiator> <target>",
			Short: "Break the alliance between two frequencies",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := c.client().TerminateAlliance(social.Frequency(args[0]), social.Frequency(args[1]))
				if err != nil {
					return err
				}
				return printOutcome(cmd, out)
			},
		},
	)
	return cmd
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the session back to an empty round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session reset")
			return nil
		},
	}
}

func (c *cli) joinCmd() *cobra.Command {
	var (
		name  string
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "join <session-id>",
		Short: "Register a participant so faction notices reach it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := social.Participant{SessionID: args[0], Name: name, Roles: roles}
			if err := c.client().Join(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s joined\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "role ids")
	return cmd
}

func (c *cli) leaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <session-id>",
		Short: "Remove a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().Leave(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s left\n", args[0])
			return nil
		},
	}
}

func (c *cli) pauseCmd(paused bool) *cobra.Command {
	use, short := "resume", "Resume timed sweeps"
	if paused {
		use, short = "pause", "Suspend grace and countdown sweeps"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().SetPaused(paused); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paused=%t\n", paused)
			return nil
		},
	}
}

func joinFreqs(fs []social.Frequency) string {
	if len(fs) == 0 {
		return "-"
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
